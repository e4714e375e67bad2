package watch

import (
	"localesync/internal/content"
	"localesync/internal/locale"
	"localesync/internal/workspace"
)

// NewResolver describes paths for the content store: the category comes
// from the classifier, locale and namespace from the layout.
func NewResolver(c *workspace.Classifier, layout locale.Layout) content.Resolver {
	return content.ResolverFunc(func(path string) content.Meta {
		category, ok := c.Classify(path)
		if !ok {
			return content.Meta{}
		}
		meta := content.Meta{Category: category}
		if loc, err := layout.Parse(path); err == nil {
			meta.Locale = loc.Locale
			meta.Namespace = loc.Namespace
		}
		return meta
	})
}
