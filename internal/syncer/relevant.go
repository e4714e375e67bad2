package syncer

import (
	"sort"

	"localesync/internal/diff"
)

// Candidate is one translatable string at a path of the source file
type Candidate struct {
	Kind  diff.Kind
	Path  diff.Path
	Value string
}

// Relevant keeps the Added and Edited entries that carry something to
// translate. Object values are expanded into their non-empty string leaves;
// deletions, empty values and non-string scalars are dropped.
func Relevant(entries []diff.Entry) []Candidate {
	var out []Candidate
	for _, e := range entries {
		if e.Kind != diff.Added && e.Kind != diff.Edited {
			continue
		}
		out = append(out, leaves(e.Kind, e.Path, e.New)...)
	}
	return out
}

func leaves(kind diff.Kind, path diff.Path, v any) []Candidate {
	switch val := v.(type) {
	case string:
		if val == "" || len(path) == 0 {
			return nil
		}
		return []Candidate{{Kind: kind, Path: path, Value: val}}
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var out []Candidate
		for _, k := range keys {
			// Keys below an edited object may be new to the sibling
			out = append(out, leaves(diff.Added, path.Append(diff.Key(k)), val[k])...)
		}
		return out
	default:
		return nil
	}
}

// isBlank reports whether path is missing, null or an empty string in tree
func isBlank(tree any, path diff.Path) bool {
	v, ok := diff.Get(tree, path)
	if !ok || v == nil {
		return true
	}
	s, isString := v.(string)
	return isString && s == ""
}

// parentWritable reports whether every ancestor of path is an object or
// absent, so that a value can be placed there without replacing data.
func parentWritable(tree any, path diff.Path) bool {
	node := tree
	for _, seg := range path[:len(path)-1] {
		obj, ok := node.(map[string]any)
		if !ok || seg.IsIndex {
			return false
		}
		next, exists := obj[seg.Key]
		if !exists || next == nil {
			return true
		}
		node = next
	}
	_, ok := node.(map[string]any)
	return ok
}
