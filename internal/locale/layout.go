// Package locale knows where locale files live and how they are written.
package locale

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
)

// Style is the on-disk convention for locale files
type Style string

const (
	// StyleDirectory is <root>/<locale>/<namespace>.json
	StyleDirectory Style = "directory"
	// StyleFile is <root>/<locale>.json with namespaces as top-level keys
	StyleFile Style = "file"
)

const ext = ".json"

// Location is a parsed locale file path
type Location struct {
	Path      string       `json:"path"`
	Locale    string       `json:"locale"`
	Tag       language.Tag `json:"-"`
	Namespace string       `json:"namespace,omitempty"`
	// Group is shared by every locale's copy of the same file
	Group string `json:"group"`
}

type Layout struct {
	Root  string
	Style Style
}

// Parse places path inside the layout. Paths outside the root, non-JSON
// files and segments that are not locale tags are rejected.
func (l Layout) Parse(path string) (Location, error) {
	if filepath.Ext(path) != ext {
		return Location{}, fmt.Errorf("not a locale file: %s", path)
	}

	rel, err := filepath.Rel(l.Root, path)
	if err != nil {
		return Location{}, fmt.Errorf("getting relative path: %w", err)
	}
	if rel == "." || strings.HasPrefix(rel, "..") {
		return Location{}, fmt.Errorf("outside locale root: %s", path)
	}
	rel = filepath.ToSlash(strings.TrimSuffix(rel, ext))

	loc := Location{Path: path}
	switch l.Style {
	case StyleFile:
		dir, name := "", rel
		if i := strings.LastIndex(rel, "/"); i >= 0 {
			dir, name = rel[:i], rel[i+1:]
		}
		loc.Locale = name
		loc.Group = dir
	default:
		parts := strings.SplitN(rel, "/", 2)
		if len(parts) != 2 || parts[1] == "" {
			return Location{}, fmt.Errorf("expected <locale>/<namespace>%s: %s", ext, path)
		}
		loc.Locale = parts[0]
		loc.Namespace = parts[1]
		loc.Group = parts[1]
	}

	tag, err := language.Parse(loc.Locale)
	if err != nil {
		return Location{}, fmt.Errorf("invalid locale %q: %w", loc.Locale, err)
	}
	loc.Tag = tag
	return loc, nil
}

// Path is the file holding group for locale
func (l Layout) Path(group, locale string) string {
	if l.Style == StyleFile {
		return filepath.Join(l.Root, filepath.FromSlash(group), locale+ext)
	}
	return filepath.Join(l.Root, locale, filepath.FromSlash(group)+ext)
}

// Base returns the language subtag of locale ("pt" for "pt-BR"), which is
// what most translation services expect.
func Base(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return locale
	}
	base, _ := tag.Base()
	return base.String()
}
