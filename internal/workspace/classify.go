package workspace

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultIgnoreDirs are never watched or scanned
var DefaultIgnoreDirs = []string{".git", "node_modules", "vendor", "dist", "build"}

// Rule assigns a category to paths matching a glob. Patterns are relative
// to the workspace root and use '/' as separator; "**" crosses directories.
type Rule struct {
	Category string `mapstructure:"category"`
	Pattern  string `mapstructure:"pattern"`
}

type compiledRule struct {
	category string
	g        glob.Glob
}

// Classifier maps workspace paths to categories. Temporary files left by
// Local.WriteFile are always excluded.
type Classifier struct {
	root       string
	rules      []compiledRule
	exclude    []glob.Glob
	ignoreDirs map[string]bool
}

func NewClassifier(root string, rules []Rule, exclude, ignoreDirs []string) (*Classifier, error) {
	c := &Classifier{root: root, ignoreDirs: make(map[string]bool)}

	for _, r := range rules {
		g, err := glob.Compile(r.Pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %q for %s: %w", r.Pattern, r.Category, err)
		}
		c.rules = append(c.rules, compiledRule{category: r.Category, g: g})
	}
	patterns := append(append([]string(nil), exclude...), "**"+TempSuffix)
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("compiling exclusion %q: %w", p, err)
		}
		c.exclude = append(c.exclude, g)
	}
	for _, d := range ignoreDirs {
		c.ignoreDirs[d] = true
	}
	return c, nil
}

func (c *Classifier) Root() string { return c.root }

func (c *Classifier) rel(path string) (string, bool) {
	rel, err := filepath.Rel(c.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Ignored reports whether path is outside the root, inside an ignored
// directory or matched by an exclusion pattern.
func (c *Classifier) Ignored(path string) bool {
	rel, ok := c.rel(path)
	if !ok {
		return true
	}
	for _, part := range strings.Split(rel, "/") {
		if c.ignoreDirs[part] {
			return true
		}
	}
	for _, g := range c.exclude {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Classify returns the category of the first matching rule
func (c *Classifier) Classify(path string) (string, bool) {
	if c.Ignored(path) {
		return "", false
	}
	rel, _ := c.rel(path)
	for _, r := range c.rules {
		if r.g.Match(rel) {
			return r.category, true
		}
	}
	return "", false
}

// Scan walks the root and calls fn for every classified file. Ignored
// directories are not descended into.
func (c *Classifier) Scan(fn func(path, category string) error) error {
	return filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != c.root && c.Ignored(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if category, ok := c.Classify(path); ok {
			return fn(path, category)
		}
		return nil
	})
}

// Dirs returns every directory under the root that is not ignored,
// including the root itself.
func (c *Classifier) Dirs() ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != c.root && c.Ignored(path) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}
