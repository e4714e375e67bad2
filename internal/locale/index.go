package locale

import (
	"sort"
	"sync"
)

// Index maps each group to the locale files that make it up
type Index struct {
	mu     sync.RWMutex
	groups map[string]map[string]Location // group -> locale -> location
	byPath map[string]Location
}

func NewIndex() *Index {
	return &Index{
		groups: make(map[string]map[string]Location),
		byPath: make(map[string]Location),
	}
}

// Register adds or refreshes loc
func (x *Index) Register(loc Location) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if prev, ok := x.byPath[loc.Path]; ok {
		x.removeLocked(prev)
	}

	g, ok := x.groups[loc.Group]
	if !ok {
		g = make(map[string]Location)
		x.groups[loc.Group] = g
	}
	g[loc.Locale] = loc
	x.byPath[loc.Path] = loc
}

// Remove drops the file at path
func (x *Index) Remove(path string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if loc, ok := x.byPath[path]; ok {
		x.removeLocked(loc)
	}
}

func (x *Index) removeLocked(loc Location) {
	delete(x.byPath, loc.Path)
	g := x.groups[loc.Group]
	if cur, ok := g[loc.Locale]; ok && cur.Path == loc.Path {
		delete(g, loc.Locale)
	}
	if len(g) == 0 {
		delete(x.groups, loc.Group)
	}
}

// Lookup returns the location registered for path
func (x *Index) Lookup(path string) (Location, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	loc, ok := x.byPath[path]
	return loc, ok
}

// Siblings returns the other locales' files in the group of path, sorted by
// locale.
func (x *Index) Siblings(path string) []Location {
	x.mu.RLock()
	defer x.mu.RUnlock()

	loc, ok := x.byPath[path]
	if !ok {
		return nil
	}

	var out []Location
	for locale, sib := range x.groups[loc.Group] {
		if locale == loc.Locale {
			continue
		}
		out = append(out, sib)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Locale < out[j].Locale })
	return out
}

// Group returns every file in group, sorted by locale
func (x *Index) Group(group string) []Location {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]Location, 0, len(x.groups[group]))
	for _, loc := range x.groups[group] {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Locale < out[j].Locale })
	return out
}

// Groups lists the known groups
func (x *Index) Groups() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]string, 0, len(x.groups))
	for g := range x.groups {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}
