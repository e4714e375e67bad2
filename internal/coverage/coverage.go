// Package coverage reports keys that some locales define and others lack.
package coverage

import (
	"context"
	"sort"
	"sync"

	"localesync/internal/change"
	"localesync/internal/content"

	"go.uber.org/zap"
)

// Report is the coverage of one namespace
type Report struct {
	Namespace string              `json:"namespace"`
	Locales   []string            `json:"locales"`
	Keys      int                 `json:"keys"`
	Missing   map[string][]string `json:"missing"`
}

// Complete reports whether every locale has every key
func (r Report) Complete() bool {
	for _, keys := range r.Missing {
		if len(keys) > 0 {
			return false
		}
	}
	return true
}

// Compute builds a report per namespace from the locale files in store
func Compute(store *content.Store, category string) map[string]Report {
	// namespace -> locale -> subtree
	trees := make(map[string]map[string]any)
	add := func(ns, loc string, tree any) {
		if trees[ns] == nil {
			trees[ns] = make(map[string]any)
		}
		trees[ns][loc] = tree
	}

	for _, f := range store.ByCategory(category) {
		if f.Locale == "" {
			continue
		}
		if f.Namespace != "" {
			add(f.Namespace, f.Locale, f.Content)
			continue
		}
		if obj, ok := f.Content.(map[string]any); ok {
			for ns, sub := range obj {
				add(ns, f.Locale, sub)
			}
		}
	}

	reports := make(map[string]Report, len(trees))
	for ns, byLocale := range trees {
		present := make(map[string]map[string]bool, len(byLocale))
		union := make(map[string]bool)
		for loc, tree := range byLocale {
			present[loc] = make(map[string]bool)
			flatten("", tree, func(key string) {
				present[loc][key] = true
				union[key] = true
			})
		}

		r := Report{Namespace: ns, Keys: len(union), Missing: make(map[string][]string)}
		for loc := range byLocale {
			r.Locales = append(r.Locales, loc)
			var missing []string
			for key := range union {
				if !present[loc][key] {
					missing = append(missing, key)
				}
			}
			sort.Strings(missing)
			if len(missing) > 0 {
				r.Missing[loc] = missing
			}
		}
		sort.Strings(r.Locales)
		reports[ns] = r
	}
	return reports
}

// flatten calls fn with the dotted key of every non-empty string leaf
func flatten(prefix string, v any, fn func(string)) {
	switch val := v.(type) {
	case string:
		if val != "" && prefix != "" {
			fn(prefix)
		}
	case map[string]any:
		for k, sub := range val {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(key, sub, fn)
		}
	}
}

// Tracker keeps the latest reports. It runs as the last stage of the
// locale chain so reports follow every sync.
type Tracker struct {
	mu       sync.RWMutex
	store    *content.Store
	category string
	reports  map[string]Report
	logger   *zap.Logger
}

func NewTracker(store *content.Store, category string, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{store: store, category: category, reports: map[string]Report{}, logger: logger}
}

func (t *Tracker) Name() string { return "coverage" }

func (t *Tracker) Process(_ context.Context, cc *change.Context) (bool, error) {
	t.Refresh()

	t.mu.RLock()
	defer t.mu.RUnlock()
	incomplete := 0
	for _, r := range t.reports {
		if !r.Complete() {
			incomplete++
		}
	}
	t.logger.Debug("coverage refreshed",
		zap.String("path", cc.Path),
		zap.Int("namespaces", len(t.reports)),
		zap.Int("incomplete", incomplete))
	return true, nil
}

// Refresh recomputes every report
func (t *Tracker) Refresh() {
	reports := Compute(t.store, t.category)
	t.mu.Lock()
	t.reports = reports
	t.mu.Unlock()
}

// Report returns the latest report for namespace
func (t *Tracker) Report(namespace string) (Report, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.reports[namespace]
	return r, ok
}

// Reports returns every report sorted by namespace
func (t *Tracker) Reports() []Report {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Report, 0, len(t.reports))
	for _, r := range t.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Namespace < out[j].Namespace })
	return out
}
