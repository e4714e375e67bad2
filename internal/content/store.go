// internal/content/store.go
package content

import (
	"bytes"
	"sort"
	"strings"
	"sync"
	"time"

	"localesync/internal/diff"
	"localesync/internal/errors"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
)

// Store holds the last known parsed content of every tracked file. It is the
// baseline that incoming changes are diffed against.
type Store struct {
	mu       sync.RWMutex
	files    map[string]*File
	engine   *diff.Engine
	resolver Resolver
	logger   *zap.Logger
}

func NewStore(engine *diff.Engine, resolver Resolver, logger *zap.Logger) *Store {
	if engine == nil {
		engine = diff.NewEngine()
	}
	if resolver == nil {
		resolver = ResolverFunc(func(string) Meta { return Meta{} })
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		files:    make(map[string]*File),
		engine:   engine,
		resolver: resolver,
		logger:   logger,
	}
}

// parse decodes raw content. Whitespace-only content is an empty object.
func parse(path string, raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	tree, err := diff.ParseJSON(raw)
	if err != nil {
		return nil, errors.MalformedInput(path, err)
	}
	return tree, nil
}

// Add registers a newly discovered file
func (s *Store) Add(path string, raw []byte) error {
	return s.put(path, raw)
}

// Update replaces the baseline for path
func (s *Store) Update(path string, raw []byte) error {
	return s.put(path, raw)
}

func (s *Store) put(path string, raw []byte) error {
	tree, err := parse(path, raw)
	if err != nil {
		return err
	}

	f := &File{
		Meta:      s.resolver.Resolve(path),
		Path:      path,
		Content:   tree,
		Raw:       append([]byte(nil), raw...),
		Hash:      xxh3.Hash(raw),
		UpdatedAt: time.Now(),
	}

	s.mu.Lock()
	s.files[path] = f
	s.mu.Unlock()

	s.logger.Debug("content updated", zap.String("path", path), zap.String("category", f.Category))
	return nil
}

// Delete forgets path
func (s *Store) Delete(path string) {
	s.mu.Lock()
	delete(s.files, path)
	s.mu.Unlock()
}

// Get returns a copy of the tracked file
func (s *Store) Get(path string) (File, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[path]
	if !ok {
		return File{}, false
	}
	return *f, true
}

// Has reports whether path is tracked
func (s *Store) Has(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[path]
	return ok
}

// GetDiffs diffs the tracked content of path against raw. An untracked path
// diffs against an empty object. The store is not modified.
func (s *Store) GetDiffs(path string, raw []byte) ([]diff.Entry, error) {
	newTree, err := parse(path, raw)
	if err != nil {
		return nil, err
	}

	var oldTree any = map[string]any{}
	s.mu.RLock()
	if f, ok := s.files[path]; ok {
		if f.Hash == xxh3.Hash(raw) && bytes.Equal(f.Raw, raw) {
			s.mu.RUnlock()
			return nil, nil
		}
		oldTree = f.Content
	}
	s.mu.RUnlock()

	return s.engine.Diff(oldTree, newTree)
}

// ByCategory returns the files of one category sorted by path
func (s *Store) ByCategory(category string) []File {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []File
	for _, f := range s.files {
		if f.Category == category {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Value looks up a dotted key in a namespace of one locale
func (s *Store) Value(locale, namespace, key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.files {
		if f.Locale != locale {
			continue
		}
		if v, ok := lookup(f, namespace, key); ok {
			return v, true
		}
	}
	return nil, false
}

// Values returns the value of a key for every locale that defines it
func (s *Store) Values(namespace, key string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any)
	for _, f := range s.files {
		if f.Locale == "" {
			continue
		}
		if v, ok := lookup(f, namespace, key); ok {
			out[f.Locale] = v
		}
	}
	return out
}

// Namespaces lists every namespace seen across locale files. Files without
// a namespace of their own contribute their top-level keys.
func (s *Store) Namespaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, f := range s.files {
		if f.Locale == "" {
			continue
		}
		if f.Namespace != "" {
			seen[f.Namespace] = struct{}{}
			continue
		}
		if obj, ok := f.Content.(map[string]any); ok {
			for k := range obj {
				seen[k] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of tracked files
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// lookup resolves namespace.key inside f. A file that carries its own
// namespace is matched by name; one without holds namespaces as top-level keys.
func lookup(f *File, namespace, key string) (any, bool) {
	var path diff.Path
	switch f.Namespace {
	case namespace:
		path = diff.Keys(strings.Split(key, ".")...)
	case "":
		path = diff.Keys(append([]string{namespace}, strings.Split(key, ".")...)...)
	default:
		return nil, false
	}
	return diff.Get(f.Content, path)
}
