// internal/diff/diff.go
package diff

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"localesync/internal/errors"
)

// Kind tags a single detected change between two JSON trees.
type Kind int

const (
	Added Kind = iota
	Edited
	Deleted
	ArrayChange
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Edited:
		return "edited"
	case Deleted:
		return "deleted"
	case ArrayChange:
		return "array"
	default:
		return "unknown"
	}
}

// Segment is one step of a Path: an object key or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

func Key(k string) Segment { return Segment{Key: k} }

func Index(i int) Segment { return Segment{Index: i, IsIndex: true} }

func (s Segment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Key
}

// Path addresses a scalar or subtree inside a JSON tree.
type Path []Segment

// Keys builds a Path made only of object keys.
func Keys(keys ...string) Path {
	p := make(Path, len(keys))
	for i, k := range keys {
		p[i] = Key(k)
	}
	return p
}

func (p Path) String() string {
	var b strings.Builder
	for i, s := range p {
		if i > 0 && !s.IsIndex {
			b.WriteByte('.')
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// Append returns a copy of p extended with s; p itself is never aliased.
func (p Path) Append(s Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, s)
}

// Entry is one detected change. For ArrayChange, Path ends with the index
// segment and Item tells whether that element was Added or Deleted.
type Entry struct {
	Kind Kind
	Path Path
	Old  any
	New  any
	Item Kind
}

func (e Entry) String() string {
	if e.Kind == ArrayChange {
		return fmt.Sprintf("%s(%s) %s", e.Kind, e.Item, e.Path)
	}
	return fmt.Sprintf("%s %s", e.Kind, e.Path)
}

// Engine computes structural diffs between JSON trees as produced by
// encoding/json (maps, slices and scalars).
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Diff returns the ordered list of changes turning oldTree into newTree.
// Object keys are visited in sorted order so the output is deterministic.
func (e *Engine) Diff(oldTree, newTree any) ([]Entry, error) {
	if err := Validate(oldTree); err != nil {
		return nil, errors.MalformedInput("old tree", err)
	}
	if err := Validate(newTree); err != nil {
		return nil, errors.MalformedInput("new tree", err)
	}

	var entries []Entry
	e.walk(nil, oldTree, newTree, &entries)
	return entries, nil
}

func (e *Engine) walk(path Path, a, b any, out *[]Entry) {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			*out = append(*out, Entry{Kind: Edited, Path: path, Old: a, New: b})
			return
		}
		for _, k := range unionKeys(av, bv) {
			oldVal, inOld := av[k]
			newVal, inNew := bv[k]
			sub := path.Append(Key(k))
			switch {
			case !inOld:
				*out = append(*out, Entry{Kind: Added, Path: sub, New: newVal})
			case !inNew:
				*out = append(*out, Entry{Kind: Deleted, Path: sub, Old: oldVal})
			default:
				e.walk(sub, oldVal, newVal, out)
			}
		}

	case []any:
		bv, ok := b.([]any)
		if !ok {
			*out = append(*out, Entry{Kind: Edited, Path: path, Old: a, New: b})
			return
		}
		shared := min(len(av), len(bv))
		for i := 0; i < shared; i++ {
			e.walk(path.Append(Index(i)), av[i], bv[i], out)
		}
		// Removals run from the tail so applying them in order keeps indices valid
		for i := len(av) - 1; i >= len(bv); i-- {
			*out = append(*out, Entry{Kind: ArrayChange, Item: Deleted, Path: path.Append(Index(i)), Old: av[i]})
		}
		for i := len(av); i < len(bv); i++ {
			*out = append(*out, Entry{Kind: ArrayChange, Item: Added, Path: path.Append(Index(i)), New: bv[i]})
		}

	default:
		if !scalarEqual(a, b) {
			*out = append(*out, Entry{Kind: Edited, Path: path, Old: a, New: b})
		}
	}
}

func unionKeys(a, b map[string]any) []string {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func scalarEqual(a, b any) bool {
	switch b.(type) {
	case map[string]any, []any:
		return false
	}
	if an, ok := a.(json.Number); ok {
		if bn, ok := b.(json.Number); ok {
			return an.String() == bn.String()
		}
	}
	return a == b
}

// Validate reports whether v is a JSON tree.
func Validate(v any) error {
	switch t := v.(type) {
	case nil, bool, string, float64, json.Number, int, int64:
		return nil
	case map[string]any:
		for k, v := range t {
			if err := Validate(v); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
		}
		return nil
	case []any:
		for i, v := range t {
			if err := Validate(v); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported value of type %T", v)
	}
}
