package diff

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	ErrPathNotFound = errors.New("path not found")
	ErrPathConflict = errors.New("path conflicts with tree structure")
)

// ParseJSON decodes raw into a JSON tree. Numbers are kept as json.Number so
// they survive a round trip unchanged.
func ParseJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return tree, nil
}

// Get resolves path inside tree.
func Get(tree any, path Path) (any, bool) {
	node := tree
	for _, seg := range path {
		var ok bool
		if node, ok = child(node, seg); !ok {
			return nil, false
		}
	}
	return node, true
}

// Apply returns a copy of tree with entries applied in order. The input tree
// is never mutated.
func Apply(tree any, entries []Entry) (any, error) {
	root := Clone(tree)
	for _, e := range entries {
		var err error
		if root, err = applyEntry(root, e); err != nil {
			return nil, fmt.Errorf("applying %s: %w", e, err)
		}
	}
	return root, nil
}

func applyEntry(root any, e Entry) (any, error) {
	if len(e.Path) == 0 {
		if e.Kind == Deleted {
			return nil, nil
		}
		return Clone(e.New), nil
	}

	parent, last := e.Path[:len(e.Path)-1], e.Path[len(e.Path)-1]
	switch e.Kind {
	case Added, Edited:
		return modify(root, parent, true, func(container any) (any, error) {
			return setChild(container, last, Clone(e.New))
		})
	case Deleted:
		return modify(root, parent, false, func(container any) (any, error) {
			return removeChild(container, last)
		})
	case ArrayChange:
		return modify(root, parent, false, func(container any) (any, error) {
			if e.Item == Deleted {
				return removeChild(container, last)
			}
			return insertChild(container, last, Clone(e.New))
		})
	default:
		return nil, fmt.Errorf("unknown entry kind %d", e.Kind)
	}
}

// modify walks path and replaces the container found there with op(container).
// With create set, missing or null object members along the way become empty objects.
func modify(node any, path Path, create bool, op func(any) (any, error)) (any, error) {
	if len(path) == 0 {
		if node == nil && create {
			node = map[string]any{}
		}
		return op(node)
	}

	seg := path[0]
	if node == nil && create && !seg.IsIndex {
		node = map[string]any{}
	}
	next, ok := child(node, seg)
	if !ok {
		if !create || seg.IsIndex {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, seg)
		}
		next = nil
	}

	updated, err := modify(next, path[1:], create, op)
	if err != nil {
		return nil, err
	}
	return setChild(node, seg, updated)
}

func child(node any, seg Segment) (any, bool) {
	if seg.IsIndex {
		arr, ok := node.([]any)
		if !ok || seg.Index < 0 || seg.Index >= len(arr) {
			return nil, false
		}
		return arr[seg.Index], true
	}
	obj, ok := node.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := obj[seg.Key]
	return v, ok
}

func setChild(container any, seg Segment, value any) (any, error) {
	if seg.IsIndex {
		arr, ok := container.([]any)
		if !ok || seg.Index < 0 || seg.Index >= len(arr) {
			return nil, fmt.Errorf("%w: %s", ErrPathConflict, seg)
		}
		arr[seg.Index] = value
		return arr, nil
	}
	obj, ok := container.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPathConflict, seg)
	}
	obj[seg.Key] = value
	return obj, nil
}

func removeChild(container any, seg Segment) (any, error) {
	if seg.IsIndex {
		arr, ok := container.([]any)
		if !ok || seg.Index < 0 || seg.Index >= len(arr) {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, seg)
		}
		return append(arr[:seg.Index:seg.Index], arr[seg.Index+1:]...), nil
	}
	obj, ok := container.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPathConflict, seg)
	}
	delete(obj, seg.Key)
	return obj, nil
}

func insertChild(container any, seg Segment, value any) (any, error) {
	arr, ok := container.([]any)
	if !ok || !seg.IsIndex || seg.Index < 0 || seg.Index > len(arr) {
		return nil, fmt.Errorf("%w: %s", ErrPathConflict, seg)
	}
	out := make([]any, 0, len(arr)+1)
	out = append(out, arr[:seg.Index]...)
	out = append(out, value)
	return append(out, arr[seg.Index:]...), nil
}

// Clone deep-copies a JSON tree.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[k] = Clone(v)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = Clone(v)
		}
		return out
	default:
		return v
	}
}
