// internal/content/types.go
package content

import "time"

// Meta is what the workspace knows about a path before reading it
type Meta struct {
	Category  string `json:"category"`
	Locale    string `json:"locale,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// Resolver classifies a path. Paths it cannot place get an empty Meta.
type Resolver interface {
	Resolve(path string) Meta
}

// ResolverFunc adapts a function to Resolver
type ResolverFunc func(path string) Meta

func (f ResolverFunc) Resolve(path string) Meta { return f(path) }

// File is the parsed content of one tracked file
type File struct {
	Meta
	Path      string    `json:"path"`
	Content   any       `json:"content"`
	Raw       []byte    `json:"-"`
	Hash      uint64    `json:"hash"`
	UpdatedAt time.Time `json:"updated_at"`
}
