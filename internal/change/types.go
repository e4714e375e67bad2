// internal/change/types.go
package change

import "context"

// Context carries one detected change through a handler chain
type Context struct {
	Path     string
	Category string
	// Raw is the new file content; nil when the event carried none
	Raw     []byte
	EventID string

	// Stages may leave results for later stages
	Values map[string]any
}

// Set stores a value for later stages
func (c *Context) Set(key string, v any) {
	if c.Values == nil {
		c.Values = make(map[string]any)
	}
	c.Values[key] = v
}

// Get returns a value left by an earlier stage
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.Values[key]
	return v, ok
}

// Handler is one stage of a chain. Returning false stops the chain.
type Handler interface {
	Process(ctx context.Context, c *Context) (bool, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, c *Context) (bool, error)

func (f HandlerFunc) Process(ctx context.Context, c *Context) (bool, error) {
	return f(ctx, c)
}

// Namer is implemented by handlers that want a readable name in logs
type Namer interface {
	Name() string
}
