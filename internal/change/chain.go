// internal/change/chain.go
package change

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Chain is a linked, ordered list of handlers. Each link runs its handler
// and forwards to its successor only when the handler says to continue.
type Chain struct {
	handler Handler
	next    *Chain
	logger  *zap.Logger
}

// NewChain links handlers in the given order and returns the head
func NewChain(logger *zap.Logger, handlers ...Handler) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(handlers) == 0 {
		return nil
	}

	head := &Chain{handler: handlers[0], logger: logger}
	tail := head
	for _, h := range handlers[1:] {
		tail = tail.SetNext(&Chain{handler: h, logger: logger})
	}
	return head
}

// SetNext sets the successor and returns it so links can be chained
func (c *Chain) SetNext(next *Chain) *Chain {
	c.next = next
	return next
}

// Next returns the successor, or nil at the end of the chain
func (c *Chain) Next() *Chain {
	return c.next
}

// Execute processes cc through the chain. It reports whether every stage
// ran, and returns the first handler error, which also stops the chain.
func (c *Chain) Execute(ctx context.Context, cc *Context) (bool, error) {
	for link := c; link != nil; link = link.next {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		cont, err := link.handler.Process(ctx, cc)
		if err != nil {
			return false, fmt.Errorf("%s: %w", handlerName(link.handler), err)
		}
		if !cont {
			link.logger.Debug("chain stopped",
				zap.String("handler", handlerName(link.handler)),
				zap.String("path", cc.Path),
				zap.String("event_id", cc.EventID))
			return false, nil
		}
	}
	return true, nil
}

// Run is Execute for the watcher: a handler error is logged and never
// reaches the caller.
func (c *Chain) Run(ctx context.Context, cc *Context) bool {
	done, err := c.Execute(ctx, cc)
	if err != nil && ctx.Err() == nil {
		c.logger.Error("change handler failed",
			zap.String("path", cc.Path),
			zap.String("event_id", cc.EventID),
			zap.Error(err))
	}
	return done
}

// Len returns the number of links from c to the end
func (c *Chain) Len() int {
	n := 0
	for link := c; link != nil; link = link.next {
		n++
	}
	return n
}

func handlerName(h Handler) string {
	if n, ok := h.(Namer); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", h)
}

// Registry maps file categories to the chain that handles them. It is
// filled once at startup.
type Registry struct {
	mu     sync.RWMutex
	chains map[string]*Chain
}

func NewRegistry() *Registry {
	return &Registry{chains: make(map[string]*Chain)}
}

func (r *Registry) Register(category string, chain *Chain) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[category] = chain
}

// Get returns the chain for category, or nil
func (r *Registry) Get(category string) *Chain {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chains[category]
}
