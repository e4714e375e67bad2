// Package cache mirrors provider lookups (language catalogs, translated
// strings) in memory on top of a durable key-value store.
//
// TTL semantics for Set:
//   - Positive duration: the entry is valid while now - timestamp < ttl
//   - Zero: the cache's default TTL is used
//   - Negative: the entry never expires
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"localesync/internal/storage"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/raulk/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Entry is a cached value and the time it was stored
type Entry[T any] struct {
	Value     T
	Timestamp time.Time
	TTL       time.Duration
}

func (e Entry[T]) validAt(now time.Time) bool {
	if e.TTL < 0 {
		return true
	}
	return now.Sub(e.Timestamp) < e.TTL
}

// persisted is what goes into the durable store; the timestamp comes from
// the store's own record.
type persisted[T any] struct {
	Value T             `json:"value"`
	TTL   time.Duration `json:"ttl"`
}

type Options struct {
	// Number of entries kept in memory
	Size       int
	DefaultTTL time.Duration
	// Durable may be nil for a memory-only cache
	Durable storage.KV
	Clock   clock.Clock
	Logger  *zap.Logger
}

type Cache[T any] struct {
	mem        *lru.Cache[string, Entry[T]]
	durable    storage.KV
	defaultTTL time.Duration
	clock      clock.Clock
	group      singleflight.Group
	logger     *zap.Logger
}

func New[T any](opts Options) (*Cache[T], error) {
	if opts.Size <= 0 {
		opts.Size = 1024
	}
	if opts.DefaultTTL == 0 {
		opts.DefaultTTL = 24 * time.Hour
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	mem, err := lru.New[string, Entry[T]](opts.Size)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	return &Cache[T]{
		mem:        mem,
		durable:    opts.Durable,
		defaultTTL: opts.DefaultTTL,
		clock:      opts.Clock,
		logger:     opts.Logger,
	}, nil
}

// Get returns the cached value for key. Stale entries are misses.
func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T
	now := c.clock.Now()

	// Check memory first
	if e, ok := c.mem.Get(key); ok {
		if e.validAt(now) {
			return e.Value, true
		}
		c.mem.Remove(key)
	}

	if c.durable == nil {
		return zero, false
	}

	rec, ok, err := c.durable.Get(key)
	if err != nil {
		c.logger.Warn("reading durable cache", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	if !ok {
		return zero, false
	}

	var p persisted[T]
	if err := json.Unmarshal(rec.Value, &p); err != nil {
		c.logger.Warn("decoding durable cache entry", zap.String("key", key), zap.Error(err))
		return zero, false
	}

	e := Entry[T]{Value: p.Value, Timestamp: rec.Timestamp, TTL: p.TTL}
	if !e.validAt(now) {
		return zero, false
	}

	c.mem.Add(key, e)
	return e.Value, true
}

// Set stores value under key, replacing any previous entry.
func (c *Cache[T]) Set(key string, value T, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	c.mem.Add(key, Entry[T]{Value: value, Timestamp: c.clock.Now(), TTL: ttl})

	if c.durable == nil {
		return nil
	}

	data, err := json.Marshal(persisted[T]{Value: value, TTL: ttl})
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	if err := c.durable.Set(key, data); err != nil {
		return fmt.Errorf("writing cache entry %s: %w", key, err)
	}
	return nil
}

// GetOrFetch returns the cached value or calls fetch on a miss and caches
// its result. Concurrent misses for the same key share one fetch.
func (c *Cache[T]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		val, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(key, val, ttl); err != nil {
			// The fetched value is still good; only persistence failed
			c.logger.Warn("caching fetched value", zap.String("key", key), zap.Error(err))
		}
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Purge drops every in-memory entry. Durable records are left alone.
func (c *Cache[T]) Purge() {
	c.mem.Purge()
}
