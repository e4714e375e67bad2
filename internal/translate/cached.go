package translate

import (
	"context"
	"fmt"
	"time"

	"localesync/internal/cache"
	"localesync/internal/locale"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
)

// Cached wraps a provider so identical strings and language catalogs are
// fetched once per TTL.
type Cached struct {
	inner        Provider
	strings      *cache.Cache[string]
	languages    *cache.Cache[[]string]
	stringTTL    time.Duration
	languagesTTL time.Duration
	logger       *zap.Logger
}

type CachedOptions struct {
	StringTTL    time.Duration
	LanguagesTTL time.Duration
	Logger       *zap.Logger
}

func NewCached(inner Provider, strs *cache.Cache[string], langs *cache.Cache[[]string], opts CachedOptions) *Cached {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Cached{
		inner:        inner,
		strings:      strs,
		languages:    langs,
		stringTTL:    opts.StringTTL,
		languagesTTL: opts.LanguagesTTL,
		logger:       opts.Logger,
	}
}

func (c *Cached) Name() string { return c.inner.Name() }

// Key is the cache key of one translated string
func Key(provider, source, target, value string) string {
	return fmt.Sprintf("tr:%s:%s:%s:%016x", provider, source, target, xxh3.HashString(value))
}

// TranslateBatch serves cached strings and sends only the misses to the
// wrapped provider, in one call.
func (c *Cached) TranslateBatch(ctx context.Context, values []string, source, target string) ([]string, error) {
	out := make([]string, len(values))
	missIdx := make(map[string][]int)
	var misses []string

	for i, v := range values {
		if t, ok := c.strings.Get(Key(c.Name(), source, target, v)); ok {
			out[i] = t
			continue
		}
		if _, seen := missIdx[v]; !seen {
			misses = append(misses, v)
		}
		missIdx[v] = append(missIdx[v], i)
	}

	if len(misses) == 0 {
		c.logger.Debug("translations served from cache", zap.Int("count", len(values)))
		return out, nil
	}

	translated, err := c.inner.TranslateBatch(ctx, misses, source, target)
	if err != nil {
		return nil, err
	}
	if err := checkCount(translated, len(misses)); err != nil {
		return nil, err
	}

	for i, v := range misses {
		for _, idx := range missIdx[v] {
			out[idx] = translated[i]
		}
		if err := c.strings.Set(Key(c.Name(), source, target, v), translated[i], c.stringTTL); err != nil {
			c.logger.Warn("caching translation", zap.Error(err))
		}
	}
	return out, nil
}

// SupportedLanguages returns the wrapped provider's catalog, or nil when it
// does not publish one.
func (c *Cached) SupportedLanguages(ctx context.Context) ([]string, error) {
	lister, ok := c.inner.(LanguageLister)
	if !ok {
		return nil, nil
	}
	return c.languages.GetOrFetch(ctx, "languages:"+c.Name(), c.languagesTTL, lister.SupportedLanguages)
}

// Supports reports whether p accepts target. Providers without a catalog,
// or with an empty one, are assumed to accept everything.
func Supports(ctx context.Context, p Provider, target string) (bool, error) {
	lister, ok := p.(LanguageLister)
	if !ok {
		return true, nil
	}
	codes, err := lister.SupportedLanguages(ctx)
	if err != nil {
		return false, err
	}
	if len(codes) == 0 {
		return true, nil
	}

	base := locale.Base(target)
	for _, code := range codes {
		if code == target || code == base {
			return true, nil
		}
	}
	return false, nil
}
