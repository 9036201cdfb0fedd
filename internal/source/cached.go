package source

import (
	"context"
	"time"

	"github.com/livetemplate/scrollytell/internal/cache"
)

// Cached serves a dataset's rows from memory until the TTL elapses.
type Cached struct {
	inner Dataset
	cache *cache.Memory[[]Row]
	ttl   time.Duration
}

// NewCached wraps inner.
func NewCached(inner Dataset, c *cache.Memory[[]Row], ttl time.Duration) *Cached {
	return &Cached{inner: inner, cache: c, ttl: ttl}
}

// Name returns the dataset name
func (c *Cached) Name() string {
	return c.inner.Name()
}

// Fetch returns cached rows or loads and caches them. Failures are not
// cached.
func (c *Cached) Fetch(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rows, ok := c.cache.Get(c.key()); ok {
		return rows, nil
	}
	rows, err := c.inner.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(c.key(), rows, c.ttl)
	return rows, nil
}

// Invalidate drops the cached rows.
func (c *Cached) Invalidate() {
	c.cache.Invalidate(c.key())
}

// Close closes the wrapped dataset.
func (c *Cached) Close() error {
	return c.inner.Close()
}

func (c *Cached) key() string {
	return "dataset:" + c.inner.Name()
}
