package deps

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/mod/module"
	"golang.org/x/sync/singleflight"
)

// Cache memoizes dependency resolutions for the life of the process. It is
// safe for concurrent use; concurrent misses for the same module collapse
// into a single fetch. Failures, fetch timeouts included, are cached too, so
// a module is attempted at most once. A caller's own cancellation or deadline
// is never cached.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

type cacheEntry struct {
	res Resolved
	err error
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

func cacheKey(mod module.Version) string { return mod.Path + "@" + mod.Version }

// Lookup returns a previously resolved module.
func (c *Cache) Lookup(mod module.Version) (Resolved, error, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[cacheKey(mod)]
	return e.res, e.err, ok
}

// Len returns the number of cached modules, failures included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// do returns the cached entry for mod or runs fn exactly once to build it.
// The build runs detached from ctx so one caller giving up does not fail the
// callers sharing it; each caller still returns ctx.Err() when ctx ends first.
// cached is true when the result did not come from this caller's fn run.
func (c *Cache) do(ctx context.Context, mod module.Version, fn func(context.Context) (Resolved, error)) (res Resolved, err error, cached bool) {
	key := cacheKey(mod)
	if r, e, ok := c.Lookup(mod); ok {
		return r, e, true
	}
	buildCtx := context.WithoutCancel(ctx)
	var ran atomic.Bool
	ch := c.group.DoChan(key, func() (any, error) {
		// a racing caller may have finished between Lookup and DoChan
		if r, e, ok := c.Lookup(mod); ok {
			return r, e
		}
		ran.Store(true)
		r, e := fn(buildCtx)
		if errors.Is(e, context.Canceled) {
			return r, e
		}
		c.mu.Lock()
		c.entries[key] = cacheEntry{res: r, err: e}
		c.mu.Unlock()
		return r, e
	})
	select {
	case <-ctx.Done():
		return Resolved{}, ctx.Err(), false
	case out := <-ch:
		res, _ = out.Val.(Resolved)
		return res, out.Err, !ran.Load()
	}
}
