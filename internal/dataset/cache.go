package dataset

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"salary-dashboard/internal/models"
)

// Key identifies a loader configuration for memoization.
type Key struct {
	RemoteURL string
	LocalPath string
}

// String quotes both fields so distinct keys never collide.
func (k Key) String() string {
	return fmt.Sprintf("%q|%q", k.RemoteURL, k.LocalPath)
}

// Source produces a Dataset for a given Key.
type Source interface {
	Key() Key
	Load(ctx context.Context) (*models.Dataset, error)
}

// Cache memoizes loaded datasets per Key for the lifetime of the value.
// Concurrent first loads of one Key share a single fetch. Failed loads are
// not memoized.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]*models.Dataset
	group   singleflight.Group
}

func NewCache() *Cache {
	return &Cache{entries: make(map[Key]*models.Dataset)}
}

// Load returns the memoized Dataset for src, loading it on first use.
func (c *Cache) Load(ctx context.Context, src Source) (*models.Dataset, error) {
	key := src.Key()
	if ds, ok := c.Get(key); ok {
		return ds, nil
	}

	return c.shared(ctx, "load:"+key.String(), func(loadCtx context.Context) (*models.Dataset, error) {
		if ds, ok := c.Get(key); ok {
			return ds, nil
		}
		return src.Load(loadCtx)
	}, key)
}

// Refresh reloads src and replaces the memoized entry only on success.
func (c *Cache) Refresh(ctx context.Context, src Source) (*models.Dataset, error) {
	key := src.Key()
	return c.shared(ctx, "refresh:"+key.String(), src.Load, key)
}

// shared runs load once for all concurrent callers of flight. The load is
// detached from any single caller's cancellation; the Source bounds it with
// its own timeout. A caller whose ctx ends stops waiting without affecting
// the others.
func (c *Cache) shared(ctx context.Context, flight string, load func(context.Context) (*models.Dataset, error), key Key) (*models.Dataset, error) {
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flight, func() (any, error) {
		ds, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.Store(key, ds)
		return ds, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.Dataset), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) Get(key Key) (*models.Dataset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ds, ok := c.entries[key]
	return ds, ok
}

func (c *Cache) Store(key Key, ds *models.Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = ds
}

// Reset forgets every memoized dataset.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]*models.Dataset)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
