package storage

import (
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/eugenenazirov/strata/internal/value"
)

// Loader resolves configuration keys; *finder.Finder satisfies it.
type Loader interface {
	Load(key string) (any, error)
	AllKeyNames() ([]string, error)
}

// Cache memoizes a Loader. With alwaysReload every call goes to the loader.
// Concurrent misses for the same key share one load. Cached values that are
// not frozen are handed out as deep copies so callers can never alter what
// the next caller sees. A load that overlaps a Reset is returned to its
// callers but never stored.
type Cache struct {
	loader       Loader
	store        Storage
	alwaysReload bool
	group        singleflight.Group

	mu         sync.Mutex
	generation uint64
}

// NewCache wraps loader with store.
func NewCache(loader Loader, store Storage, alwaysReload bool) *Cache {
	return &Cache{
		loader:       loader,
		store:        store,
		alwaysReload: alwaysReload,
	}
}

// Load returns the value for key, resolving it on a miss. Errors are never cached.
func (c *Cache) Load(key string) (any, error) {
	if c.alwaysReload {
		return c.loader.Load(key)
	}
	if v, ok := c.store.Get(key); ok {
		return handOut(v), nil
	}

	gen := c.currentGeneration()
	flight := strconv.FormatUint(gen, 10) + "/" + key
	v, err, _ := c.group.Do(flight, func() (any, error) {
		loaded, err := c.loader.Load(key)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.generation == gen {
			c.store.Set(key, loaded)
		}
		c.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	return handOut(v), nil
}

// AllKeyNames passes through to the loader; key listings are not cached.
func (c *Cache) AllKeyNames() ([]string, error) {
	return c.loader.AllKeyNames()
}

// Cached returns the keys currently held.
func (c *Cache) Cached() []string {
	return c.store.Keys()
}

// Reset drops every cached value so the next Load re-reads the sources.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.generation++
	c.store.Reset()
	c.mu.Unlock()
}

func (c *Cache) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

func handOut(v any) any {
	switch t := v.(type) {
	case *value.Map:
		if t.Frozen() {
			return t
		}
		return t.Clone()
	case *value.List:
		if t.Frozen() {
			return t
		}
		return t.Clone()
	default:
		return v
	}
}
