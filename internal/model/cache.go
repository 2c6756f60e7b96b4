package model

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// ModelLoader produces a fresh Model.
type ModelLoader interface {
	Load(ctx context.Context) (Model, error)
}

const cacheKey = "model"

// Cache holds the single process-wide model. The first Get loads it and
// concurrent first callers wait for that same load. Failed loads are not
// cached, so the next Get tries again.
type Cache struct {
	loader ModelLoader
	group  singleflight.Group
	model  Model
	mu     sync.RWMutex
	loads  atomic.Uint64
}

// NewCache creates an empty cache backed by loader.
func NewCache(loader ModelLoader) *Cache {
	return &Cache{loader: loader}
}

// Get returns the cached model, loading it on first use. A cached model
// that reports itself unhealthy is closed and replaced.
func (c *Cache) Get(ctx context.Context) (Model, error) {
	if m := c.current(); m != nil && healthy(m) {
		return m, nil
	}

	v, err, shared := c.group.Do(cacheKey, func() (any, error) {
		if m := c.current(); m != nil {
			if healthy(m) {
				return m, nil
			}
			slog.Warn("Cached model is unhealthy, loading it again")
			c.evict(m)
		}

		count := c.loads.Add(1)
		slog.Debug("Model cache miss", "load", count)

		// The load is shared by every waiting caller, so one caller going
		// away must not abort it.
		m, err := c.loader.Load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.model = m
		c.mu.Unlock()

		return m, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("Model load shared with concurrent callers")
	}

	return v.(Model), nil
}

// Clear drops the cached model and closes it. The next Get loads again.
func (c *Cache) Clear() error {
	c.mu.Lock()
	old := c.model
	c.model = nil
	c.mu.Unlock()

	if old == nil {
		return nil
	}

	slog.Info("Model cache cleared")
	return old.Close()
}

// Loaded reports whether a healthy model is cached.
func (c *Cache) Loaded() bool {
	m := c.current()
	return m != nil && healthy(m)
}

// Loads returns how many times the loader has been invoked.
func (c *Cache) Loads() uint64 {
	return c.loads.Load()
}

func (c *Cache) evict(m Model) {
	c.mu.Lock()
	if c.model == m {
		c.model = nil
	}
	c.mu.Unlock()

	if err := m.Close(); err != nil {
		slog.Warn("Failed to close unhealthy model", "error", err)
	}
}

func (c *Cache) current() Model {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.model
}
