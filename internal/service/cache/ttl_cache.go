package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	v   V
	exp time.Time
}

// TTLCache is a small in-process map with per-key expiry.
type TTLCache[V any] struct {
	mu  sync.RWMutex
	m   map[string]entry[V]
	now func() time.Time
}

func NewTTLCache[V any]() *TTLCache[V] {
	return NewTTLCacheWithClock[V](time.Now)
}

func NewTTLCacheWithClock[V any](now func() time.Time) *TTLCache[V] {
	return &TTLCache[V]{m: make(map[string]entry[V]), now: now}
}

// Get returns the value if present and not expired. Expired entries are kept
// so Peek can still serve them.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok || (!e.exp.IsZero() && c.now().After(e.exp)) {
		var zero V
		return zero, false
	}
	return e.v, true
}

// Peek returns the value even if expired. Used to serve stale data when a refresh fails.
func (c *TTLCache[V]) Peek(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.m[key]
	return e.v, ok
}

func (c *TTLCache[V]) Set(key string, v V, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.m[key] = entry[V]{v: v, exp: exp}
	c.mu.Unlock()
}
