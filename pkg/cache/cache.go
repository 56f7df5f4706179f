// Package cache provides a thread-safe in-memory cache with TTL support.
package cache

import (
	"sync"
	"time"
)

const cleanupInterval = 5 * time.Minute

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a thread-safe in-memory cache with per-entry expiration.
type Cache struct {
	entries map[string]entry
	mu      sync.RWMutex
	ttl     time.Duration
}

// New creates a cache with the given default TTL and starts a background
// sweeper for expired entries.
func New(ttl time.Duration) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
	}
	go c.sweep()
	return c
}

// Get retrieves a value if present and not expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Set stores a value with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
}

// Delete removes a key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// sweep periodically removes expired entries.
func (c *Cache) sweep() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.mu.Lock()
		for key, e := range c.entries {
			if now.After(e.expiresAt) {
				delete(c.entries, key)
			}
		}
		c.mu.Unlock()
	}
}
