// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cache implements the session-scoped result cache for successful
// compute operations. Entries expire after a fixed TTL, the entry count is
// bounded with FIFO eviction, and keys are derived from inputs only after
// every credential field has been stripped. Results from the production trust
// tier are never cached.
package cache

import (
	"sync"
	"time"
)

const (
	// DefaultTTL is the maximum age of a cached result.
	DefaultTTL = 5 * time.Minute
	// DefaultCapacity bounds the number of cached results.
	DefaultCapacity = 50
	// HighestTrustTier is the production-equivalent environment whose
	// results are never cached.
	HighestTrustTier = "production"
)

type entry struct {
	result     map[string]any
	insertedAt time.Time
}

// Cache is a TTL-bounded, size-bounded result store with FIFO eviction.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[string]entry
	// order preserves insertion sequence for FIFO eviction
	order []string
	now   func() time.Time
}

// New creates a cache with the given TTL and capacity.
// Non-positive arguments fall back to the defaults.
func New(ttl time.Duration, capacity int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]entry),
		now:      time.Now,
	}
}

// Cacheable reports whether a result may be stored: the call must have
// succeeded and the input's trust tier must not be the highest one.
func Cacheable(success bool, environment string) bool {
	return success && environment != HighestTrustTier
}

// Get returns the unexpired result for key. An expired entry is deleted and
// reported as a miss.
func (c *Cache) Get(key string) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.insertedAt) > c.ttl {
		c.remove(key)
		return nil, false
	}
	return e.result, true
}

// Put stores a result with every secret-named field stripped; secrets never
// enter the stored value. Expired entries are purged first; if the cache is
// still at capacity, the single oldest-inserted entry is evicted.
func (c *Cache) Put(key string, result map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeExpired()
	if _, ok := c.entries[key]; ok {
		c.remove(key)
	}
	if len(c.entries) >= c.capacity && len(c.order) > 0 {
		c.remove(c.order[0])
	}
	c.entries[key] = entry{result: StripSecrets(result), insertedAt: c.now()}
	c.order = append(c.order, key)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	c.order = nil
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// purgeExpired removes every entry older than the TTL. Caller holds the lock.
func (c *Cache) purgeExpired() {
	now := c.now()
	for key, e := range c.entries {
		if now.Sub(e.insertedAt) > c.ttl {
			c.remove(key)
		}
	}
}

// remove deletes one entry and its order slot. Caller holds the lock.
func (c *Cache) remove(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
