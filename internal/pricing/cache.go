// Package pricing provides price caching functionality.
package pricing

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Cache is a thread-safe store of resolved prices with per-entry TTLs.
// Entries expire passively: an expired entry is treated as absent on read.
// Entries are immutable once written; a key collision overwrites.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	price     *NormalizedPrice
	expiresAt time.Time
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// CacheKey builds the composite lookup key for a query. Lower-cased and
// trimmed so casing or whitespace variance cannot produce duplicate
// entries; provider-namespaced so keys cannot collide across providers.
func CacheKey(provider Provider, identifier, region string) string {
	return fmt.Sprintf("%s:%s:%s",
		provider,
		strings.ToLower(strings.TrimSpace(identifier)),
		strings.ToLower(strings.TrimSpace(region)))
}

// Get returns the cached price for key, or false if absent or expired.
func (c *Cache) Get(key string) (*NormalizedPrice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[key]; ok {
		if time.Now().Before(e.expiresAt) {
			return e.price, true
		}
	}
	return nil, false
}

// Set stores a price under key for ttl.
func (c *Cache) Set(key string, price *NormalizedPrice, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{price: price, expiresAt: time.Now().Add(ttl)}
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes expired entries and returns how many were released.
// Correctness does not depend on it; it only bounds memory between reads.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// StartSweeper launches a background goroutine that sweeps at each
// interval until stop is closed.
func (c *Cache) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Sweep()
			case <-stop:
				return
			}
		}
	}()
}
