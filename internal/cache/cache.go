// Package cache provides a small in-process TTL cache for forwarded query
// results. The gateway is a single-binary, often stdio-launched process, so
// the cache is per-process by design; entries are keyed by a hash of the
// sanitized query text plus its variables.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

// Cache is a TTL-bounded map safe for concurrent use. A nil *Cache is a
// valid no-op cache, which keeps call sites free of enabled checks.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	entries map[string]entry
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// New creates a cache with the given TTL. maxSize bounds the number of live
// entries; when full, expired entries are evicted first and the insert is
// dropped if none are.
func New(ttl time.Duration, maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &Cache{
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[string]entry),
	}
}

// Key derives a cache key from a sanitized query and its variables.
func Key(query string, variables map[string]interface{}) string {
	h := sha256.New()
	h.Write([]byte(query))
	if len(variables) > 0 {
		// Map iteration order does not matter for correctness here, only
		// for hit rate, so the variables are marshaled through json which
		// sorts object keys.
		if b, err := json.Marshal(variables); err == nil {
			h.Write(b)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached value for key, or nil if absent or expired.
func (c *Cache) Get(key string) []byte {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil
	}
	return e.value
}

// Set stores a value under key for the cache's TTL.
func (c *Cache) Set(key string, value []byte) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.evictExpiredLocked()
		if len(c.entries) >= c.maxSize {
			return
		}
	}
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(c.ttl)}
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictExpiredLocked() {
	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
