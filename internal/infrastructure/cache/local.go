package cache

import (
	"sync"
)

// LocalCache memoizes pre-serialized payloads for the hottest read
// endpoints in process memory. It has no TTL: an entry stays fresh only
// because the invalidation orchestrator clears it, so every write path
// that can affect a locally cached endpoint must publish a change event.
//
// Each process instance owns its own LocalCache; there is no cross-instance
// broadcast, which is an accepted staleness risk in multi-instance
// deployments.
type LocalCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewLocalCache creates an empty hot-key cache.
func NewLocalCache() *LocalCache {
	return &LocalCache{entries: make(map[string][]byte)}
}

// Get returns the memoized payload for key, if present.
func (c *LocalCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	payload, ok := c.entries[key]
	return payload, ok
}

// Put memoizes payload under key. Nil payloads are ignored.
func (c *LocalCache) Put(key string, payload []byte) {
	if key == "" || payload == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = payload
}

// Clear drops every entry. Invalidation is all-or-nothing here: the hot-key
// set is tiny and selective eviction is not worth tracking dimensions for.
func (c *LocalCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]byte)
}

// Len reports the number of memoized entries.
func (c *LocalCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
