package market

import (
	"sync"
	"time"

	"goldwallet/types"
)

// Cache holds fetched market snapshots for a bounded time so repeated load
// cycles do not hammer the backend. It is injected into the client as a
// collaborator; a nil *Cache disables caching entirely.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	quotes  map[string]types.Quote
	fetched time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached snapshot under key if it is still fresh.
func (c *Cache) Get(key string) (map[string]types.Quote, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.fetched) >= c.ttl {
		return nil, false
	}
	return e.quotes, true
}

// Put stores a snapshot under key, stamping it with the current time.
func (c *Cache) Put(key string, quotes map[string]types.Quote) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{quotes: quotes, fetched: c.now()}
}

// Clear drops every cached snapshot, forcing the next fetch to hit the
// backend.
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
