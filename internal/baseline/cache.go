package baseline

import "sync"

// Cache stores resolved status records for the lifetime of the run.
// Entries never expire; writes are idempotent, so last-write-wins races
// between concurrently completing batches are harmless.
type Cache struct {
	mu      sync.RWMutex
	records map[string]StatusRecord
}

// NewCache creates an empty status cache.
func NewCache() *Cache {
	return &Cache{records: make(map[string]StatusRecord)}
}

// Get returns the cached record for id, if present.
func (c *Cache) Get(id string) (StatusRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[id]
	return rec, ok
}

// Put stores a record for id.
func (c *Cache) Put(id string, rec StatusRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[id] = rec
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
