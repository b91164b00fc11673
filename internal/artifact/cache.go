package artifact

import "sync"

// Entry is the cached result of the last changed (HTTP 200) fetch for one
// artifact location. A not-modified response never replaces an Entry; its
// body is reused unchanged.
type Entry struct {
	Location  string
	Validator string // opaque freshness token from the response header
	Body      []byte
}

// EntryCache is an instance-scoped store of one Entry per location.
type EntryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewEntryCache() *EntryCache {
	return &EntryCache{entries: map[string]Entry{}}
}

func (c *EntryCache) Get(location string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[location]
	return e, ok
}

func (c *EntryCache) Put(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[e.Location] = e
}
