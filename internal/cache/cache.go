// Package cache provides a small bounded cache for query embeddings.
// Repeated queries skip the embedding provider round trip; entries
// expire so a model change cannot serve stale vectors forever.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Default configuration values.
const (
	DefaultMaxEntries = 1024
	DefaultTTL        = 5 * time.Minute
)

// Cache is an LRU cache with per-entry TTL. All methods are safe for
// concurrent use.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	ll         *list.List
	items      map[string]*list.Element

	// now is replaceable in tests to exercise expiry.
	now func() time.Time
}

type cacheEntry struct {
	key       string
	vector    []float32
	expiresAt time.Time
}

// New creates a cache holding at most maxEntries vectors for at most
// ttl each. Non-positive values fall back to defaults.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Cache{
		maxEntries: maxEntries,
		ttl:        ttl,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
		now:        time.Now,
	}
}

// Get returns the cached vector for key. The returned slice is a copy;
// callers may mutate it freely.
func (c *Cache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if c.now().After(entry.expiresAt) {
		c.removeElement(elem)
		return nil, false
	}

	c.ll.MoveToFront(elem)
	return append([]float32(nil), entry.vector...), true
}

// Put stores a vector under key, evicting the least recently used
// entry when the cache is full.
func (c *Cache) Put(key string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := append([]float32(nil), vector...)
	expiresAt := c.now().Add(c.ttl)

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.vector = stored
		entry.expiresAt = expiresAt
		c.ll.MoveToFront(elem)
		return
	}

	elem := c.ll.PushFront(&cacheEntry{key: key, vector: stored, expiresAt: expiresAt})
	c.items[key] = elem

	if c.ll.Len() > c.maxEntries {
		c.removeElement(c.ll.Back())
	}
}

// Len returns the number of live entries, counting expired ones that
// have not been touched since expiry.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *Cache) removeElement(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	delete(c.items, entry.key)
	c.ll.Remove(elem)
}
