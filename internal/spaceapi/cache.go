package spaceapi

import (
	"sync"
	"time"
)

type cacheEntry struct {
	result    Result
	createdAt time.Time
}

// Cache memoizes demographic fetches per rounded query point. Entries expire
// lazily after the TTL; when the map outgrows maxEntries the oldest-inserted
// key is evicted. Safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	order      []string
	ttl        time.Duration
	maxEntries int
	disabled   bool
	now        func() time.Time
}

func NewCache(ttl time.Duration, maxEntries int, disabled bool) *Cache {
	return &Cache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		disabled:   disabled,
		now:        time.Now,
	}
}

// GetOrFetch returns the cached result for key, calling fetch on a miss.
// The second return reports whether the result came from cache. A fetch
// error is returned as-is and nothing is stored.
func (c *Cache) GetOrFetch(key string, fetch func() (Result, error)) (Result, bool, error) {
	if c.disabled {
		result, err := fetch()
		return result, false, err
	}

	if result, ok := c.lookup(key); ok {
		return result, true, nil
	}

	result, err := fetch()
	if err != nil {
		return Result{}, false, err
	}

	c.store(key, result)
	return result, false, nil
}

// Len reports the number of live entries, counting expired ones until they
// are touched.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) lookup(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}
	if c.now().Sub(entry.createdAt) >= c.ttl {
		c.remove(key)
		return Result{}, false
	}
	return entry.result, true
}

func (c *Cache) store(key string, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A fresh fetch replaces the entry rather than updating it in place
	if _, ok := c.entries[key]; ok {
		c.remove(key)
	}

	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.remove(c.order[0])
	}

	c.entries[key] = cacheEntry{result: result, createdAt: c.now()}
	c.order = append(c.order, key)
}

// remove expects c.mu to be held.
func (c *Cache) remove(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
