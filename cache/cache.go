package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/use-agent/shopsavvy/aggregator"
)

// entry holds a cached search result with its creation timestamp.
type entry struct {
	result    *aggregator.Result
	createdAt time.Time
}

// Cache is a simple in-memory cache of raw aggregator results, before any
// caller-side filtering. It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	retention  time.Duration
	now        func() time.Time
	done       chan struct{}
	closeOnce  sync.Once
}

// New creates a Cache holding at most maxEntries results. A background
// goroutine drops entries older than retention every five minutes until
// Close is called.
func New(maxEntries int, retention time.Duration) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: max(maxEntries, 1),
		retention:  retention,
		now:        time.Now,
		done:       make(chan struct{}),
	}

	go c.cleanupLoop(5 * time.Minute)
	return c
}

// Key normalises a query so "Samsung  TV" and "samsung tv" share an entry.
func Key(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// Get returns a cached result younger than maxAge and its age.
// If maxAge <= 0, no cache lookup is performed.
func (c *Cache) Get(key string, maxAge time.Duration) (*aggregator.Result, time.Duration, bool) {
	if maxAge <= 0 {
		return nil, 0, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok {
		return nil, 0, false
	}

	age := c.now().Sub(e.createdAt)
	if age > maxAge {
		return nil, 0, false
	}
	return e.result, age, true
}

// Set stores a result. If the cache is at capacity, a random entry is
// evicted to make room.
func (c *Cache) Set(key string, res *aggregator.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Map iteration order is random in Go.
	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{
		result:    res,
		createdAt: c.now(),
	}
}

// Size returns the number of cached results.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Cache) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.purge()
		}
	}
}

// purge drops entries older than the retention window.
func (c *Cache) purge() {
	cutoff := c.now().Add(-c.retention)
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
}
