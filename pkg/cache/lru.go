package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/uistream/errors"
)

// EvictCallback is invoked with the key and value of every evicted entry
type EvictCallback[V any] func(key string, value V)

// Stats tracks cache effectiveness. Always on; counters are atomic.
type Stats struct {
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// Hits returns the hit count
func (s *Stats) Hits() int64 { return s.hits.Load() }

// Misses returns the miss count
func (s *Stats) Misses() int64 { return s.misses.Load() }

// Evictions returns the eviction count
func (s *Stats) Evictions() int64 { return s.evictions.Load() }

// lruEntry represents an entry in the LRU cache
type lruEntry[V any] struct {
	key   string
	value V
}

// LRU is a thread-safe least-recently-used cache. When the maximum size is
// exceeded the least recently accessed entry is evicted; Get refreshes an
// entry's recency.
type LRU[V any] struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List // most recently used at front
	stats   Stats
	evictFn EvictCallback[V]

	size prometheus.Gauge // optional
}

// Option configures an LRU
type Option[V any] func(*LRU[V])

// WithEvictCallback registers a callback invoked (outside the lock) for every
// evicted or deleted entry. Used to dispose derived observables.
func WithEvictCallback[V any](fn EvictCallback[V]) Option[V] {
	return func(c *LRU[V]) { c.evictFn = fn }
}

// WithSizeGauge publishes the entry count to a Prometheus gauge
func WithSizeGauge[V any](g prometheus.Gauge) Option[V] {
	return func(c *LRU[V]) { c.size = g }
}

// NewLRU creates an LRU cache with the given maximum size
func NewLRU[V any](maxSize int, opts ...Option[V]) (*LRU[V], error) {
	if maxSize <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "cache", "NewLRU", "non-positive max size")
	}
	c := &LRU[V]{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get retrieves a value by key and marks it as recently used
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	element, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		c.stats.misses.Add(1)
		var zero V
		return zero, false
	}
	c.order.MoveToFront(element)
	value := element.Value.(*lruEntry[V]).value
	c.mu.Unlock()

	c.stats.hits.Add(1)
	return value, true
}

// Set stores a value, evicting the least recently used entry if the cache is
// full. Returns true when a new entry was created.
func (c *LRU[V]) Set(key string, value V) bool {
	var evicted *lruEntry[V]

	c.mu.Lock()
	if element, exists := c.items[key]; exists {
		element.Value.(*lruEntry[V]).value = value
		c.order.MoveToFront(element)
		c.mu.Unlock()
		return false
	}

	c.items[key] = c.order.PushFront(&lruEntry[V]{key: key, value: value})
	if len(c.items) > c.maxSize {
		evicted = c.removeOldestLocked()
	}
	c.updateSizeLocked()
	c.mu.Unlock()

	if evicted != nil {
		c.stats.evictions.Add(1)
		if c.evictFn != nil {
			c.evictFn(evicted.key, evicted.value)
		}
	}
	return true
}

// Delete removes an entry, invoking the eviction callback for it
func (c *LRU[V]) Delete(key string) bool {
	c.mu.Lock()
	element, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		return false
	}
	entry := element.Value.(*lruEntry[V])
	delete(c.items, key)
	c.order.Remove(element)
	c.updateSizeLocked()
	c.mu.Unlock()

	if c.evictFn != nil {
		c.evictFn(entry.key, entry.value)
	}
	return true
}

// Clear removes all entries, invoking the eviction callback for each
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	var entries []*lruEntry[V]
	if c.evictFn != nil {
		for element := c.order.Back(); element != nil; element = element.Prev() {
			entries = append(entries, element.Value.(*lruEntry[V]))
		}
	}
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.updateSizeLocked()
	c.mu.Unlock()

	for _, entry := range entries {
		c.evictFn(entry.key, entry.value)
	}
}

// Len returns the current number of entries
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns all keys in recency order (most recently used first)
func (c *LRU[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for element := c.order.Front(); element != nil; element = element.Next() {
		keys = append(keys, element.Value.(*lruEntry[V]).key)
	}
	return keys
}

// Stats returns the cache statistics
func (c *LRU[V]) Stats() *Stats {
	return &c.stats
}

// removeOldestLocked removes the least recently used entry and returns it.
// Must be called with the lock held.
func (c *LRU[V]) removeOldestLocked() *lruEntry[V] {
	element := c.order.Back()
	if element == nil {
		return nil
	}
	entry := element.Value.(*lruEntry[V])
	delete(c.items, entry.key)
	c.order.Remove(element)
	return entry
}

// updateSizeLocked pushes the entry count to the optional gauge.
// Must be called with the lock held.
func (c *LRU[V]) updateSizeLocked() {
	if c.size != nil {
		c.size.Set(float64(len(c.items)))
	}
}
