// Package lru provides a generic thread-safe LRU cache with optional
// per-entry expiry.
package lru

import (
	"sync"
	"sync/atomic"
	"time"
)

// entry is a doubly-linked list node holding a key-value pair.
type entry[K comparable, V any] struct {
	expiresAt time.Time
	key       K
	value     V
	prev      *entry[K, V]
	next      *entry[K, V]
}

// Cache is a thread-safe generic LRU cache.
// Entries are evicted when the entry limit is reached, least recently used
// first, and are treated as absent once their TTL has elapsed.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[K, V]
	head    *entry[K, V] // Most recently used.
	tail    *entry[K, V] // Least recently used.

	now        func() time.Time
	ttl        time.Duration
	maxEntries int

	// Metrics (atomic for lock-free reads).
	hits    atomic.Int64
	misses  atomic.Int64
	expired atomic.Int64
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithMaxEntries sets the maximum number of entries (count-based eviction).
func WithMaxEntries[K comparable, V any](n int) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.maxEntries = n
	}
}

// WithTTL sets how long an entry stays valid after it was put.
// Zero means entries never expire.
func WithTTL[K comparable, V any](ttl time.Duration) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.ttl = ttl
	}
}

// WithClock overrides the time source used for expiry.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.now = now
	}
}

// New creates a new LRU cache. WithMaxEntries must be provided with a
// positive value; otherwise New panics.
func New[K comparable, V any](opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		entries: make(map[K]*entry[K, V]),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.maxEntries <= 0 {
		panic("lru: a positive WithMaxEntries limit is required")
	}

	return c
}

// Len returns the number of entries in the cache, including expired entries
// that have not been looked up since they expired.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
