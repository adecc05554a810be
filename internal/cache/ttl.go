// Package cache provides a small concurrency-safe TTL cache with LRU
// eviction, shared by the price cache and the notification dedup set.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// TTL is a generic bounded cache. Entries expire after the configured TTL;
// an expired entry is treated as a miss and removed on access.
type TTL[K comparable, V any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	entries map[K]*list.Element
	recency *list.List

	// nowFn is swappable in tests.
	nowFn func() time.Time
}

type ttlEntry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// NewTTL creates a cache holding at most maxSize entries, each valid for ttl.
// A ttl of zero means entries never expire (eviction only by capacity).
func NewTTL[K comparable, V any](maxSize int, ttl time.Duration) *TTL[K, V] {
	return &TTL[K, V]{
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[K]*list.Element, maxSize),
		recency: list.New(),
		nowFn:   time.Now,
	}
}

// Get returns the cached value for key if present and fresh.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	e := elem.Value.(*ttlEntry[K, V])
	if !e.expiresAt.IsZero() && c.nowFn().After(e.expiresAt) {
		c.remove(elem)
		return zero, false
	}
	c.recency.MoveToFront(elem)
	return e.value, true
}

// Set stores value under key, resetting its TTL.
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Time{}
	if c.ttl > 0 {
		expiresAt = c.nowFn().Add(c.ttl)
	}

	if elem, ok := c.entries[key]; ok {
		e := elem.Value.(*ttlEntry[K, V])
		e.value = value
		e.expiresAt = expiresAt
		c.recency.MoveToFront(elem)
		return
	}

	for c.maxSize > 0 && c.recency.Len() >= c.maxSize {
		oldest := c.recency.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest)
	}
	c.entries[key] = c.recency.PushFront(&ttlEntry[K, V]{key: key, value: value, expiresAt: expiresAt})
}

// Contains reports whether key is present and fresh without touching recency.
func (c *TTL[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	e := elem.Value.(*ttlEntry[K, V])
	if !e.expiresAt.IsZero() && c.nowFn().After(e.expiresAt) {
		c.remove(elem)
		return false
	}
	return true
}

// Delete removes key if present.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.remove(elem)
	}
}

// Len returns the number of entries, including expired ones not yet evicted.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recency.Len()
}

// SetNowFunc overrides the cache clock. Test hook.
func (c *TTL[K, V]) SetNowFunc(fn func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nowFn = fn
}

func (c *TTL[K, V]) remove(elem *list.Element) {
	c.recency.Remove(elem)
	e := elem.Value.(*ttlEntry[K, V])
	delete(c.entries, e.key)
}
