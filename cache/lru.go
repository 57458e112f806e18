package cache

import (
	"fmt"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// LRU is a bounded Key→value store with least-recently-written eviction.
//
// Contract:
//   - Concurrency: safe for concurrent use; every method is one critical section.
//   - Recency: only Put marks an entry as most recent. Get and Contains never
//     reorder, so reads alone do not protect an entry from eviction.
//   - Capacity: Len() <= Cap() after every operation.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	store    *simplelru.LRU[Key, V]

	// Set by onEvict while mu is held.
	evictedKey Key
	evicted    bool
}

// NewLRU creates an LRU holding at most capacity entries.
func NewLRU[V any](capacity int) (*LRU[V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}

	c := &LRU[V]{capacity: capacity}
	store, err := simplelru.NewLRU[Key, V](capacity, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to create store: %w", err)
	}
	c.store = store
	return c, nil
}

func (c *LRU[V]) onEvict(key Key, _ V) {
	c.evictedKey, c.evicted = key, true
}

// Get returns the value stored for key without changing recency order.
func (c *LRU[V]) Get(key Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Peek(key)
}

// Put inserts or overwrites key and marks it most recent. If the cache is
// over capacity afterwards, the least recently written entry is evicted.
func (c *LRU[V]) Put(key Key, value V) {
	c.put(key, value)
}

// put is Put reporting which key, if any, was evicted.
func (c *LRU[V]) put(key Key, value V) (evicted Key, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictedKey, c.evicted = "", false
	c.store.Add(key, value)
	return c.evictedKey, c.evicted
}

// Contains reports whether key is present without changing recency order.
func (c *LRU[V]) Contains(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Contains(key)
}

// Len returns the number of entries.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Len()
}

// Cap returns the configured capacity.
func (c *LRU[V]) Cap() int {
	return c.capacity
}

// Keys returns the keys from least to most recently written.
func (c *LRU[V]) Keys() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Keys()
}

// Clear removes every entry.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Purge()
}
