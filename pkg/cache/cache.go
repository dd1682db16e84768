// Package cache implements the frame-LRU caches (C4): a generic cache
// keyed by a create_info_t-style struct, specialized for graphics
// pipelines, pipeline layouts, descriptor set layouts, shader modules and
// samplers.
//
// Grounded on original_source/src/Cache.hpp's Cache<T>/PerFrameCache<T>
// templates (colony pool + unordered_map<create_info_t<T>, LRUEntry> +
// shared_mutex), translated to Go generics since Go has no template
// specialization: one generic Cache[K, V] replaces both Cache<T> and
// PerFrameCache<T,FC>, with per-frame semantics expressed by the caller
// passing an increasing frame counter to Acquire/Collect rather than by a
// distinct type.
package cache

import "sync"

// entry is one cached value plus the frame it was last used on, mirroring
// Cache.hpp's LRUEntry{ptr, last_use_frame}.
type entry[V any] struct {
	value        V
	lastUseFrame uint64
}

// Create builds a V from its creation-info key K, returning an error if
// the underlying resource could not be constructed.
type Create[K comparable, V any] func(K) (V, error)

// Destroy releases a V that Collect is evicting.
type Destroy[V any] func(V)

// Cache is a frame-LRU cache from a comparable creation-info key to a
// constructed value. It is the direct Go counterpart of Cache.hpp's
// Cache<T>: a map plus a mutex, no separate "View" type, since Go has no
// equivalent to the source's InflightContext-scoped view and a cache's
// own methods already serialize access.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[V]
	create  Create[K, V]
	destroy Destroy[V]
}

// New constructs a Cache. create builds a value the first time a key is
// seen; destroy (may be nil) releases a value's resources on eviction.
func New[K comparable, V any](create Create[K, V], destroy Destroy[V]) *Cache[K, V] {
	return &Cache[K, V]{entries: make(map[K]*entry[V]), create: create, destroy: destroy}
}

// Acquire returns the cached value for ci, creating it on first use, and
// stamps it with frame as its last-use frame (Cache.hpp's
// View::acquire(create_info_t<T> ci)).
func (c *Cache[K, V]) Acquire(ci K, frame uint64) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[ci]; ok {
		e.lastUseFrame = frame
		return e.value, nil
	}

	v, err := c.create(ci)
	if err != nil {
		var zero V
		return zero, err
	}
	c.entries[ci] = &entry[V]{value: v, lastUseFrame: frame}
	return v, nil
}

// Collect evicts every entry whose last-use frame is more than threshold
// frames behind now (Cache.hpp's View::collect(size_t threshold)),
// invoking destroy on each evicted value if one was supplied.
func (c *Cache[K, V]) Collect(now uint64, threshold uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for k, e := range c.entries {
		if now < e.lastUseFrame || now-e.lastUseFrame <= threshold {
			continue
		}
		if c.destroy != nil {
			c.destroy(e.value)
		}
		delete(c.entries, k)
		evicted++
	}
	return evicted
}

// Len reports the number of live entries, mainly for tests and metrics.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear evicts every entry, invoking destroy on each if supplied.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroy != nil {
		for _, e := range c.entries {
			c.destroy(e.value)
		}
	}
	c.entries = make(map[K]*entry[V])
}
