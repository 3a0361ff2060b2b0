package registry

import (
	"errors"
	"fmt"
	"iter"
	"sync"
)

var (
	// ErrDuplicate is returned by Add when the key is already registered.
	ErrDuplicate = errors.New("duplicate key")

	// ErrNotFound is returned by Lookup for unknown keys.
	ErrNotFound = errors.New("key not found")
)

// Registry is a thread-safe registry for values indexed by key.
// It uses sync.RWMutex for read-heavy workloads.
type Registry[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
	order   []K
}

// New creates a new empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]V),
	}
}

// Add registers value under key. Keys are unique; adding an existing key
// fails with ErrDuplicate and leaves the first value in place.
func (r *Registry[K, V]) Add(key K, value V) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[key]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicate, key)
	}
	r.entries[key] = value
	r.order = append(r.order, key)
	return nil
}

// Get returns the value for a key and whether it exists.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// Lookup returns the value for a key or an error wrapping ErrNotFound.
func (r *Registry[K, V]) Lookup(key K) (V, error) {
	v, ok := r.Get(key)
	if !ok {
		return v, fmt.Errorf("%w: %v", ErrNotFound, key)
	}
	return v, nil
}

// Has returns true if the key exists in the registry.
func (r *Registry[K, V]) Has(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[key]
	return ok
}

// Keys returns all keys in insertion order.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]K, len(r.order))
	copy(keys, r.order)
	return keys
}

// Len returns the number of entries in the registry.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// All iterates over a snapshot of the registry in insertion order.
func (r *Registry[K, V]) All() iter.Seq2[K, V] {
	r.mu.RLock()
	keys := make([]K, len(r.order))
	copy(keys, r.order)
	values := make([]V, len(keys))
	for i, k := range keys {
		values[i] = r.entries[k]
	}
	r.mu.RUnlock()

	return func(yield func(K, V) bool) {
		for i, k := range keys {
			if !yield(k, values[i]) {
				return
			}
		}
	}
}

// Clone returns a new registry with the same keys, in the same order, and
// each value passed through fn.
func (r *Registry[K, V]) Clone(fn func(V) V) *Registry[K, V] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := &Registry[K, V]{
		entries: make(map[K]V, len(r.entries)),
		order:   make([]K, len(r.order)),
	}
	copy(c.order, r.order)
	for k, v := range r.entries {
		c.entries[k] = fn(v)
	}
	return c
}
