// Package memtier implements the Memory Tier from spec.md §4.2: a thin
// concurrency envelope around [lrumap.Map].
//
// Tier itself does no ordering — per spec.md §4.2 and §5 it is "serialized
// against an operation queue" owned by its caller (the Composite Cache's
// [github.com/calvinalkan/duocache/internal/opqueue.Queue]). Tier's methods
// are plain, synchronous, and safe for concurrent use because [lrumap.Map]
// guards its own state; the Composite Cache is what gives them their
// place in submission order.
package memtier

import "github.com/calvinalkan/duocache/internal/lrumap"

// Tier is the Memory Tier for values of type V under keys of type K.
type Tier[K comparable, V any] struct {
	lru *lrumap.Map[K, V]
}

// New returns a Memory Tier with the given entry-count and total-cost
// limits (0 disables a limit). Cost for an entry is the byte length when V
// is []byte, and 0 otherwise, per spec.md §4.2.
func New[K comparable, V any](countLimit, totalCostLimit int) *Tier[K, V] {
	return &Tier[K, V]{lru: lrumap.New[K, V](countLimit, totalCostLimit)}
}

// Get returns the current value for key, if present.
func (t *Tier[K, V]) Get(key K) (V, bool) {
	return t.lru.Get(key)
}

// Store inserts or updates key.
func (t *Tier[K, V]) Store(key K, value V) {
	t.lru.Set(key, value, costOf(value))
}

// Remove deletes key, if present.
func (t *Tier[K, V]) Remove(key K) {
	t.lru.Remove(key)
}

// Clear empties the tier.
func (t *Tier[K, V]) Clear() {
	t.lru.Clear()
}

// SetLimits changes the entry-count and total-cost limits. Eviction to
// satisfy new limits happens lazily on the next Store.
func (t *Tier[K, V]) SetLimits(countLimit, totalCostLimit int) {
	t.lru.SetCountLimit(countLimit)
	t.lru.SetCostLimit(totalCostLimit)
}

func costOf[V any](value V) int {
	if b, ok := any(value).([]byte); ok {
		return len(b)
	}

	return 0
}
