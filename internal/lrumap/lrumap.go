// Package lrumap implements the fixed-capacity, cost-aware associative
// container described in spec.md §4.1: a doubly-linked list ordered by
// insertion/update time plus a hash index, evicting from the least-recent
// end until both the entry-count limit and the total-cost limit are
// satisfied.
//
// The shape is grounded on ammario/tlru's lru.go (index map keyed to a
// doubly-linked-list node, coster function, evict-while-over-budget loop),
// generalized from tlru's string-only keys and TTL eviction to duocache's
// comparable generic keys and count+cost eviction (no TTL at this tier).
package lrumap

import (
	"sync"

	"github.com/calvinalkan/duocache/internal/dlist"
)

type entry[K comparable, V any] struct {
	key   K
	value V
	cost  int
}

// Map is a fixed-capacity, cost-limited LRU associative container.
// Safe for concurrent use; all operations hold a single mutex guarding the
// map, the list, and the running totals.
type Map[K comparable, V any] struct {
	mu sync.Mutex

	index map[K]*dlist.Node[entry[K, V]]
	order *dlist.List[entry[K, V]]

	totalCost int

	countLimit     int
	totalCostLimit int
}

// New returns an empty Map. A limit of 0 disables that limit.
func New[K comparable, V any](countLimit, totalCostLimit int) *Map[K, V] {
	return &Map[K, V]{
		index:          make(map[K]*dlist.Node[entry[K, V]]),
		order:          &dlist.List[entry[K, V]]{},
		countLimit:     countLimit,
		totalCostLimit: totalCostLimit,
	}
}

// Get returns the current value for key. It does not refresh recency — per
// spec.md §4.1 recency is updated only on Set, matching the reference
// semantics this type is modeled on.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.index[key]
	if !ok {
		var zero V
		return zero, false
	}

	return node.Data.value, true
}

// Set inserts or updates key, moves it to the most-recently-used end, and
// evicts least-recently-used entries until both limits are satisfied.
// cost is clamped to >= 0. Updating an existing key always refreshes its
// recency, even if value and cost are unchanged.
func (m *Map[K, V]) Set(key K, value V, cost int) {
	if cost < 0 {
		cost = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if node, ok := m.index[key]; ok {
		m.totalCost += cost - node.Data.cost
		node.Data = entry[K, V]{key: key, value: value, cost: cost}
		m.order.MoveToBack(node)
	} else {
		node := m.order.PushBack(entry[K, V]{key: key, value: value, cost: cost})
		m.index[key] = node
		m.totalCost += cost
	}

	m.evictLocked()
}

// Remove unlinks key from the map, if present.
func (m *Map[K, V]) Remove(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(key)
}

// Clear empties the map and resets the total cost to 0.
func (m *Map[K, V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.index = make(map[K]*dlist.Node[entry[K, V]])
	m.order = &dlist.List[entry[K, V]]{}
	m.totalCost = 0
}

// SetCountLimit changes the entry-count limit. Eviction to satisfy it
// happens lazily, on the next Set.
func (m *Map[K, V]) SetCountLimit(limit int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.countLimit = limit
}

// SetCostLimit changes the total-cost limit. Eviction to satisfy it happens
// lazily, on the next Set.
func (m *Map[K, V]) SetCostLimit(limit int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalCostLimit = limit
}

// Len returns the current entry count.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.order.Len()
}

// TotalCost returns the current sum of entry costs.
func (m *Map[K, V]) TotalCost() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.totalCost
}

// Keys returns the current keys in recency order, oldest (next to be
// evicted) first. Intended for tests and diagnostics, not the hot path.
func (m *Map[K, V]) Keys() []K {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]K, 0, m.order.Len())
	for n := m.order.Front(); n != nil; n = n.Next() {
		keys = append(keys, n.Data.key)
	}

	return keys
}

func (m *Map[K, V]) removeLocked(key K) {
	node, ok := m.index[key]
	if !ok {
		return
	}

	m.totalCost -= node.Data.cost
	m.order.Remove(node)
	delete(m.index, key)
}

func (m *Map[K, V]) evictLocked() {
	for {
		overCount := m.countLimit > 0 && m.order.Len() > m.countLimit
		overCost := m.totalCostLimit > 0 && m.totalCost > m.totalCostLimit

		if !overCount && !overCost {
			return
		}

		node, ok := m.order.PopFront()
		if !ok {
			return
		}

		m.totalCost -= node.Data.cost
		delete(m.index, node.Data.key)
	}
}
