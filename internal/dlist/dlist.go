// Package dlist is a minimal intrusive doubly-linked list used by
// [github.com/calvinalkan/duocache/internal/lrumap] to track recency order.
//
// This mirrors the Node/List split used by the doublelist helper that
// ammario/tlru builds its LRU index on top of: nodes are owned by the
// caller's index (a map), and the list only holds next/prev pointers.
package dlist

// Node is one element of a [List]. The zero value is not usable; obtain
// nodes via [List.PushBack].
type Node[T any] struct {
	Data       T
	next, prev *Node[T]
	list       *List[T]
}

// List is a doubly-linked list with O(1) push, pop, and move-to-back.
type List[T any] struct {
	head, tail *Node[T]
	length     int
}

// Len returns the number of nodes in the list.
func (l *List[T]) Len() int { return l.length }

// Front returns the least-recently-pushed node, or nil if the list is empty.
func (l *List[T]) Front() *Node[T] { return l.head }

// Next returns the node after n, or nil at the back of the list.
func (n *Node[T]) Next() *Node[T] { return n.next }

// PushBack appends data as a new node at the back of the list and returns it.
func (l *List[T]) PushBack(data T) *Node[T] {
	n := &Node[T]{Data: data, list: l}

	if l.tail == nil {
		l.head = n
		l.tail = n
	} else {
		n.prev = l.tail
		l.tail.next = n
		l.tail = n
	}

	l.length++

	return n
}

// Remove unlinks n from its list. n must belong to l. Removing a node twice
// is a no-op.
func (l *List[T]) Remove(n *Node[T]) {
	if n == nil || n.list != l {
		return
	}

	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}

	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}

	n.next, n.prev, n.list = nil, nil, nil
	l.length--
}

// MoveToBack moves n to the back of the list, marking it most-recently-used.
func (l *List[T]) MoveToBack(n *Node[T]) {
	if n == nil || n.list != l || l.tail == n {
		return
	}

	l.Remove(n)
	n.list = l

	if l.tail == nil {
		l.head = n
		l.tail = n
	} else {
		n.prev = l.tail
		l.tail.next = n
		l.tail = n
	}

	l.length++
}

// PopFront removes and returns the least-recently-used node, or (nil, false)
// if the list is empty.
func (l *List[T]) PopFront() (*Node[T], bool) {
	n := l.head
	if n == nil {
		return nil, false
	}

	l.Remove(n)

	return n, true
}
