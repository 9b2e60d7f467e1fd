// Package opqueue implements the per-cache-instance operation linearizer
// described in spec.md §4.6: each enqueued operation is chained after the
// previous one's completion, so mutations are observed in submission order
// even though Memory Tier and Disk Tier work happens on separate
// goroutines.
package opqueue

import (
	"context"
	"sync"
)

// Handle is returned by [Queue.Enqueue] and completes once the operation (and
// everything enqueued before it) has run.
//
// Handle satisfies the "future-like object" duocache's mutators are
// documented to return (spec.md §4.6, §9). Cancelling the context passed to
// [Handle.Wait] only detaches that caller from the result — the underlying
// work keeps running, preserving read-your-write ordering for everyone else.
type Handle struct {
	done chan struct{}
	err  error
}

// Wait blocks until h completes or ctx is done, whichever comes first.
// A ctx cancellation never cancels the underlying operation.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed when h completes.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the operation's error. Only meaningful after Done is closed.
func (h *Handle) Err() error { return h.err }

// Queue is a FIFO chain of side-effectful operations. The zero value is a
// ready-to-use, empty queue.
//
// Queue is safe for concurrent use. Enqueue and Tail hold the mutex only to
// read or swap the tail; the chained goroutines Enqueue spawns do the actual
// waiting.
type Queue struct {
	mu   sync.Mutex
	tail *Handle
}

// Enqueue runs work after every previously enqueued operation has completed
// (successfully or not), and returns a [Handle] for this operation.
//
// work receives a background context; it should use its own timeout/
// cancellation if it needs one, since the queue itself never cancels
// downstream operations on behalf of an upstream cancellation.
func (q *Queue) Enqueue(work func(ctx context.Context) error) *Handle {
	q.mu.Lock()
	prev := q.tail
	h := &Handle{done: make(chan struct{})}
	q.tail = h
	q.mu.Unlock()

	go func() {
		if prev != nil {
			<-prev.done
		}

		h.err = work(context.Background())
		close(h.done)
	}()

	return h
}

// Tail returns the most recently enqueued handle, or nil if nothing has ever
// been enqueued. Readers await Tail before inspecting tier state, per
// spec.md §4.2/§4.4, so a preceding store is always visible.
func (q *Queue) Tail() *Handle {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.tail
}
