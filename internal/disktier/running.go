package disktier

import "sync"

// runningTable is the Running Tasks Table from spec.md §4.4: a mapping from
// a file name to the in-flight I/O task currently operating on it. A
// removeAll task is registered under every key in its stage at once, which
// is why this is a hand-rolled map rather than a call-coalescing helper
// like singleflight.Group (see SPEC_FULL.md's Domain Stack section for why).
type runningTable struct {
	mu    sync.Mutex
	tasks map[string]chan struct{}
}

func newRunningTable() *runningTable {
	return &runningTable{tasks: make(map[string]chan struct{})}
}

// register inserts a fresh in-flight marker for every name, panicking if any
// name is already present — spec.md §4.4 requires this invariant hold by
// construction (conflicting writes are steered into a new stage before they
// can reach here), so a violation means a bug upstream, not a runtime
// condition to recover from.
func (rt *runningTable) register(names []string) chan struct{} {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	for _, n := range names {
		if _, exists := rt.tasks[n]; exists {
			panic("duocache: running task already registered for " + n)
		}
	}

	done := make(chan struct{})
	for _, n := range names {
		rt.tasks[n] = done
	}

	return done
}

// complete removes names from the table and closes done, unblocking any
// reader waiting in [runningTable.await].
func (rt *runningTable) complete(names []string, done chan struct{}) {
	rt.mu.Lock()

	for _, n := range names {
		if rt.tasks[n] == done {
			delete(rt.tasks, n)
		}
	}

	rt.mu.Unlock()

	close(done)
}

// await blocks until there is no in-flight task for name.
func (rt *runningTable) await(name string) {
	rt.mu.Lock()
	done, ok := rt.tasks[name]
	rt.mu.Unlock()

	if ok {
		<-done
	}
}
