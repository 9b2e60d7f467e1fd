// Package staging implements the Staging Log from spec.md §4.3: an ordered
// sequence of stages recording pending disk mutations, so a read can
// resolve the latest logical value for a key while the matching file write
// is still in flight or hasn't even been scheduled yet.
package staging

import "sync"

// Op identifies what a [Change] does to a key.
type Op int

const (
	// OpAdd writes Change.Bytes to the key's file.
	OpAdd Op = iota
	// OpRemove deletes the key's file.
	OpRemove
)

// Change is one staged mutation.
type Change[K comparable] struct {
	Key   K
	ID    int64
	Op    Op
	Bytes []byte
}

// Stage is a batch of changes that share a causal frontier. A stage with
// RemoveAll set holds synthetic Remove changes for every key observed live
// in the log at the moment removeAll was issued, and masks every key not
// written after it (spec.md §4.3 invariant iii).
type Stage[K comparable] struct {
	ID        int64
	Changes   map[K]*Change[K]
	RemoveAll bool
}

// Resolution is what [Log.Resolve] found for a key.
type Resolution int

const (
	// NotFound means the key has no pending staged mutation.
	NotFound Resolution = iota
	// Found means the returned Change is the key's latest logical operation.
	Found
	// Tombstone means a removeAll masks the key; it must read as absent
	// regardless of what disk holds.
	Tombstone
)

// Log is the ordered, oldest-first sequence of stages. The zero value is an
// empty, ready-to-use log. Log is safe for concurrent use: every method
// holds one mutex, since queued mutations, the flush goroutine, and readers
// all reach the log from different goroutines.
type Log[K comparable] struct {
	mu sync.Mutex

	stages       []*Stage[K]
	nextStageID  int64
	nextChangeID int64
}

// Add stages an Add(key, bytes), opening a new stage if the key would
// conflict with the current last stage.
func (l *Log[K]) Add(key K, b []byte) *Change[K] {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.put(key, OpAdd, b)
}

// Remove stages a Remove(key), opening a new stage if the key would conflict
// with the current last stage.
func (l *Log[K]) Remove(key K) *Change[K] {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.put(key, OpRemove, nil)
}

func (l *Log[K]) put(key K, op Op, b []byte) *Change[K] {
	if l.conflictsLocked(key) {
		l.openStageLocked()
	} else if len(l.stages) == 0 {
		l.openStageLocked()
	}

	last := l.stages[len(l.stages)-1]

	l.nextChangeID++
	c := &Change[K]{Key: key, ID: l.nextChangeID, Op: op, Bytes: b}
	last.Changes[key] = c

	return c
}

// RemoveAll stages a removeAll: a new stage, marked RemoveAll, holding a
// synthetic Remove for every key observed in any existing stage.
func (l *Log[K]) RemoveAll() *Stage[K] {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[K]struct{})

	for _, s := range l.stages {
		for k := range s.Changes {
			seen[k] = struct{}{}
		}
	}

	l.nextStageID++
	stage := &Stage[K]{
		ID:        l.nextStageID,
		Changes:   make(map[K]*Change[K], len(seen)),
		RemoveAll: true,
	}

	for k := range seen {
		l.nextChangeID++
		stage.Changes[k] = &Change[K]{Key: k, ID: l.nextChangeID, Op: OpRemove}
	}

	l.stages = append(l.stages, stage)

	return stage
}

// Resolve scans stages newest-to-oldest and returns the key's latest
// logical operation.
func (l *Log[K]) Resolve(key K) (*Change[K], Resolution) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.stages) - 1; i >= 0; i-- {
		s := l.stages[i]

		if s.RemoveAll {
			return nil, Tombstone
		}

		if c, ok := s.Changes[key]; ok {
			return c, Found
		}
	}

	return nil, NotFound
}

// Flushed removes the reported changes from the named stage, dropping the
// stage once empty. A change whose ID no longer matches what is staged for
// that key (superseded by a newer write) is left alone, per spec.md §4.3:
// "mismatched ids must be a no-op."
func (l *Log[K]) Flushed(stageID int64, changes []*Change[K]) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1

	for i, s := range l.stages {
		if s.ID == stageID {
			idx = i
			break
		}
	}

	if idx == -1 {
		return
	}

	stage := l.stages[idx]

	for _, c := range changes {
		if current, ok := stage.Changes[c.Key]; ok && current.ID == c.ID {
			delete(stage.Changes, c.Key)
		}
	}

	if len(stage.Changes) == 0 {
		l.stages = append(l.stages[:idx], l.stages[idx+1:]...)
	}
}

// Snapshot is a point-in-time copy of a [Stage]'s changes, safe to range
// over without holding the [Log]'s lock: the flush path must not iterate a
// live Stage.Changes map, since Add/Remove can still be writing into that
// same map (the oldest stage is also the current stage whenever there is
// only one pending) concurrently with a flush in progress.
type Snapshot[K comparable] struct {
	ID        int64
	RemoveAll bool
	Changes   []*Change[K]
}

// Oldest returns a [Snapshot] of the oldest stage and true, or a zero
// Snapshot and false if the log is empty.
func (l *Log[K]) Oldest() (Snapshot[K], bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.stages) == 0 {
		return Snapshot[K]{}, false
	}

	stage := l.stages[0]

	changes := make([]*Change[K], 0, len(stage.Changes))
	for _, c := range stage.Changes {
		changes = append(changes, c)
	}

	return Snapshot[K]{ID: stage.ID, RemoveAll: stage.RemoveAll, Changes: changes}, true
}

// StageCount returns how many stages are currently pending.
func (l *Log[K]) StageCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.stages)
}

// Empty reports whether the log has no pending stages.
func (l *Log[K]) Empty() bool {
	return l.StageCount() == 0
}

func (l *Log[K]) conflictsLocked(key K) bool {
	if len(l.stages) == 0 {
		return false
	}

	last := l.stages[len(l.stages)-1]
	if last.RemoveAll {
		return true
	}

	_, exists := last.Changes[key]

	return exists
}

func (l *Log[K]) openStageLocked() {
	l.nextStageID++
	l.stages = append(l.stages, &Stage[K]{
		ID:      l.nextStageID,
		Changes: make(map[K]*Change[K]),
	})
}
