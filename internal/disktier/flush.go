package disktier

import (
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/calvinalkan/duocache/internal/dfs"
	"github.com/calvinalkan/duocache/internal/duoerr"
	"github.com/calvinalkan/duocache/internal/staging"
)

// setNeedsFlush idempotently arms the flush timer, per spec.md §4.4's flush
// scheduler: if a flush is already pending, do nothing; otherwise chain a
// new debounce behind whatever flush is currently running so flushes never
// overlap.
func (t *Tier[K]) setNeedsFlush() {
	t.flushMu.Lock()

	if t.isFlushNeeded {
		t.flushMu.Unlock()
		return
	}

	t.isFlushNeeded = true
	prev := t.flushingDone

	done := make(chan struct{})
	t.flushingDone = done

	armedAt := t.clock.Now()

	t.flushMu.Unlock()

	go func() {
		defer close(done)

		t.clock.Sleep(FlushDelay-t.clock.Now().Sub(armedAt), t.stop)

		if prev != nil {
			<-prev
		}

		t.flushMu.Lock()
		t.isFlushNeeded = false
		t.flushMu.Unlock()

		t.runFlush()
	}()
}

func (t *Tier[K]) runFlush() {
	t.flushMu.Lock()
	if t.isFlushScheduled {
		t.flushMu.Unlock()
		return
	}

	t.isFlushScheduled = true
	t.flushMu.Unlock()

	defer func() {
		t.flushMu.Lock()
		t.isFlushScheduled = false
		t.flushMu.Unlock()
	}()

	attempts := t.log.StageCount()

	for !t.log.Empty() && attempts > 0 {
		stage, ok := t.log.Oldest()
		if !ok {
			return
		}

		successes := t.flushStage(stage)
		t.log.Flushed(stage.ID, successes)
		attempts--
	}
}

// flushStage runs every change in stage as a concurrent per-key I/O task and
// returns only the changes that succeeded; a failed change stays staged for
// the next flush trigger, per spec.md §7's retry policy. stage is a
// [staging.Snapshot], a point-in-time copy taken under the log's lock, so
// this never iterates a map that Add/Remove are concurrently writing to.
func (t *Tier[K]) flushStage(stage staging.Snapshot[K]) []*staging.Change[K] {
	if !t.isDirReady() {
		t.logger.Warn().Str("dir", t.dir).Msg("flush skipped: backing directory unavailable, will retry")
		return nil
	}

	if stage.RemoveAll {
		return t.flushRemoveAll(stage)
	}

	return t.flushNormal(stage)
}

func (t *Tier[K]) flushRemoveAll(stage staging.Snapshot[K]) []*staging.Change[K] {
	changes := stage.Changes
	names := make([]string, 0, len(stage.Changes))

	for _, c := range stage.Changes {
		if name, ok := t.urlName(c.Key); ok {
			names = append(names, name)
		}
	}

	var g errgroup.Group

	done := t.running.register(names)

	g.Go(func() error {
		defer t.running.complete(names, done)

		if removeErr := t.fs.RemoveAll(t.dir); removeErr != nil {
			return fmt.Errorf("%w: removing %q: %w", duoerr.ErrIO, t.dir, removeErr)
		}

		if mkdirErr := t.fs.MkdirAll(t.dir, dirPerm); mkdirErr != nil {
			return fmt.Errorf("%w: recreating %q: %w", duoerr.ErrIO, t.dir, mkdirErr)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		t.logger.Warn().Err(err).Msg("removeAll flush failed, will retry")
		return nil
	}

	return changes
}

func (t *Tier[K]) flushNormal(stage staging.Snapshot[K]) []*staging.Change[K] {
	var (
		mu        sync.Mutex
		successes []*staging.Change[K]
		g         errgroup.Group
	)

	for _, change := range stage.Changes {
		change := change

		name, ok := t.urlName(change.Key)
		if !ok {
			// No disk presence for this key: nothing to write, trivially
			// flushed.
			mu.Lock()
			successes = append(successes, change)
			mu.Unlock()

			continue
		}

		t.concurrentIOTask(&g, []string{name}, func() error {
			path := filepath.Join(t.dir, name)

			var err error
			if change.Op == staging.OpAdd {
				err = t.writeChange(path, change.Bytes)
			} else {
				err = t.removeChange(path)
			}

			if err != nil {
				t.logger.Warn().Err(err).Str("path", path).Msg("flush of key failed, will retry")
				return nil // leave it staged; do not fail the whole group
			}

			mu.Lock()
			successes = append(successes, change)
			mu.Unlock()

			return nil
		})
	}

	_ = g.Wait()

	return successes
}

func (t *Tier[K]) writeChange(path string, b []byte) error {
	if err := t.fs.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("%w: creating parent of %q: %w", duoerr.ErrIO, path, err)
	}

	if err := t.fs.WriteFileAtomic(path, b, filePerm); err != nil {
		return fmt.Errorf("%w: writing %q: %w", duoerr.ErrIO, path, err)
	}

	return nil
}

func (t *Tier[K]) removeChange(path string) error {
	if err := t.fs.Remove(path); err != nil {
		if dfs.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("%w: removing %q: %w", duoerr.ErrIO, path, err)
	}

	return nil
}
