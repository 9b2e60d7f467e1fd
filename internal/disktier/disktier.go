// Package disktier implements the Disk Tier from spec.md §4.4: the staged
// write-back engine that owns the Staging Log, the flush timer, the
// sweeper, the per-key running-tasks table, and the filesystem path.
//
// A Tier goes through the state machine in spec.md §4.4's design notes:
// Unprepared -> Preparing -> Ready, then Ready <-> Flushing for the
// lifetime of the cache; the sweeper and flush timer run as independent,
// non-exclusive background goroutines until [Tier.Close] is called.
package disktier

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/calvinalkan/duocache/duoclock"
	"github.com/calvinalkan/duocache/internal/dfs"
	"github.com/calvinalkan/duocache/internal/duoerr"
	"github.com/calvinalkan/duocache/internal/staging"
)

const (
	// FlushDelay is the normative debounce from spec.md §6: a flush runs
	// one second after the first change that needs one arms the timer.
	FlushDelay = 1 * time.Second

	// FirstSweepDelay and SweepInterval are the normative sweeper cadence
	// from spec.md §6.
	FirstSweepDelay = 10 * time.Second
	SweepInterval   = 30 * time.Second

	// SweepTargetFraction is the fraction of SizeLimit the sweeper reduces
	// to when over budget (spec.md §4.4, §6).
	SweepTargetFraction = 0.7

	// DefaultSizeLimit is spec.md §6's normative default: 150 MiB.
	DefaultSizeLimit int64 = 150 * 1024 * 1024

	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// Filename projects a key to its on-disk file name. An empty second return
// means the key has no disk presence at all (spec.md §6).
type Filename[K comparable] func(K) (string, bool)

// Options configures a [Tier].
type Options[K comparable] struct {
	// Dir is the already-resolved backing directory. An empty Dir means
	// path resolution failed upstream (spec.md §6's Default(name) mode
	// found no platform caches directory); the tier starts in a degraded
	// state where Prepare returns [duoerr.ErrPathUnavailable].
	Dir string

	SizeLimit         int64
	ExpirationTimeout time.Duration
	Filename          Filename[K]
	Clock             duoclock.Clock
	FS                dfs.FS
	Logger            zerolog.Logger
}

// Tier is the Disk Tier for keys of type K.
type Tier[K comparable] struct {
	dir               string
	sizeLimit         int64
	expirationTimeout time.Duration
	filename          Filename[K]
	clock             duoclock.Clock
	fs                dfs.FS
	logger            zerolog.Logger

	log     staging.Log[K]
	running *runningTable

	stopOnce sync.Once
	stop     chan struct{}

	flushMu          sync.Mutex
	isFlushNeeded    bool
	isFlushScheduled bool
	flushingDone     chan struct{}

	dirMu      sync.Mutex
	dirReady   bool
	lock       dfs.Locker
	prepareErr error
}

// New returns a Tier in the Unprepared state.
func New[K comparable](opts Options[K]) *Tier[K] {
	if opts.SizeLimit <= 0 {
		opts.SizeLimit = DefaultSizeLimit
	}

	return &Tier[K]{
		dir:               opts.Dir,
		sizeLimit:         opts.SizeLimit,
		expirationTimeout: opts.ExpirationTimeout,
		filename:          opts.Filename,
		clock:             opts.Clock,
		fs:                opts.FS,
		logger:            opts.Logger,
		running:           newRunningTable(),
		stop:              make(chan struct{}),
	}
}

// Prepare resolves the backing directory and arms the first sweeper tick.
// It fails with [duoerr.ErrPathUnavailable] if no directory was resolved, or
// if another process already holds the directory's lock.
func (t *Tier[K]) Prepare() error {
	if t.dir == "" {
		t.dirMu.Lock()
		t.prepareErr = duoerr.ErrPathUnavailable
		t.dirMu.Unlock()

		return fmt.Errorf("%w: no backing directory resolved", duoerr.ErrPathUnavailable)
	}

	if err := t.fs.MkdirAll(t.dir, dirPerm); err != nil {
		return fmt.Errorf("%w: creating %q: %w", duoerr.ErrPathUnavailable, t.dir, err)
	}

	lock, err := t.fs.Lock(filepath.Join(t.dir, ".duocache.lock"))
	if err != nil {
		return fmt.Errorf("%w: %w", duoerr.ErrPathUnavailable, err)
	}

	t.dirMu.Lock()
	t.lock = lock
	t.dirReady = true
	t.dirMu.Unlock()

	go t.sweepLoop()

	return nil
}

// Close stops the sweeper and releases the directory lock. It does not
// flush pending changes; callers that need a best-effort drain should await
// the handle from their last mutation first.
func (t *Tier[K]) Close() error {
	t.stopOnce.Do(func() { close(t.stop) })

	t.dirMu.Lock()
	defer t.dirMu.Unlock()

	if t.lock != nil {
		return t.lock.Close()
	}

	return nil
}

// Get resolves key's latest logical value: staging first (newest-to-oldest),
// then any in-flight task for the key, then the file itself. A successful
// file read stamps the file's access time to now (best effort).
func (t *Tier[K]) Get(_ context.Context, key K, now time.Time) ([]byte, bool, error) {
	change, res := t.log.Resolve(key)

	switch res {
	case staging.Tombstone:
		return nil, false, nil
	case staging.Found:
		if change.Op == staging.OpRemove {
			return nil, false, nil
		}

		return change.Bytes, true, nil
	}

	name, ok := t.urlName(key)
	if !ok {
		return nil, false, nil
	}

	t.running.await(name)

	if !t.isDirReady() {
		return nil, false, nil
	}

	path := filepath.Join(t.dir, name)

	data, err := t.fs.ReadFile(path)
	if err != nil {
		if dfs.IsNotExist(err) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("%w: reading %q: %w", duoerr.ErrIO, path, err)
	}

	if err := t.fs.Chtimes(path, now, now); err != nil {
		t.logger.Debug().Err(err).Str("path", path).Msg("access-date touch failed, ignoring")
	}

	return data, true, nil
}

// Store stages an Add for key and arms the flush timer.
func (t *Tier[K]) Store(key K, b []byte) {
	t.log.Add(key, b)
	t.setNeedsFlush()
}

// Remove stages a Remove for key and arms the flush timer.
func (t *Tier[K]) Remove(key K) {
	t.log.Remove(key)
	t.setNeedsFlush()
}

// Clear stages a removeAll and arms the flush timer.
func (t *Tier[K]) Clear() {
	t.log.RemoveAll()
	t.setNeedsFlush()
}

// URL returns the path a key would be stored at, or ("", false) if the key
// has no disk presence.
func (t *Tier[K]) URL(key K) (string, bool) {
	name, ok := t.urlName(key)
	if !ok {
		return "", false
	}

	return filepath.Join(t.dir, name), true
}

func (t *Tier[K]) urlName(key K) (string, bool) {
	if t.filename == nil {
		return "", false
	}

	return t.filename(key)
}

func (t *Tier[K]) isDirReady() bool {
	t.dirMu.Lock()
	defer t.dirMu.Unlock()

	return t.dirReady
}

// Sweep runs one sweep pass synchronously, outside the background loop's
// cadence. Administration tools use this to force reclamation on demand.
func (t *Tier[K]) Sweep() {
	t.sweep()
}

// TotalCount, TotalSize, and TotalAllocatedSize read directory metadata on
// demand, per spec.md §4.4.
func (t *Tier[K]) TotalCount() (int, error) {
	entries, err := t.listEntries()
	return len(entries), err
}

func (t *Tier[K]) TotalSize() (int64, error) {
	entries, err := t.listEntries()
	if err != nil {
		return 0, err
	}

	var total int64
	for _, e := range entries {
		total += e.Size
	}

	return total, nil
}

func (t *Tier[K]) TotalAllocatedSize() (int64, error) {
	entries, err := t.listEntries()
	if err != nil {
		return 0, err
	}

	var total int64
	for _, e := range entries {
		total += e.AllocatedSize
	}

	return total, nil
}

func (t *Tier[K]) listEntries() ([]dfs.Entry, error) {
	if !t.isDirReady() {
		return nil, nil
	}

	entries, err := t.fs.ListEntries(t.dir)
	if err != nil {
		if dfs.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("%w: listing %q: %w", duoerr.ErrIO, t.dir, err)
	}

	out := entries[:0:0] //nolint:gocritic // excludes the lock file from accounting
	for _, e := range entries {
		if e.Name == ".duocache.lock" {
			continue
		}

		out = append(out, e)
	}

	return out, nil
}

// concurrentIOTask runs fn for a set of file names registered together in
// the running-tasks table, as a single [errgroup.Group] member.
func (t *Tier[K]) concurrentIOTask(g *errgroup.Group, names []string, fn func() error) {
	done := t.running.register(names)

	g.Go(func() error {
		defer t.running.complete(names, done)
		return fn()
	})
}
