// Package duocache implements a generic two-tier data cache: a fast
// in-process Memory Tier backed by an LRU map, and a persistent Disk Tier
// backed by a directory of files. Reads consult the memory tier first, then
// the disk tier; writes propagate to both under a single per-instance
// Operation Queue that linearizes mutations while letting reads bypass it
// after awaiting the current tail.
package duocache

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/calvinalkan/duocache/duoclock"
	"github.com/calvinalkan/duocache/internal/disktier"
	"github.com/calvinalkan/duocache/internal/memtier"
	"github.com/calvinalkan/duocache/internal/opqueue"
)

// Cache is the Composite Cache from spec.md §4.5: codec, read-through,
// parallel write, total mutation ordering, for values of type V under keys
// of type K.
type Cache[K comparable, V any] struct {
	mem    *memtier.Tier[K, V]
	disk   *disktier.Tier[K]
	queue  opqueue.Queue
	codec  Codec[V]
	clock  duoclock.Clock
	logger zerolog.Logger
}

// New constructs a Cache and prepares its Disk Tier. A non-nil error means
// [ErrPathUnavailable]: the returned Cache is still usable in the degraded
// mode spec.md §7 describes (reads report not-found, writes stage but never
// flush) rather than being discarded, since the directory may become
// available later if the caller retries Prepare-adjacent setup out of band.
func New[K comparable, V any](opts Options[K, V]) (*Cache[K, V], error) {
	opts = opts.withDefaults()

	disk := disktier.New[K](disktier.Options[K]{
		Dir:               opts.Path.dir,
		SizeLimit:         opts.SizeLimit,
		ExpirationTimeout: opts.ExpirationTimeout,
		Filename:          opts.Filename,
		Clock:             opts.Clock,
		FS:                opts.FS,
		Logger:            *opts.Logger,
	})

	c := &Cache[K, V]{
		mem:    memtier.New[K, V](opts.MemoryCountLimit, opts.MemoryCostLimit),
		disk:   disk,
		codec:  opts.Codec,
		clock:  opts.Clock,
		logger: *opts.Logger,
	}

	if err := disk.Prepare(); err != nil {
		return c, err
	}

	return c, nil
}

// Close stops the Disk Tier's background sweeper and releases its directory
// lock. It does not await in-flight flushes; callers that need a drain
// should await the last mutation's handle first.
func (c *Cache[K, V]) Close() error {
	return c.disk.Close()
}

// Get awaits the Operation Queue tail, then resolves key's current value:
// Memory first, then Disk. A Disk hit decodes the stored bytes (a zero-copy
// pass-through when V is []byte), best-effort populates Memory, and returns
// the decoded value. A decode failure surfaces as an error and does not
// populate Memory, per spec.md §7.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var zero V

	if tail := c.queue.Tail(); tail != nil {
		if err := tail.Wait(ctx); err != nil {
			return zero, false, err
		}
	}

	if v, ok := c.mem.Get(key); ok {
		return v, true, nil
	}

	b, ok, err := c.disk.Get(ctx, key, c.clock.Now())
	if err != nil {
		return zero, false, fmt.Errorf("duocache: get %v: %w", key, err)
	}

	if !ok {
		return zero, false, nil
	}

	var v V
	if isByteValue[V]() {
		v, _ = any(b).(V)
	} else if v, err = c.codec.Decode(b); err != nil {
		return zero, false, err
	}

	c.mem.Store(key, v)

	return v, true, nil
}

// Value is [Cache.Get] with NotFound reported as an error instead of a bool,
// matching the second of spec.md §6's two fallible read operations
// (subscript-style get vs. value(for:)).
func (c *Cache[K, V]) Value(ctx context.Context, key K) (V, error) {
	v, ok, err := c.Get(ctx, key)
	if err != nil {
		return v, err
	}

	if !ok {
		return v, fmt.Errorf("duocache: %v: %w", key, ErrNotFound)
	}

	return v, nil
}

// Store enqueues a write: Memory.Store and Disk.Store run concurrently under
// the queued task, so the returned handle completes when both have applied.
// If V is not []byte, the value is encoded with the configured codec before
// reaching Disk; an encode failure is logged and drops only the disk half,
// the memory half still applies.
func (c *Cache[K, V]) Store(key K, value V) *opqueue.Handle {
	return c.queue.Enqueue(func(_ context.Context) error {
		var g errgroup.Group

		g.Go(func() error {
			c.mem.Store(key, value)
			return nil
		})

		g.Go(func() error {
			if isByteValue[V]() {
				b, _ := any(value).([]byte)
				c.disk.Store(key, b)

				return nil
			}

			b, err := c.codec.Encode(value)
			if err != nil {
				c.logger.Warn().Err(err).Interface("key", key).Msg("encode failed, disk write skipped")
				return nil // memory half still applies; disk half is skipped
			}

			c.disk.Store(key, b)

			return nil
		})

		return g.Wait()
	})
}

// Remove enqueues a tombstone for key in both tiers.
func (c *Cache[K, V]) Remove(key K) *opqueue.Handle {
	return c.queue.Enqueue(func(_ context.Context) error {
		var g errgroup.Group

		g.Go(func() error {
			c.mem.Remove(key)
			return nil
		})

		g.Go(func() error {
			c.disk.Remove(key)
			return nil
		})

		return g.Wait()
	})
}

// RemoveAll enqueues a clear of both tiers.
func (c *Cache[K, V]) RemoveAll() *opqueue.Handle {
	return c.queue.Enqueue(func(_ context.Context) error {
		var g errgroup.Group

		g.Go(func() error {
			c.mem.Clear()
			return nil
		})

		g.Go(func() error {
			c.disk.Clear()
			return nil
		})

		return g.Wait()
	})
}

// DiskURL returns the path key would be stored at on disk, or ("", false) if
// key has no disk presence.
func (c *Cache[K, V]) DiskURL(key K) (string, bool) {
	return c.disk.URL(key)
}

// GC forces one sweep pass, outside the sweeper's normal cadence.
func (c *Cache[K, V]) GC() {
	c.disk.Sweep()
}

// Stats reports the Disk Tier's current footprint.
type Stats struct {
	Count         int
	Size          int64
	AllocatedSize int64
}

// Stats reads the Disk Tier's directory metadata on demand.
func (c *Cache[K, V]) Stats() (Stats, error) {
	count, err := c.disk.TotalCount()
	if err != nil {
		return Stats{}, err
	}

	size, err := c.disk.TotalSize()
	if err != nil {
		return Stats{}, err
	}

	allocated, err := c.disk.TotalAllocatedSize()
	if err != nil {
		return Stats{}, err
	}

	return Stats{Count: count, Size: size, AllocatedSize: allocated}, nil
}
