package disktier

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/duocache/duoclock"
	"github.com/calvinalkan/duocache/internal/dfs"
)

func newTestTier(t *testing.T, clock duoclock.Clock, sizeLimit int64, expiration time.Duration) *Tier[string] {
	t.Helper()

	dir := t.TempDir()

	tier := New[string](Options[string]{
		Dir:               dir,
		SizeLimit:         sizeLimit,
		ExpirationTimeout: expiration,
		Filename:          func(k string) (string, bool) { return k, k != "" },
		Clock:             clock,
		FS:                dfs.NewReal(),
		Logger:            zerolog.Nop(),
	})

	require.NoError(t, tier.Prepare())
	t.Cleanup(func() { _ = tier.Close() })

	// Give the background sweeper goroutine time to reach its first
	// clock.Sleep call and register its wake-up deadline before the test
	// starts driving the manual clock.
	time.Sleep(10 * time.Millisecond)

	return tier
}

// drain waits for the tier's flush goroutine chain to settle, polling on
// real wall-clock time since the manual clock only controls Sleep deadlines,
// not goroutine scheduling.
func drain(t *testing.T, tier *Tier[string]) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		tier.flushMu.Lock()
		idle := !tier.isFlushNeeded && !tier.isFlushScheduled && tier.log.Empty()
		tier.flushMu.Unlock()

		if idle {
			return
		}

		time.Sleep(time.Millisecond)
	}

	t.Fatal("drain: flush never settled")
}

// S1: store visible before flush.
func TestScenarioStoreVisibleBeforeFlush(t *testing.T) {
	clock := duoclock.NewManual(time.Unix(0, 0))
	tier := newTestTier(t, clock, DefaultSizeLimit, 0)

	tier.Store("empty", []byte{})

	data, ok, err := tier.Get(context.Background(), "empty", clock.Now())
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, data)

	_, statErr := os.Stat(filepath.Join(tier.dir, "empty"))
	require.True(t, os.IsNotExist(statErr))

	clock.Advance(500 * time.Millisecond)
	_, statErr = os.Stat(filepath.Join(tier.dir, "empty"))
	require.True(t, os.IsNotExist(statErr))

	clock.Advance(500 * time.Millisecond)
	drain(t, tier)

	entries, err := tier.fs.ListEntries(tier.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	_, ok, err = tier.Get(context.Background(), "empty", clock.Now())
	require.NoError(t, err)
	require.True(t, ok)
}

// S2: batched writes land in one stage and flush together.
func TestScenarioBatchedWrites(t *testing.T) {
	clock := duoclock.NewManual(time.Unix(0, 0))
	tier := newTestTier(t, clock, DefaultSizeLimit, 0)

	tier.Store("item0", []byte{1})
	tier.Store("item1", []byte{1, 2})

	require.Equal(t, 1, tier.log.StageCount())

	clock.Advance(1000 * time.Millisecond)
	drain(t, tier)

	entries, err := tier.fs.ListEntries(tier.dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

// S3: a staged remove opens a second stage and wins on flush.
func TestScenarioStagedRemove(t *testing.T) {
	clock := duoclock.NewManual(time.Unix(0, 0))
	tier := newTestTier(t, clock, DefaultSizeLimit, 0)

	tier.Store("item0", []byte{1})
	tier.Store("item1", []byte{1, 2})
	tier.Remove("item0")

	require.Equal(t, 2, tier.log.StageCount())

	clock.Advance(1000 * time.Millisecond)
	drain(t, tier)

	_, ok, err := tier.Get(context.Background(), "item0", clock.Now())
	require.NoError(t, err)
	require.False(t, ok)

	data, ok, err := tier.Get(context.Background(), "item1", clock.Now())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2}, data)

	entries, err := tier.fs.ListEntries(tier.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

// S4: clear removes everything, including what hasn't flushed yet.
func TestScenarioClearSemantics(t *testing.T) {
	clock := duoclock.NewManual(time.Unix(0, 0))
	tier := newTestTier(t, clock, DefaultSizeLimit, 0)

	tier.Store("item0", []byte{1})
	clock.Advance(1000 * time.Millisecond)
	drain(t, tier)

	data, ok, err := tier.Get(context.Background(), "item0", clock.Now())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{1}, data)

	tier.Clear()
	require.False(t, tier.log.Empty())

	clock.Advance(1000 * time.Millisecond)
	drain(t, tier)

	_, ok, err = tier.Get(context.Background(), "item0", clock.Now())
	require.NoError(t, err)
	require.False(t, ok)

	entries, err := tier.fs.ListEntries(tier.dir)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.True(t, tier.log.Empty())
}

// S5: sweep by size evicts the oldest-accessed entry first.
func TestScenarioSweepBySize(t *testing.T) {
	clock := duoclock.NewManual(time.Unix(0, 0))
	tier := newTestTier(t, clock, 3*4096-1, 0)

	tier.Store("a", []byte{1})
	tier.Store("b", []byte{1})
	tier.Store("c", []byte{1})

	clock.Advance(1000 * time.Millisecond)
	drain(t, tier)

	old := clock.Now().Add(-24 * time.Hour)
	require.NoError(t, tier.fs.Chtimes(filepath.Join(tier.dir, "a"), old, old))

	clock.Advance(10 * time.Second)

	deadline := time.Now().Add(2 * time.Second)
	var entries []dfs.Entry
	for time.Now().Before(deadline) {
		var err error
		entries, err = tier.fs.ListEntries(tier.dir)
		require.NoError(t, err)

		if len(entries) == 2 {
			break
		}

		time.Sleep(time.Millisecond)
	}

	require.Len(t, entries, 2)
	for _, e := range entries {
		require.NotEqual(t, "a", e.Name)
	}
}
