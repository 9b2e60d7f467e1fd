package disktier

import (
	"encoding/binary"
	"path/filepath"
	"time"

	"github.com/armon/go-radix"

	"github.com/calvinalkan/duocache/internal/dfs"
)

// sweepLoop runs the background sweeper: first tick at +[FirstSweepDelay]
// after Prepare, then every [SweepInterval], until [Tier.Close] closes
// t.stop. This is the closest Go equivalent of spec.md §9's "weak self in
// long-lived tasks" note — there is no weak reference to take, so liveness
// is instead observed by checking t.stop on every wakeup.
func (t *Tier[K]) sweepLoop() {
	t.clock.Sleep(FirstSweepDelay, t.stop)

	for {
		select {
		case <-t.stop:
			return
		default:
		}

		t.sweep()

		t.clock.Sleep(SweepInterval, t.stop)
	}
}

func (t *Tier[K]) sweep() {
	if !t.isDirReady() {
		return
	}

	entries, err := t.fs.ListEntries(t.dir)
	if err != nil {
		if !dfs.IsNotExist(err) {
			t.logger.Warn().Err(err).Str("dir", t.dir).Msg("sweep: listing directory failed")
		}

		return
	}

	now := t.clock.Now()

	surviving := make([]dfs.Entry, 0, len(entries))

	for _, e := range entries {
		if e.Name == ".duocache.lock" {
			continue
		}

		if t.expirationTimeout > 0 && !e.AccessTime.After(now.Add(-t.expirationTimeout)) {
			if err := t.fs.Remove(filepath.Join(t.dir, e.Name)); err != nil && !dfs.IsNotExist(err) {
				t.logger.Warn().Err(err).Str("name", e.Name).Msg("sweep: removing expired entry failed")
			}

			continue
		}

		surviving = append(surviving, e)
	}

	t.sweepBySize(surviving)
}

// sweepBySize pops entries oldest-access-date-first from a radix tree
// indexed by access time (the same big-endian-UnixNano-key trick
// ammario/tlru's ttlTrie uses) until the remaining total allocated size is
// at or below [SweepTargetFraction] of the size limit.
func (t *Tier[K]) sweepBySize(entries []dfs.Entry) {
	var total int64
	for _, e := range entries {
		total += e.AllocatedSize
	}

	if total <= t.sizeLimit {
		return
	}

	tree := radix.New()
	byName := make(map[string]dfs.Entry, len(entries))

	for _, e := range entries {
		byName[e.Name] = e

		key := accessTimeKey(e.AccessTime)
		for {
			if _, exists := tree.Get(key); !exists {
				break
			}

			key = accessTimeKey(keyTime(key).Add(time.Nanosecond))
		}

		tree.Insert(key, e.Name)
	}

	target := float64(t.sizeLimit) * SweepTargetFraction

	for float64(total) > target {
		key, v, ok := tree.Minimum()
		if !ok {
			return
		}

		name, _ := v.(string)

		tree.Delete(key)

		e, ok := byName[name]
		if !ok {
			continue
		}

		if err := t.fs.Remove(filepath.Join(t.dir, name)); err != nil && !dfs.IsNotExist(err) {
			t.logger.Warn().Err(err).Str("name", name).Msg("sweep: removing oversize entry failed")
			continue
		}

		total -= e.AllocatedSize
	}
}

// accessTimeKey flips the sign bit so that byte order matches time order,
// including instants before the Unix epoch.
func accessTimeKey(ts time.Time) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(ts.UnixNano())^(1<<63))

	return string(b[:])
}

func keyTime(key string) time.Time {
	return time.Unix(0, int64(binary.BigEndian.Uint64([]byte(key))^(1<<63)))
}
