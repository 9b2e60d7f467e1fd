package staging_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/duocache/internal/staging"
)

func Test_Add_Reuses_Last_Stage_Until_Conflict(t *testing.T) {
	t.Parallel()

	var log staging.Log[string]

	log.Add("item0", []byte{1})
	log.Add("item1", []byte{1, 2})

	require.Equal(t, 1, log.StageCount())

	stage, ok := log.Oldest()
	require.True(t, ok)
	require.Len(t, stage.Changes, 2)
}

// Test_Staged_Remove_Opens_New_Stage implements spec.md §8 scenario S3.
func Test_Staged_Remove_Opens_New_Stage(t *testing.T) {
	t.Parallel()

	var log staging.Log[string]

	log.Add("item0", []byte{1})
	log.Add("item1", []byte{1, 2})
	log.Remove("item0")

	require.Equal(t, 2, log.StageCount())

	c, res := log.Resolve("item0")
	require.Equal(t, staging.Found, res)
	require.Equal(t, staging.OpRemove, c.Op)

	c, res = log.Resolve("item1")
	require.Equal(t, staging.Found, res)
	require.Equal(t, staging.OpAdd, c.Op)
	require.Equal(t, []byte{1, 2}, c.Bytes)
}

func Test_Resolve_Unknown_Key(t *testing.T) {
	t.Parallel()

	var log staging.Log[string]

	log.Add("a", []byte("x"))

	_, res := log.Resolve("b")
	require.Equal(t, staging.NotFound, res)
}

// Test_RemoveAll_Tombstones_Everything implements spec.md §8 invariant 4.
func Test_RemoveAll_Tombstones_Everything(t *testing.T) {
	t.Parallel()

	var log staging.Log[string]

	log.Add("a", []byte("1"))
	log.Add("b", []byte("2"))
	log.RemoveAll()

	_, res := log.Resolve("a")
	require.Equal(t, staging.Tombstone, res)

	_, res = log.Resolve("b")
	require.Equal(t, staging.Tombstone, res)

	// A key that was never staged before removeAll is still tombstoned.
	_, res = log.Resolve("never-seen")
	require.Equal(t, staging.Tombstone, res)

	// A write after removeAll supersedes the tombstone.
	log.Add("a", []byte("3"))

	c, res := log.Resolve("a")
	require.Equal(t, staging.Found, res)
	require.Equal(t, staging.OpAdd, c.Op)
}

func Test_Flushed_Drops_Matching_Changes_And_Empty_Stages(t *testing.T) {
	t.Parallel()

	var log staging.Log[string]

	log.Add("a", []byte("1"))
	c := log.Add("b", []byte("2"))

	stage, ok := log.Oldest()
	require.True(t, ok)

	var aChange *staging.Change[string]
	for _, change := range stage.Changes {
		if change.Key == "a" {
			aChange = change
		}
	}
	require.NotNil(t, aChange)

	log.Flushed(stage.ID, []*staging.Change[string]{aChange, c})

	require.True(t, log.Empty())
}

func Test_Flushed_Is_NoOp_On_Id_Mismatch(t *testing.T) {
	t.Parallel()

	var log staging.Log[string]

	log.Add("a", []byte("1"))

	stage, ok := log.Oldest()
	require.True(t, ok)

	stale := &staging.Change[string]{Key: "a", ID: -1, Op: staging.OpAdd}

	log.Flushed(stage.ID, []*staging.Change[string]{stale})

	// The real (non-stale) change for "a" must still be there.
	require.Equal(t, 1, log.StageCount())

	_, res := log.Resolve("a")
	require.Equal(t, staging.Found, res)
}

func Test_Flushed_Unknown_Stage_Is_NoOp(t *testing.T) {
	t.Parallel()

	var log staging.Log[string]

	c := log.Add("a", []byte("1"))

	log.Flushed(999, []*staging.Change[string]{c})

	require.Equal(t, 1, log.StageCount())
}
