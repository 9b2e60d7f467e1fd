package lrumap_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/duocache/internal/lrumap"
)

func Test_Get_Does_Not_Refresh_Recency(t *testing.T) {
	t.Parallel()

	m := lrumap.New[string, int](2, 0)

	m.Set("a", 1, 0)
	m.Set("b", 2, 0)

	_, ok := m.Get("a")
	require.True(t, ok)

	// "a" was read but not re-Set, so it is still the least-recently-used
	// entry and must be the one evicted.
	m.Set("c", 3, 0)

	_, ok = m.Get("a")
	require.False(t, ok)

	_, ok = m.Get("b")
	require.True(t, ok)

	_, ok = m.Get("c")
	require.True(t, ok)
}

func Test_Set_Refreshes_Recency_Even_When_Unchanged(t *testing.T) {
	t.Parallel()

	m := lrumap.New[string, int](2, 0)

	m.Set("a", 1, 0)
	m.Set("b", 2, 0)
	m.Set("a", 1, 0) // unchanged value and cost, still must move to back

	m.Set("c", 3, 0)

	_, ok := m.Get("b")
	require.False(t, ok, "b should have been evicted as least-recently-set")

	_, ok = m.Get("a")
	require.True(t, ok)

	_, ok = m.Get("c")
	require.True(t, ok)
}

// Test_Eviction_Order implements spec.md §8 invariant 7: with countLimit=N,
// after inserting m>N keys in order with no intervening reads, the survivors
// are the N most-recently-set keys.
func Test_Eviction_Order(t *testing.T) {
	t.Parallel()

	m := lrumap.New[int, int](3, 0)

	for i := range 5 {
		m.Set(i, i*10, 0)
	}

	for i := range 2 {
		_, ok := m.Get(i)
		require.False(t, ok, "key %d should have been evicted", i)
	}

	for i := 2; i < 5; i++ {
		v, ok := m.Get(i)
		require.True(t, ok, "key %d should have survived", i)
		require.Equal(t, i*10, v)
	}

	require.Equal(t, 3, m.Len())
}

// Test_Cost_Eviction_S6 implements spec.md §8 scenario S6.
func Test_Cost_Eviction_S6(t *testing.T) {
	t.Parallel()

	m := lrumap.New[string, int](2, 3)

	m.Set("K1", 1, 3)
	m.Set("K2", 2, 2)
	m.Set("K3", 3, 1)
	m.Set("K1", 1, 3)

	_, ok := m.Get("K1")
	require.True(t, ok)

	_, ok = m.Get("K2")
	require.False(t, ok)

	_, ok = m.Get("K3")
	require.False(t, ok)

	require.Equal(t, 1, m.Len())
	require.Equal(t, 3, m.TotalCost())
}

func Test_Zero_Limit_Disables_It(t *testing.T) {
	t.Parallel()

	m := lrumap.New[int, int](0, 0)

	for i := range 100 {
		m.Set(i, i, 1)
	}

	require.Equal(t, 100, m.Len())
	require.Equal(t, 100, m.TotalCost())
}

func Test_Remove_And_Clear(t *testing.T) {
	t.Parallel()

	m := lrumap.New[string, int](0, 0)

	m.Set("a", 1, 5)
	m.Set("b", 2, 7)

	m.Remove("a")

	_, ok := m.Get("a")
	require.False(t, ok)
	require.Equal(t, 7, m.TotalCost())

	m.Clear()

	require.Equal(t, 0, m.Len())
	require.Equal(t, 0, m.TotalCost())
}

func Test_Negative_Cost_Is_Clamped(t *testing.T) {
	t.Parallel()

	m := lrumap.New[string, int](0, 0)

	m.Set("a", 1, -5)

	require.Equal(t, 0, m.TotalCost())
}

// Test_Eviction_Order_Survivors_Are_Most_Recently_Set is spec.md §8
// invariant 7, checked structurally with go-cmp so the failure message shows
// the full survivor list rather than one bool at a time.
func Test_Eviction_Order_Survivors_Are_Most_Recently_Set(t *testing.T) {
	t.Parallel()

	m := lrumap.New[string, int](3, 0)

	for i, k := range []string{"k1", "k2", "k3", "k4", "k5"} {
		m.Set(k, i, 0)
	}

	want := []string{"k3", "k4", "k5"}
	got := m.Keys()

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("survivor keys mismatch (-want +got):\n%s", diff)
	}
}
