package opqueue_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/duocache/internal/opqueue"
)

// Test_Total_Order implements spec.md §8 invariant 9: handles returned from
// a sequence of mutators complete in submission order.
func Test_Total_Order(t *testing.T) {
	t.Parallel()

	var q opqueue.Queue

	var order []int

	var mu int32

	const n = 50

	handles := make([]*opqueue.Handle, n)

	for i := range n {
		i := i

		handles[i] = q.Enqueue(func(_ context.Context) error {
			atomic.AddInt32(&mu, 1)
			order = append(order, i)
			return nil
		})
	}

	for _, h := range handles {
		require.NoError(t, h.Wait(context.Background()))
	}

	require.Len(t, order, n)

	for i, v := range order {
		require.Equal(t, i, v)
	}
}

func Test_Downstream_Runs_After_Upstream_Fails(t *testing.T) {
	t.Parallel()

	var q opqueue.Queue

	boom := q.Enqueue(func(_ context.Context) error {
		return context.DeadlineExceeded
	})

	ran := make(chan struct{})
	second := q.Enqueue(func(_ context.Context) error {
		close(ran)
		return nil
	})

	require.ErrorIs(t, boom.Wait(context.Background()), context.DeadlineExceeded)
	require.NoError(t, second.Wait(context.Background()))

	select {
	case <-ran:
	default:
		t.Fatal("second operation never ran")
	}
}

func Test_Wait_Cancellation_Does_Not_Cancel_Work(t *testing.T) {
	t.Parallel()

	var q opqueue.Queue

	started := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})

	h := q.Enqueue(func(_ context.Context) error {
		close(started)
		<-release
		close(finished)
		return nil
	})

	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, h.Wait(ctx), context.Canceled)

	close(release)
	<-finished // the work still completed, detached from the cancelled waiter
}
