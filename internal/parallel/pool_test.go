package parallel

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPool_RunExecutesAllTasks(t *testing.T) {
	pool := NewPool(4)
	defer pool.Shutdown()

	var counter int64
	tasks := make([]func(), 100)
	for i := range tasks {
		tasks[i] = func() { atomic.AddInt64(&counter, 1) }
	}
	pool.Run(context.Background(), tasks)
	require.Equal(t, int64(100), atomic.LoadInt64(&counter))
}

func TestPool_DefaultsToCPUCount(t *testing.T) {
	pool := NewPool(0)
	defer pool.Shutdown()
	require.Positive(t, pool.Workers())
}

func TestPool_NestedRegionsComplete(t *testing.T) {
	// A saturated pool must still finish nested fork-join regions by
	// running overflow tasks inline.
	pool := NewPool(2)
	defer pool.Shutdown()

	var counter int64
	outer := make([]func(), 8)
	for i := range outer {
		outer[i] = func() {
			inner := make([]func(), 8)
			for j := range inner {
				inner[j] = func() { atomic.AddInt64(&counter, 1) }
			}
			pool.Run(context.Background(), inner)
		}
	}
	pool.Run(context.Background(), outer)
	require.Equal(t, int64(64), atomic.LoadInt64(&counter))
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewPool(1)
	pool.Shutdown()
	err := pool.Submit(context.Background(), func() {})
	require.ErrorIs(t, err, ErrPoolShutdown)
}

func TestPool_SubmitHonoursContext(t *testing.T) {
	pool := NewPool(1)
	defer pool.Shutdown()

	block := make(chan struct{})
	// Occupy the single worker and fill the queue.
	require.NoError(t, pool.Submit(context.Background(), func() { <-block }))
	for pool.TrySubmit(func() { <-block }) {
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pool.Submit(ctx, func() {})
	require.ErrorIs(t, err, context.Canceled)
	close(block)
}
