package syncenv

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("task failed")

func TestPoolBoundsConcurrentRunnableTasks(t *testing.T) {
	pool := NewPool(context.Background(), 2)

	var running, maxSeen int32
	release := make(chan struct{})

	observe := func() {
		n := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&maxSeen)
			if n <= old || atomic.CompareAndSwapInt32(&maxSeen, old, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&running, -1)
	}

	// Spawn blocks while both slots are taken, so the five tasks are
	// spawned from their own goroutine, which reports the first error.
	spawned := make(chan error, 1)
	go func() {
		for i := 0; i < 5; i++ {
			if err := pool.Spawn(func(ctx context.Context) error {
				observe()
				return nil
			}); err != nil {
				spawned <- err
				return
			}
		}
		spawned <- nil
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&running) == 2 }, time.Second, time.Millisecond)
	require.EqualValues(t, 2, atomic.LoadInt32(&maxSeen))

	close(release)
	require.NoError(t, <-spawned)
	require.NoError(t, pool.Wait())
}

func TestPoolWaitPropagatesFirstError(t *testing.T) {
	pool := NewPool(context.Background(), 4)

	_ = pool.Spawn(func(ctx context.Context) error {
		return errBoom
	})
	_ = pool.Spawn(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := pool.Wait()
	require.ErrorIs(t, err, errBoom)
}

func TestFutureAwaitReturnsResolvedValue(t *testing.T) {
	f := NewFuture[int]()
	go f.Resolve(7)

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestFutureAwaitReturnsContextErrorOnCancel(t *testing.T) {
	f := NewFuture[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Await(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
