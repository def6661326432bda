package dispatch_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/txix-open/cqlx/dispatch"
	"github.com/txix-open/isp-kit/log"
)

func TestPoolFifo(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	pool := dispatch.New("fifo", logger(t), dispatch.Workers(1), dispatch.QueueSize(64))

	mu := sync.Mutex{}
	order := make([]int, 0)
	for i := 0; i < 50; i++ {
		err := pool.Submit(dispatch.TaskFunc(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
		require.NoError(err)
	}
	require.NoError(pool.Close())

	require.Len(order, 50)
	for i, v := range order {
		require.EqualValues(i, v)
	}
	require.EqualValues(50, pool.Processed())
}

func TestPoolSubmitBlocksWhenFull(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	pool := dispatch.New("full", logger(t), dispatch.Workers(1), dispatch.QueueSize(1))
	t.Cleanup(func() {
		_ = pool.Close()
	})

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(pool.Submit(dispatch.TaskFunc(func() {
		close(started)
		<-release
	})))
	<-started
	require.NoError(pool.Submit(dispatch.TaskFunc(func() {})))

	submitted := make(chan error, 1)
	go func() {
		submitted <- pool.Submit(dispatch.TaskFunc(func() {}))
	}()

	select {
	case <-submitted:
		require.Fail("submit must block while the queue is full")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-submitted:
		require.NoError(err)
	case <-time.After(time.Second):
		require.Fail("submit was not released")
	}
}

func TestPoolReplacesPanickedWorker(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	pool := dispatch.New("panic", logger(t), dispatch.Workers(1))

	done := &atomic.Int64{}
	require.NoError(pool.Submit(dispatch.TaskFunc(func() {
		panic("boom")
	})))
	for i := 0; i < 10; i++ {
		require.NoError(pool.Submit(dispatch.TaskFunc(func() {
			done.Add(1)
		})))
	}
	require.NoError(pool.Close())

	require.EqualValues(10, done.Load())
	require.EqualValues(1, pool.Panics())
	require.EqualValues(11, pool.Processed())
}

func TestPoolClose(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	pool := dispatch.New("close", logger(t), dispatch.Workers(2))
	require.NoError(pool.Close())
	require.NoError(pool.Close())

	err := pool.Submit(dispatch.TaskFunc(func() {}))
	require.ErrorIs(err, dispatch.ErrClosed)
}

func TestPoolCloseReleasesBlockedSubmit(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	pool := dispatch.New("close-blocked", logger(t), dispatch.Workers(1), dispatch.QueueSize(1))

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(pool.Submit(dispatch.TaskFunc(func() {
		close(started)
		<-release
	})))
	<-started
	require.NoError(pool.Submit(dispatch.TaskFunc(func() {})))

	submitted := make(chan error, 1)
	go func() {
		submitted <- pool.Submit(dispatch.TaskFunc(func() {}))
	}()
	time.Sleep(50 * time.Millisecond)

	closed := make(chan struct{})
	go func() {
		_ = pool.Close()
		close(closed)
	}()

	select {
	case err := <-submitted:
		require.ErrorIs(err, dispatch.ErrClosed)
	case <-time.After(time.Second):
		require.Fail("blocked submit was not released by close")
	}

	close(release)
	<-closed
}

func logger(t *testing.T) log.Logger {
	t.Helper()

	logger, err := log.New()
	require.NoError(t, err)
	return logger
}
