package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerPool(t *testing.T) {
	t.Parallel()

	queue := NewTaskQueue(1, setupTestLogger())

	tests := []struct {
		name     string
		count    int
		expected int
	}{
		{name: "explicit count", count: 5, expected: 5},
		{name: "zero defaults to one", count: 0, expected: 1},
		{name: "negative defaults to one", count: -3, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: tt.count}, setupTestLogger())
			assert.Equal(t, tt.expected, pool.workers)
			assert.Nil(t, pool.onError)
		})
	}
}

func TestWorkerPool_ProcessesTasks(t *testing.T) {
	t.Parallel()

	queue := NewTaskQueue(10, setupTestLogger())
	pool := NewWorkerPool(queue, DefaultWorkerPoolConfig(), setupTestLogger())

	var executed atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, queue.Enqueue(newFuncTask(func(context.Context) error {
			executed.Add(1)
			return nil
		})))
	}

	pool.Start()
	defer pool.Stop()

	assert.Eventually(t, func() bool { return executed.Load() == 5 },
		time.Second, 5*time.Millisecond)
}

func TestWorkerPool_ErrorHandler(t *testing.T) {
	t.Parallel()

	queue := NewTaskQueue(10, setupTestLogger())
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())

	boom := errors.New("boom")
	var (
		mu     sync.Mutex
		failed []error
	)
	pool.SetErrorHandler(func(task Task, err error) {
		mu.Lock()
		failed = append(failed, err)
		mu.Unlock()
	})

	require.NoError(t, queue.Enqueue(newFuncTask(func(context.Context) error { return boom })))
	require.NoError(t, queue.Enqueue(noopTask()))

	pool.Start()
	defer pool.Stop()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(failed) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.ErrorIs(t, failed[0], boom)
	mu.Unlock()
}

func TestWorkerPool_StopCancelsRunningTasks(t *testing.T) {
	t.Parallel()

	queue := NewTaskQueue(1, setupTestLogger())
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())

	started := make(chan struct{})
	require.NoError(t, queue.Enqueue(newFuncTask(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})))

	pool.Start()
	<-started

	stopped := make(chan struct{})
	go func() {
		pool.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("pool did not stop")
	}
}

func TestWorkerPool_RecoversPanickingTask(t *testing.T) {
	t.Parallel()

	queue := NewTaskQueue(4, setupTestLogger())
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())

	failures := make(chan error, 1)
	pool.SetErrorHandler(func(_ Task, err error) { failures <- err })

	var after atomic.Bool
	require.NoError(t, queue.Enqueue(newFuncTask(func(context.Context) error { panic("nil deck") })))
	require.NoError(t, queue.Enqueue(newFuncTask(func(context.Context) error {
		after.Store(true)
		return nil
	})))

	pool.Start()
	defer pool.Stop()

	select {
	case err := <-failures:
		assert.ErrorContains(t, err, "task panicked: nil deck")
	case <-time.After(time.Second):
		t.Fatal("panic was not reported")
	}
	assert.Eventually(t, after.Load, time.Second, 5*time.Millisecond)
}
