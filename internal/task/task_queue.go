package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// TaskQueue is a bounded, non-blocking queue backed by a buffered channel.
type TaskQueue struct {
	ch     chan Task
	logger *slog.Logger

	mu     sync.Mutex // guards closed and the send/close race on ch
	closed bool
}

var (
	_ TaskQueueReader = (*TaskQueue)(nil)
	_ TaskQueueWriter = (*TaskQueue)(nil)
)

// NewTaskQueue returns a queue holding at most size tasks. Sizes below one
// are raised to one.
func NewTaskQueue(size int, logger *slog.Logger) *TaskQueue {
	return &TaskQueue{ch: make(chan Task, max(size, 1)), logger: logger}
}

func (q *TaskQueue) Enqueue(task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.ch <- task:
	default:
		return fmt.Errorf("%w (capacity %d)", ErrQueueFull, cap(q.ch))
	}
	q.logger.Debug("task enqueued", "task_id", task.ID(), "task_type", task.Type(), "depth", len(q.ch))
	return nil
}

// Close stops further submissions. Buffered tasks remain readable. Safe to
// call more than once.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

func (q *TaskQueue) Tasks() <-chan Task {
	return q.ch
}
