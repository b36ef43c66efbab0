package task

import (
	"context"

	"github.com/google/uuid"
)

// TaskTypeTimerTick checks one user's interval timer.
const TaskTypeTimerTick = "timer_tick"

// Task is one unit of background work.
type Task interface {
	ID() uuid.UUID
	Type() string
	Execute(ctx context.Context) error
}

// TaskQueueReader is the consumer side of a queue. Workers range over Tasks
// until it is closed.
type TaskQueueReader interface {
	Tasks() <-chan Task
}

// TaskQueueWriter is the producer side of a queue.
type TaskQueueWriter interface {
	// Enqueue never blocks; it fails with ErrQueueFull or ErrQueueClosed.
	Enqueue(task Task) error
	Close()
}
