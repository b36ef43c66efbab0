package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// DefaultInboxCapacity bounds each user's queue.
const DefaultInboxCapacity = 16

// ErrNilEvent is returned when a nil event is handled.
var ErrNilEvent = errors.New("event cannot be nil")

// Inbox queues events per user until the user's client polls for them.
// When a queue is full the oldest event is dropped.
type Inbox struct {
	capacity int
	logger   *slog.Logger

	mu     sync.Mutex
	queues map[string][]*Event
}

var _ EventHandler = (*Inbox)(nil)

// NewInbox creates an inbox holding at most capacity events per user.
// A capacity below 1 uses DefaultInboxCapacity.
func NewInbox(capacity int, logger *slog.Logger) *Inbox {
	if capacity < 1 {
		capacity = DefaultInboxCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{
		capacity: capacity,
		logger:   logger.With("component", "event_inbox"),
		queues:   make(map[string][]*Event),
	}
}

// HandleEvent implements EventHandler.
func (i *Inbox) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return ErrNilEvent
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	q := append(i.queues[event.UserID], event)
	if over := len(q) - i.capacity; over > 0 {
		i.logger.WarnContext(ctx, "inbox full, dropping oldest events",
			"user_id", event.UserID,
			"dropped", over)
		q = q[over:]
	}
	i.queues[event.UserID] = q
	return nil
}

// Pop removes and returns the user's oldest event.
func (i *Inbox) Pop(userID string) (*Event, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	q := i.queues[userID]
	if len(q) == 0 {
		return nil, false
	}
	event := q[0]
	if len(q) == 1 {
		delete(i.queues, userID)
	} else {
		i.queues[userID] = q[1:]
	}
	return event, true
}

// Len returns the number of events waiting for the user.
func (i *Inbox) Len(userID string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.queues[userID])
}

// Clear drops every event waiting for the user.
func (i *Inbox) Clear(userID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.queues, userID)
}
