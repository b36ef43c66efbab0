package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-cue/internal/platform/logger"
	"github.com/phrazzld/scry-cue/internal/service/trigger"
)

// TimerTicker is the part of the trigger engine a timer task needs.
type TimerTicker interface {
	Tick(ctx context.Context, userID string) (trigger.Result, error)
}

// TimerTask ticks one user's interval timer.
type TimerTask struct {
	id     uuid.UUID
	userID string
	engine TimerTicker
	logger *slog.Logger
	done   func(userID string)
}

// NewTimerTask creates a task that ticks userID's timer on engine. done, if
// set, runs after every execution whatever its outcome.
func NewTimerTask(engine TimerTicker, userID string, logger *slog.Logger, done func(string)) *TimerTask {
	return &TimerTask{
		id:     uuid.New(),
		userID: userID,
		engine: engine,
		logger: logger,
		done:   done,
	}
}

// ID returns the task's unique identifier
func (t *TimerTask) ID() uuid.UUID {
	return t.id
}

// Type returns TaskTypeTimerTick
func (t *TimerTask) Type() string {
	return TaskTypeTimerTick
}

// UserID returns the user whose timer is checked
func (t *TimerTask) UserID() string {
	return t.userID
}

// Execute ticks the timer and logs a fired prompt.
func (t *TimerTask) Execute(ctx context.Context) error {
	if t.done != nil {
		defer t.done(t.userID)
	}

	log := t.logger.With("user_id", t.userID, "task_id", t.id)
	ctx = logger.WithLogger(ctx, log)

	res, err := t.engine.Tick(ctx, t.userID)
	if err != nil {
		return fmt.Errorf("tick timer for user %s: %w", t.userID, err)
	}

	if res.Fired {
		cardID := ""
		if res.Card != nil {
			cardID = res.Card.ID
		}
		log.Info("timer prompt fired", "card_id", cardID)
	} else {
		log.Debug("timer not fired", "reason", res.Reason)
	}
	return nil
}
