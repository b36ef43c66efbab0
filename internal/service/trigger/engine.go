// Package trigger decides when gameplay events should interrupt play with a
// flashcard review.
//
// Each event kind counts matching events up to a threshold, then checks its
// own cooldown and a global cooldown shared by all kinds before asking the
// scheduler for a card. The timer kind fires on elapsed play time instead
// of counted events.
package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/scry-cue/internal/domain"
	"github.com/phrazzld/scry-cue/internal/events"
	"github.com/phrazzld/scry-cue/internal/platform/logger"
	"github.com/phrazzld/scry-cue/internal/service/card_review"
)

// Scheduler picks cards for fired triggers.
type Scheduler interface {
	PickNext(ctx context.Context, userID string) (domain.Card, bool, error)
	Stats(ctx context.Context, userID string) (card_review.Stats, error)
}

// Progress materializes review state for picked cards.
type Progress interface {
	GetOrCreate(ctx context.Context, userID, cardID string) (domain.ReviewState, error)
}

// Event is a gameplay event reported by a client.
type Event struct {
	UserID string `json:"user_id"`
	Kind   Kind   `json:"kind"`
	// Subject identifies what the event concerns, such as a block or
	// entity ID. It is matched against the kind's whitelist.
	Subject string `json:"subject,omitempty"`
	// Text is the chat message for chat events.
	Text string `json:"text,omitempty"`
}

// Reason explains why a trigger did not fire.
type Reason string

// Reasons
const (
	ReasonDisabled            Reason = "disabled"
	ReasonFiltered            Reason = "filtered"
	ReasonThresholdNotReached Reason = "threshold_not_reached"
	ReasonCooldown            Reason = "cooldown"
	ReasonNothingDue          Reason = "nothing_due"
	// ReasonNoSession means the timer ticked for a user whose session has
	// ended.
	ReasonNoSession Reason = "no_session"
)

// Result is a trigger decision. Fired results carry the card and its state;
// the others carry a Reason plus whatever detail applies to it.
type Result struct {
	Fired  bool   `json:"fired"`
	Kind   Kind   `json:"kind"`
	Reason Reason `json:"reason,omitempty"`

	Card  *domain.Card        `json:"card,omitempty"`
	State *domain.ReviewState `json:"state,omitempty"`

	// Count and Threshold report progress for ThresholdNotReached.
	Count     int `json:"count,omitempty"`
	Threshold int `json:"threshold,omitempty"`

	// RetryAfter is the remaining wait for Cooldown.
	RetryAfter time.Duration `json:"retry_after,omitempty"`

	// Stats is set for NothingDue.
	Stats *card_review.Stats `json:"stats,omitempty"`
}

func notFired(kind Kind, reason Reason) Result {
	return Result{Kind: kind, Reason: reason}
}

type session struct {
	mu              sync.Mutex
	ended           bool
	started         time.Time
	counters        map[Kind]int
	lastFired       map[Kind]time.Time
	globalLastFired time.Time
}

// Engine holds per-user trigger state. Each user's decisions are
// serialized; different users never wait on each other.
type Engine struct {
	cfg       Config
	scheduler Scheduler
	progress  Progress
	emitter   events.EventEmitter
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithEmitter publishes timer decisions through emitter.
func WithEmitter(emitter events.EventEmitter) Option {
	return func(e *Engine) { e.emitter = emitter }
}

// New creates an engine. The config is validated.
func New(cfg Config, scheduler Scheduler, progress Progress, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if scheduler == nil {
		return nil, fmt.Errorf("scheduler cannot be nil")
	}
	if progress == nil {
		return nil, fmt.Errorf("progress cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		cfg:       cfg,
		scheduler: scheduler,
		progress:  progress,
		logger:    logger.With(slog.String("component", "trigger_engine")),
		now:       func() time.Time { return time.Now().UTC() },
		sessions:  make(map[string]*session),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// lock returns the user's session locked, starting one if needed.
func (e *Engine) lock(userID string) *session {
	for {
		e.mu.RLock()
		s, ok := e.sessions[userID]
		e.mu.RUnlock()

		if !ok {
			e.mu.Lock()
			s, ok = e.sessions[userID]
			if !ok {
				s = &session{
					started:   e.now(),
					counters:  make(map[Kind]int),
					lastFired: make(map[Kind]time.Time),
				}
				e.sessions[userID] = s
			}
			e.mu.Unlock()
		}

		s.mu.Lock()
		if !s.ended {
			return s
		}
		s.mu.Unlock()
	}
}

// active returns the user's live session locked. Unlike lock it never
// starts one.
func (e *Engine) active(userID string) (*session, bool) {
	e.mu.RLock()
	s, ok := e.sessions[userID]
	e.mu.RUnlock()
	if !ok {
		return nil, false
	}

	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil, false
	}
	return s, true
}

// RecordEvent counts a gameplay event and decides whether it triggers a
// review. Errors are reserved for bad input and scheduler failures; every
// ordinary "no" is a Result with a Reason.
func (e *Engine) RecordEvent(ctx context.Context, ev Event) (Result, error) {
	if strings.TrimSpace(ev.UserID) == "" {
		return Result{}, domain.ErrEmptyUserID
	}
	if ev.Kind == KindTimer {
		return Result{}, ErrTimerNotReportable
	}
	kc, ok := e.cfg.Kinds[ev.Kind]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownKind, ev.Kind)
	}

	log := logger.FromContextOrDefault(ctx, e.logger).With(
		slog.String("user_id", ev.UserID),
		slog.String("kind", string(ev.Kind)))

	if !kc.Enabled {
		return notFired(ev.Kind, ReasonDisabled), nil
	}
	if !kc.matches(ev.Kind, ev) {
		log.Debug("event filtered", slog.String("subject", ev.Subject))
		return notFired(ev.Kind, ReasonFiltered), nil
	}

	s := e.lock(ev.UserID)
	defer s.mu.Unlock()

	s.counters[ev.Kind]++
	if count := s.counters[ev.Kind]; count < kc.Threshold {
		res := notFired(ev.Kind, ReasonThresholdNotReached)
		res.Count, res.Threshold = count, kc.Threshold
		return res, nil
	}
	s.counters[ev.Kind] = 0

	now := e.now()
	if wait := remaining(s.lastFired[ev.Kind], kc.Cooldown, now); wait > 0 {
		log.Debug("trigger cooldown active", slog.Duration("remaining", wait))
		res := notFired(ev.Kind, ReasonCooldown)
		res.RetryAfter = wait
		return res, nil
	}
	if wait := remaining(s.globalLastFired, e.cfg.GlobalCooldown, now); wait > 0 {
		log.Debug("global cooldown active", slog.Duration("remaining", wait))
		res := notFired(ev.Kind, ReasonCooldown)
		res.RetryAfter = wait
		return res, nil
	}

	return e.fire(ctx, log, ev.UserID, ev.Kind, s, now)
}

// Tick checks the user's timer. It fires once TimerInterval has passed
// since the timer last fired, or since the session started. Users without a
// live session get NoSession; a tick never starts a session. Timer firings
// skip counting and the per-kind cooldown but respect the global cooldown.
// Fired and NothingDue decisions are published to the emitter.
func (e *Engine) Tick(ctx context.Context, userID string) (Result, error) {
	if strings.TrimSpace(userID) == "" {
		return Result{}, domain.ErrEmptyUserID
	}
	if !e.cfg.Kinds[KindTimer].Enabled {
		return notFired(KindTimer, ReasonDisabled), nil
	}

	log := logger.FromContextOrDefault(ctx, e.logger).With(
		slog.String("user_id", userID),
		slog.String("kind", string(KindTimer)))

	s, ok := e.active(userID)
	if !ok {
		log.Debug("timer tick for ended session")
		return notFired(KindTimer, ReasonNoSession), nil
	}
	defer s.mu.Unlock()

	now := e.now()
	since := s.lastFired[KindTimer]
	if since.IsZero() {
		since = s.started
	}
	if wait := remaining(since, e.cfg.TimerInterval, now); wait > 0 {
		res := notFired(KindTimer, ReasonCooldown)
		res.RetryAfter = wait
		return res, nil
	}
	if wait := remaining(s.globalLastFired, e.cfg.GlobalCooldown, now); wait > 0 {
		log.Debug("global cooldown delays timer", slog.Duration("remaining", wait))
		res := notFired(KindTimer, ReasonCooldown)
		res.RetryAfter = wait
		return res, nil
	}

	// The interval is spent whether or not a card is found.
	s.lastFired[KindTimer] = now

	res, err := e.fire(ctx, log, userID, KindTimer, s, now)
	if err != nil {
		return res, err
	}
	e.publish(ctx, log, userID, res)
	return res, nil
}

// fire picks a card and records the firing. Called with s.mu held.
func (e *Engine) fire(ctx context.Context, log *slog.Logger, userID string, kind Kind, s *session, now time.Time) (Result, error) {
	card, ok, err := e.scheduler.PickNext(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("pick next card: %w", err)
	}
	if !ok {
		stats, err := e.scheduler.Stats(ctx, userID)
		if err != nil {
			return Result{}, fmt.Errorf("scheduler stats: %w", err)
		}
		log.Info("trigger fired but nothing to review",
			slog.Int("total", stats.Total),
			slog.Int("reviewed_not_due", stats.ReviewedNotDue))
		res := notFired(kind, ReasonNothingDue)
		res.Stats = &stats
		return res, nil
	}

	state, err := e.progress.GetOrCreate(ctx, userID, card.ID)
	if err != nil {
		return Result{}, fmt.Errorf("load review state: %w", err)
	}

	s.lastFired[kind] = now
	s.globalLastFired = now

	log.Info("trigger fired", slog.String("card_id", card.ID))
	return Result{Fired: true, Kind: kind, Card: &card, State: &state}, nil
}

func (e *Engine) publish(ctx context.Context, log *slog.Logger, userID string, res Result) {
	if e.emitter == nil {
		return
	}

	eventType := events.TypeReviewTriggered
	if !res.Fired {
		if res.Reason != ReasonNothingDue {
			return
		}
		eventType = events.TypeNothingDue
	}

	event, err := events.NewEvent(eventType, userID, res)
	if err != nil {
		log.Error("failed to encode trigger decision", slog.String("error", err.Error()))
		return
	}
	if err := e.emitter.EmitEvent(ctx, event); err != nil {
		log.Error("failed to publish trigger decision",
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()))
	}
}

// StartSession begins tracking the user, which starts the timer. Events
// start a session implicitly; starting an active session does nothing.
func (e *Engine) StartSession(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrEmptyUserID
	}
	s := e.lock(userID)
	s.mu.Unlock()
	return nil
}

// EndSession forgets the user's counters, cooldowns and timer.
func (e *Engine) EndSession(userID string) {
	e.mu.RLock()
	s, ok := e.sessions[userID]
	e.mu.RUnlock()
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = true

	e.mu.Lock()
	if e.sessions[userID] == s {
		delete(e.sessions, userID)
	}
	e.mu.Unlock()

	e.logger.Debug("trigger session ended", slog.String("user_id", userID))
}

// ActiveUsers lists users with a live session, sorted.
func (e *Engine) ActiveUsers() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	users := make([]string, 0, len(e.sessions))
	for id := range e.sessions {
		users = append(users, id)
	}
	sort.Strings(users)
	return users
}

// remaining returns how much of window is left after last. A zero last
// means the window never started.
func remaining(last time.Time, window time.Duration, now time.Time) time.Duration {
	if last.IsZero() || window <= 0 {
		return 0
	}
	if elapsed := now.Sub(last); elapsed < window {
		return window - elapsed
	}
	return 0
}
