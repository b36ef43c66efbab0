// Package progress keeps each user's review states in memory, loading them
// lazily from a store.ProgressStore and writing the full snapshot back on
// every mutation.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/scry-cue/internal/domain"
	"github.com/phrazzld/scry-cue/internal/platform/logger"
	"github.com/phrazzld/scry-cue/internal/store"
)

// Thresholds used to bucket reviewed cards by repetition count.
const (
	weakBelow   = 3
	middleBelow = 5
)

// Stats summarizes a user's progress.
// Weak, Middle and Strong partition Total by repetition count.
type Stats struct {
	Total  int `json:"total"`
	Due    int `json:"due"`
	New    int `json:"new"`
	Weak   int `json:"weak"`
	Middle int `json:"middle"`
	Strong int `json:"strong"`
}

// Store is the in-memory progress cache. Each user has an independent lock,
// so operations for different users never wait on each other.
type Store struct {
	backend store.ProgressStore
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.RWMutex
	users map[string]*userProgress
}

type userProgress struct {
	mu      sync.Mutex
	loaded  bool
	evicted bool
	states  map[string]domain.ReviewState
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for new states and due checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a progress store on top of backend.
func New(backend store.ProgressStore, log *slog.Logger, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, errors.New("backend cannot be nil")
	}
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}

	s := &Store{
		backend: backend,
		logger:  log.With(slog.String("component", "progress_store")),
		now:     func() time.Time { return time.Now().UTC() },
		users:   make(map[string]*userProgress),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// user returns the entry for userID, creating it if needed. The index lock is
// only held for the map access.
func (s *Store) user(userID string) *userProgress {
	s.mu.RLock()
	u, ok := s.users[userID]
	s.mu.RUnlock()
	if ok {
		return u
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok = s.users[userID]; !ok {
		u = &userProgress{}
		s.users[userID] = u
	}
	return u
}

// lock acquires the user's lock and makes sure their snapshot is loaded.
// The caller must unlock u.mu.
func (s *Store) lock(ctx context.Context, userID string) *userProgress {
	for {
		u := s.user(userID)
		u.mu.Lock()
		if u.evicted {
			u.mu.Unlock()
			continue
		}
		if !u.loaded {
			s.load(ctx, userID, u)
		}
		return u
	}
}

func (s *Store) load(ctx context.Context, userID string, u *userProgress) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	states, err := s.backend.LoadProgress(ctx, userID)
	if err != nil {
		// Progress is best effort: an unreadable snapshot starts the user fresh.
		log.Error("failed to load progress, starting empty",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		states = nil
	}
	if states == nil {
		states = make(map[string]domain.ReviewState)
	}

	u.states = states
	u.loaded = true
	log.Debug("loaded progress",
		slog.String("user_id", userID),
		slog.Int("states", len(states)))
}

// persist writes the user's full snapshot. Failures are logged and the
// in-memory state stays authoritative.
func (s *Store) persist(ctx context.Context, userID string, u *userProgress) {
	if err := s.backend.SaveProgress(ctx, userID, store.CloneStates(u.states)); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to persist progress",
			slog.String("user_id", userID),
			slog.Int("states", len(u.states)),
			slog.String("error", err.Error()))
	}
}

func validateIDs(userID, cardID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrEmptyUserID
	}
	if strings.TrimSpace(cardID) == "" {
		return domain.ErrEmptyCardID
	}
	return nil
}

// Get returns the user's state for cardID, if any.
func (s *Store) Get(ctx context.Context, userID, cardID string) (domain.ReviewState, bool) {
	u := s.lock(ctx, userID)
	defer u.mu.Unlock()

	state, ok := u.states[cardID]
	return state, ok
}

// GetOrCreate returns the user's state for cardID, creating and persisting a
// fresh state when none exists.
func (s *Store) GetOrCreate(ctx context.Context, userID, cardID string) (domain.ReviewState, error) {
	if err := validateIDs(userID, cardID); err != nil {
		return domain.ReviewState{}, err
	}

	u := s.lock(ctx, userID)
	defer u.mu.Unlock()

	if state, ok := u.states[cardID]; ok {
		return state, nil
	}

	state := domain.NewReviewState(cardID, s.now())
	u.states[cardID] = state
	s.persist(ctx, userID, u)
	return state, nil
}

// Update stores state for the user, replacing any previous state of the card.
func (s *Store) Update(ctx context.Context, userID string, state domain.ReviewState) error {
	if err := validateIDs(userID, state.CardID); err != nil {
		return err
	}
	if err := state.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	u := s.lock(ctx, userID)
	defer u.mu.Unlock()

	u.states[state.CardID] = state
	s.persist(ctx, userID, u)
	return nil
}

// Reset forgets the user's progress on cardID. Resetting a card without
// progress does nothing.
func (s *Store) Reset(ctx context.Context, userID, cardID string) {
	u := s.lock(ctx, userID)
	defer u.mu.Unlock()

	if _, ok := u.states[cardID]; !ok {
		return
	}
	delete(u.states, cardID)
	s.persist(ctx, userID, u)
}

// AllStates returns a copy of every state the user has.
func (s *Store) AllStates(ctx context.Context, userID string) map[string]domain.ReviewState {
	u := s.lock(ctx, userID)
	defer u.mu.Unlock()

	return store.CloneStates(u.states)
}

// DueCardIDs returns the IDs of due cards, most overdue first.
func (s *Store) DueCardIDs(ctx context.Context, userID string) []string {
	now := s.now()

	u := s.lock(ctx, userID)
	due := make([]domain.ReviewState, 0, len(u.states))
	for _, state := range u.states {
		if state.IsDue(now) {
			due = append(due, state)
		}
	}
	u.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].NextDueAt.Equal(due[j].NextDueAt) {
			return due[i].CardID < due[j].CardID
		}
		return due[i].NextDueAt.Before(due[j].NextDueAt)
	})

	ids := make([]string, len(due))
	for i, state := range due {
		ids[i] = state.CardID
	}
	return ids
}

// NewCardIDs returns the candidates the user has no state for, in order.
func (s *Store) NewCardIDs(ctx context.Context, userID string, candidates []string) []string {
	u := s.lock(ctx, userID)
	defer u.mu.Unlock()

	var ids []string
	for _, id := range candidates {
		if _, ok := u.states[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Stats summarizes the user's stored states.
func (s *Store) Stats(ctx context.Context, userID string) Stats {
	now := s.now()

	u := s.lock(ctx, userID)
	defer u.mu.Unlock()

	var stats Stats
	for _, state := range u.states {
		stats.Total++
		if state.IsDue(now) {
			stats.Due++
		}
		if state.IsNew() {
			stats.New++
		}
		switch {
		case state.Repetitions < weakBelow:
			stats.Weak++
		case state.Repetitions < middleBelow:
			stats.Middle++
		default:
			stats.Strong++
		}
	}
	return stats
}

// Evict drops the user's cached states. The next access reloads them from
// the backend. Every mutation has already been written through, so nothing
// is lost.
func (s *Store) Evict(userID string) {
	s.mu.RLock()
	u, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return
	}

	// Holding the user lock waits out in-flight operations; anyone queued
	// behind us sees evicted and retries on a fresh entry.
	u.mu.Lock()
	defer u.mu.Unlock()
	u.evicted = true

	s.mu.Lock()
	if s.users[userID] == u {
		delete(s.users, userID)
	}
	s.mu.Unlock()
}
