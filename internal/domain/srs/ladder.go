package srs

import (
	"fmt"
	"time"

	"github.com/phrazzld/scry-cue/internal/domain"
)

// DefaultLadderRungs are the waiting times of the fixed ladder, from the
// first rung (10 minutes) to the top rung (240 days).
var DefaultLadderRungs = []time.Duration{
	10 * time.Minute,
	20 * time.Minute,
	1440 * time.Minute,
	4320 * time.Minute,
	10080 * time.Minute,
	20160 * time.Minute,
	43200 * time.Minute,
	86400 * time.Minute,
	172800 * time.Minute,
	345600 * time.Minute,
}

// Ladder schedules reviews on a fixed table of rungs. Remembering a card
// climbs one rung, forgetting it drops back to the bottom.
//
// The current rung is stored in ReviewState.Repetitions. IntervalDays holds
// the rung's length in whole days, clamped to at least one.
type Ladder struct {
	rungs []time.Duration
}

// NewLadder creates a ladder with the given rungs, or DefaultLadderRungs when
// none are given. Rungs must be positive and strictly increasing.
func NewLadder(rungs ...time.Duration) (*Ladder, error) {
	if len(rungs) == 0 {
		rungs = DefaultLadderRungs
	}
	for i, r := range rungs {
		if r <= 0 {
			return nil, fmt.Errorf("%w: rung %d must be positive", ErrInvalidParams, i)
		}
		if i > 0 && r <= rungs[i-1] {
			return nil, fmt.Errorf("%w: rung %d (%s) must be longer than rung %d (%s)",
				ErrInvalidParams, i, r, i-1, rungs[i-1])
		}
	}
	return &Ladder{rungs: append([]time.Duration(nil), rungs...)}, nil
}

// Name implements Algorithm.
func (l *Ladder) Name() string { return AlgorithmLadder }

// Outcomes implements Algorithm.
func (l *Ladder) Outcomes() []domain.Outcome {
	return []domain.Outcome{domain.OutcomeForgot, domain.OutcomeRemembered}
}

// MaxLevel returns the index of the top rung.
func (l *Ladder) MaxLevel() int {
	return len(l.rungs) - 1
}

// CurrentLevel returns the rung a card currently sits on.
func (l *Ladder) CurrentLevel(state *domain.ReviewState) int {
	return min(state.Repetitions, l.MaxLevel())
}

// Rung returns the waiting time of the given level, clamped to the table.
func (l *Ladder) Rung(level int) time.Duration {
	level = max(0, min(level, l.MaxLevel()))
	return l.rungs[level]
}

// Apply implements Algorithm.
func (l *Ladder) Apply(
	state *domain.ReviewState,
	outcome domain.Outcome,
	now time.Time,
) (*domain.ReviewState, error) {
	var level int
	switch outcome {
	case domain.OutcomeRemembered:
		level = min(state.Repetitions+1, l.MaxLevel())
	case domain.OutcomeForgot:
		level = 0
	default:
		return nil, domain.ErrInvalidOutcome
	}

	wait := l.rungs[level]
	next := *state
	next.Repetitions = level
	next.IntervalDays = max(1, int(wait/(24*time.Hour)))
	next.LastReviewedAt = now
	next.NextDueAt = now.Add(wait)

	return &next, nil
}
