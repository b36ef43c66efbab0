package domain

import (
	"fmt"
	"strings"
	"time"
)

// Initial values for a card that has never been reviewed.
const (
	InitialEaseFactor   = 2.5
	InitialIntervalDays = 1
	MinEaseFactor       = 1.3
)

// ReviewState tracks one user's spaced repetition progress on one card.
// A ReviewState only changes in response to a review outcome; the interval
// algorithms in package srs return fresh values rather than mutating it.
type ReviewState struct {
	CardID         string    `json:"card_id"`
	IntervalDays   int       `json:"interval_days"`    // Current interval in days
	EaseFactor     float64   `json:"ease_factor"`      // Difficulty modifier, never below MinEaseFactor
	Repetitions    int       `json:"repetitions"`      // Consecutive successful reviews (ladder: current rung)
	LastReviewedAt time.Time `json:"last_reviewed_at"` // Zero when never reviewed
	NextDueAt      time.Time `json:"next_due_at"`
}

// NewReviewState returns the state of a card the user has never reviewed.
// The card is due immediately.
func NewReviewState(cardID string, now time.Time) ReviewState {
	return ReviewState{
		CardID:       cardID,
		IntervalDays: InitialIntervalDays,
		EaseFactor:   InitialEaseFactor,
		Repetitions:  0,
		NextDueAt:    now,
	}
}

// IsNew reports whether the card has never been successfully reviewed.
func (s ReviewState) IsNew() bool {
	return s.Repetitions == 0 && s.LastReviewedAt.IsZero()
}

// IsDue reports whether the card should be reviewed at now.
func (s ReviewState) IsDue(now time.Time) bool {
	return !now.Before(s.NextDueAt)
}

// Validate checks the state's invariants.
func (s ReviewState) Validate() error {
	if strings.TrimSpace(s.CardID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidReviewState, ErrEmptyCardID)
	}
	if s.IntervalDays < 1 {
		return fmt.Errorf("%w: interval must be at least 1 day, got %d", ErrInvalidReviewState, s.IntervalDays)
	}
	// Small tolerance for values that went through a float round trip.
	if s.EaseFactor < MinEaseFactor-1e-9 {
		return fmt.Errorf("%w: ease factor must be at least %.1f, got %f", ErrInvalidReviewState, MinEaseFactor, s.EaseFactor)
	}
	if s.Repetitions < 0 {
		return fmt.Errorf("%w: repetitions cannot be negative, got %d", ErrInvalidReviewState, s.Repetitions)
	}
	return nil
}
