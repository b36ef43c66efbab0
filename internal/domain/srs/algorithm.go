package srs

import (
	"math"
	"time"

	"github.com/phrazzld/scry-cue/internal/domain"
)

// Names of the built-in interval algorithms.
const (
	AlgorithmAdaptive = "sm2"
	AlgorithmLadder   = "ladder"
)

// Algorithm computes the next review state of a card from a review outcome.
//
// Implementations are pure: Apply never modifies the state it is given and
// always returns a freshly allocated value, which is what makes previews
// free of side effects.
type Algorithm interface {
	// Name identifies the algorithm in configuration and logs.
	Name() string

	// Outcomes lists the outcomes the algorithm accepts, worst first.
	Outcomes() []domain.Outcome

	// Apply returns the state that results from answering with outcome at now.
	// It returns domain.ErrInvalidOutcome for outcomes not listed by Outcomes.
	Apply(state *domain.ReviewState, outcome domain.Outcome, now time.Time) (*domain.ReviewState, error)
}

// Adaptive is the SM-2 variant on a 0-3 quality scale.
type Adaptive struct {
	params *Params
}

// NewAdaptive creates the adaptive algorithm. A nil params uses the defaults.
func NewAdaptive(params *Params) *Adaptive {
	if params == nil {
		params = NewDefaultParams()
	}
	return &Adaptive{params: params}
}

// Name implements Algorithm.
func (a *Adaptive) Name() string { return AlgorithmAdaptive }

// Outcomes implements Algorithm.
func (a *Adaptive) Outcomes() []domain.Outcome {
	return []domain.Outcome{
		domain.OutcomeAgain,
		domain.OutcomeHard,
		domain.OutcomeGood,
		domain.OutcomeEasy,
	}
}

// Apply implements Algorithm.
func (a *Adaptive) Apply(
	state *domain.ReviewState,
	outcome domain.Outcome,
	now time.Time,
) (*domain.ReviewState, error) {
	if !accepts(a, outcome) {
		return nil, domain.ErrInvalidOutcome
	}
	return calculateNextState(state, outcome.Quality(), now, a.params), nil
}

// calculateNewEaseFactor determines the new ease factor for a review of the
// given quality.
//
// Parameters:
//   - currentEF: The current ease factor of the card
//   - quality: The review quality on a 0..params.MaxQuality scale
//   - params: Configuration parameters for the SRS algorithm
//
// Returns:
//   - The new ease factor, never below params.MinEaseFactor
//
// Algorithm behavior:
//   - With d = MaxQuality - quality, the ease changes by 0.1 - d*(0.08 + d*0.02)
//   - A perfect answer raises ease by 0.1, "good" leaves it unchanged and
//     failing answers lower it progressively harder
func calculateNewEaseFactor(currentEF float64, quality int, params *Params) float64 {
	d := float64(params.MaxQuality - quality)
	newEF := currentEF + (0.1 - d*(0.08+d*0.02))

	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}

	return newEF
}

// calculateNewInterval determines the interval in days after a review.
//
// Parameters:
//   - currentInterval: The current interval in days
//   - repetitions: The repetition count after this review was counted
//   - easeFactor: The card's updated ease factor
//   - passed: Whether the review quality reached params.PassingQuality
//   - params: Configuration parameters for the SRS algorithm
//
// Returns:
//   - The new interval in days, always at least 1
//
// Algorithm behavior:
//   - Failed reviews restart the card at params.FirstInterval
//   - The first and second successful reviews use the fixed
//     params.FirstInterval and params.SecondInterval
//   - Later reviews multiply the current interval by the ease factor, rounded
func calculateNewInterval(
	currentInterval int,
	repetitions int,
	easeFactor float64,
	passed bool,
	params *Params,
) int {
	if !passed {
		return params.FirstInterval
	}

	switch repetitions {
	case 1:
		return params.FirstInterval
	case 2:
		return params.SecondInterval
	}

	interval := int(math.Round(float64(currentInterval) * easeFactor))
	if interval < 1 {
		interval = 1
	}
	return interval
}

// calculateNextState creates a new ReviewState from the current one.
//
// The original state is copied, never modified. Repetitions reset to zero
// on failing reviews and grow by one otherwise; the review timestamp becomes
// now and the card is next due interval days later.
func calculateNextState(
	state *domain.ReviewState,
	quality int,
	now time.Time,
	params *Params,
) *domain.ReviewState {
	next := *state
	passed := quality >= params.PassingQuality

	next.EaseFactor = calculateNewEaseFactor(state.EaseFactor, quality, params)

	if passed {
		next.Repetitions = state.Repetitions + 1
	} else {
		next.Repetitions = 0
	}

	next.IntervalDays = calculateNewInterval(
		state.IntervalDays,
		next.Repetitions,
		next.EaseFactor,
		passed,
		params,
	)

	next.LastReviewedAt = now
	next.NextDueAt = now.AddDate(0, 0, next.IntervalDays)

	return &next
}

func accepts(alg Algorithm, outcome domain.Outcome) bool {
	for _, o := range alg.Outcomes() {
		if o == outcome {
			return true
		}
	}
	return false
}
