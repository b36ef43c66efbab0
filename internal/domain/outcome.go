package domain

import (
	"fmt"
	"strings"
)

// Outcome is the user's self-assessed result of a single review.
type Outcome string

// Outcomes accepted by the adaptive algorithm, in order of quality.
const (
	OutcomeAgain Outcome = "again"
	OutcomeHard  Outcome = "hard"
	OutcomeGood  Outcome = "good"
	OutcomeEasy  Outcome = "easy"
)

// Outcomes accepted by the fixed ladder algorithm.
const (
	OutcomeForgot     Outcome = "forgot"
	OutcomeRemembered Outcome = "remembered"
)

// Quality returns the ordinal quality of an adaptive outcome on a 0-3 scale.
// Ladder outcomes map onto the same scale (forgot 0, remembered 2) and
// unknown outcomes return -1.
func (o Outcome) Quality() int {
	switch o {
	case OutcomeAgain, OutcomeForgot:
		return 0
	case OutcomeHard:
		return 1
	case OutcomeGood, OutcomeRemembered:
		return 2
	case OutcomeEasy:
		return 3
	default:
		return -1
	}
}

// Valid reports whether the outcome is one of the known values.
func (o Outcome) Valid() bool {
	return o.Quality() >= 0
}

// ParseOutcome converts user input into an Outcome, ignoring case and
// surrounding whitespace.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(strings.ToLower(strings.TrimSpace(s)))
	if !o.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
	}
	return o, nil
}
