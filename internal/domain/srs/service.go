package srs

import (
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/scry-cue/internal/domain"
)

// Common errors
var (
	ErrNilState         = errors.New("review state cannot be nil")
	ErrUnknownAlgorithm = errors.New("unknown interval algorithm")
)

// OutcomePreview describes the effect of one possible answer.
type OutcomePreview struct {
	Outcome  domain.Outcome     `json:"outcome"`
	State    domain.ReviewState `json:"state"`
	Interval time.Duration      `json:"interval"`
	Label    string             `json:"label"`
}

// Service defines the interface for SRS algorithm operations
type Service interface {
	// Algorithm returns the name of the configured algorithm.
	Algorithm() string

	// Outcomes lists the outcomes the configured algorithm accepts.
	Outcomes() []domain.Outcome

	// CalculateNextReview computes a new state based on a review outcome
	CalculateNextReview(
		state *domain.ReviewState,
		outcome domain.Outcome,
		now time.Time,
	) (*domain.ReviewState, error)

	// PreviewOutcomes reports the effect of every accepted outcome without
	// changing anything.
	PreviewOutcomes(state *domain.ReviewState, now time.Time) ([]OutcomePreview, error)
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	alg Algorithm
}

// NewService wraps an algorithm with input validation.
func NewService(alg Algorithm) Service {
	return &defaultService{alg: alg}
}

// NewDefaultService creates a new SRS service using the adaptive algorithm with default parameters
func NewDefaultService() Service {
	return NewService(NewAdaptive(nil))
}

// New creates a service for the named algorithm.
func New(name string, params *Params) (Service, error) {
	switch name {
	case AlgorithmAdaptive, "":
		if params != nil {
			if err := params.Validate(); err != nil {
				return nil, err
			}
		}
		return NewService(NewAdaptive(params)), nil
	case AlgorithmLadder:
		ladder, err := NewLadder()
		if err != nil {
			return nil, err
		}
		return NewService(ladder), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

func (s *defaultService) Algorithm() string {
	return s.alg.Name()
}

func (s *defaultService) Outcomes() []domain.Outcome {
	return s.alg.Outcomes()
}

// CalculateNextReview implements the Service interface for calculating an updated state
func (s *defaultService) CalculateNextReview(
	state *domain.ReviewState,
	outcome domain.Outcome,
	now time.Time,
) (*domain.ReviewState, error) {
	if state == nil {
		return nil, ErrNilState
	}

	if err := state.Validate(); err != nil {
		return nil, err
	}

	next, err := s.alg.Apply(state, outcome, now)
	if err != nil {
		return nil, fmt.Errorf("%s does not accept %q: %w", s.alg.Name(), outcome, err)
	}

	return next, nil
}

// PreviewOutcomes implements the Service interface
func (s *defaultService) PreviewOutcomes(state *domain.ReviewState, now time.Time) ([]OutcomePreview, error) {
	if state == nil {
		return nil, ErrNilState
	}

	if err := state.Validate(); err != nil {
		return nil, err
	}

	outcomes := s.alg.Outcomes()
	previews := make([]OutcomePreview, 0, len(outcomes))
	for _, outcome := range outcomes {
		next, wait, err := Preview(s.alg, state, outcome, now)
		if err != nil {
			return nil, err
		}
		previews = append(previews, OutcomePreview{
			Outcome:  outcome,
			State:    *next,
			Interval: wait,
			Label:    FormatInterval(wait),
		})
	}

	return previews, nil
}
