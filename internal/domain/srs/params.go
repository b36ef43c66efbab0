package srs

import (
	"errors"
	"fmt"
)

// ErrInvalidParams is returned when algorithm parameters are inconsistent.
var ErrInvalidParams = errors.New("invalid SRS parameters")

// Params defines all configurable parameters for the adaptive algorithm
type Params struct {
	// Core limits
	InitialEaseFactor float64
	MinEaseFactor     float64

	// Fixed intervals (in days) for the first two successful reviews
	FirstInterval  int
	SecondInterval int

	// Outcomes with a quality below PassingQuality reset the card
	PassingQuality int
	MaxQuality     int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance
type ParamsConfig struct {
	InitialEaseFactor float64
	MinEaseFactor     float64
	FirstInterval     int
	SecondInterval    int
	PassingQuality    int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		InitialEaseFactor: 2.5,
		MinEaseFactor:     1.3,
		FirstInterval:     1,
		SecondInterval:    6,
		PassingQuality:    2,
		MaxQuality:        3,
	}
}

// NewParams creates a new Params instance with custom configuration.
// Zero values in config keep the defaults.
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.InitialEaseFactor > 0 {
		params.InitialEaseFactor = config.InitialEaseFactor
	}
	if config.MinEaseFactor > 0 {
		params.MinEaseFactor = config.MinEaseFactor
	}
	if config.FirstInterval > 0 {
		params.FirstInterval = config.FirstInterval
	}
	if config.SecondInterval > 0 {
		params.SecondInterval = config.SecondInterval
	}
	if config.PassingQuality > 0 {
		params.PassingQuality = config.PassingQuality
	}

	return params
}

// Validate checks that the parameters keep the algorithm's invariants intact.
func (p *Params) Validate() error {
	if p.MinEaseFactor < 1.3 {
		return fmt.Errorf("%w: min ease factor %.2f is below 1.3", ErrInvalidParams, p.MinEaseFactor)
	}
	if p.InitialEaseFactor < p.MinEaseFactor {
		return fmt.Errorf("%w: initial ease factor %.2f is below the minimum %.2f",
			ErrInvalidParams, p.InitialEaseFactor, p.MinEaseFactor)
	}
	if p.FirstInterval < 1 || p.SecondInterval < p.FirstInterval {
		return fmt.Errorf("%w: intervals must satisfy 1 <= first (%d) <= second (%d)",
			ErrInvalidParams, p.FirstInterval, p.SecondInterval)
	}
	if p.PassingQuality < 1 || p.PassingQuality > p.MaxQuality {
		return fmt.Errorf("%w: passing quality %d outside 1..%d", ErrInvalidParams, p.PassingQuality, p.MaxQuality)
	}
	return nil
}
