// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyUserID is returned when an operation is attempted without a user.
	ErrEmptyUserID = errors.New("user ID cannot be empty")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidOutcome is returned when a review outcome is not recognized
	// or not accepted by the active interval algorithm.
	ErrInvalidOutcome = errors.New("invalid review outcome")

	// ErrInvalidReviewState is returned when a review state violates its invariants.
	ErrInvalidReviewState = errors.New("invalid review state")
)

// ValidationError reports which field failed validation. It unwraps to the
// sentinel it was built with, usually ErrValidation.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
