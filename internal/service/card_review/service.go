// Package card_review decides which card a user should review next and
// records the answers they give.
package card_review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/scry-cue/internal/domain"
	"github.com/phrazzld/scry-cue/internal/domain/srs"
)

// CardSource is the catalog view the scheduler needs.
type CardSource interface {
	// EnabledCards returns the cards of enabled decks in catalog order,
	// each card ID at most once.
	EnabledCards(ctx context.Context) []domain.Card

	// Card finds a card by ID in any deck.
	Card(ctx context.Context, cardID string) (domain.Card, bool)
}

// ProgressTracker is the subset of the progress store the scheduler uses.
type ProgressTracker interface {
	Get(ctx context.Context, userID, cardID string) (domain.ReviewState, bool)
	GetOrCreate(ctx context.Context, userID, cardID string) (domain.ReviewState, error)
	Update(ctx context.Context, userID string, state domain.ReviewState) error
	Reset(ctx context.Context, userID, cardID string)
	AllStates(ctx context.Context, userID string) map[string]domain.ReviewState
}

// Stats counts the enabled cards for a user.
// ReviewedNotDue = Total - New - Due.
type Stats struct {
	Total          int `json:"total"`
	Due            int `json:"due"`
	New            int `json:"new"`
	ReviewedNotDue int `json:"reviewed_not_due"`
}

// Empty reports whether no enabled card exists at all.
func (s Stats) Empty() bool {
	return s.Total == 0
}

// AnswerResult is the outcome of a submitted answer.
type AnswerResult struct {
	Card     domain.Card        `json:"card"`
	Previous domain.ReviewState `json:"previous"`
	State    domain.ReviewState `json:"state"`
}

// CardReviewService schedules reviews from the catalog and progress store.
type CardReviewService interface {
	// PickNext returns the most overdue due card or, when nothing is due,
	// the first new card in catalog order. ok is false when neither exists.
	// It never creates review state.
	PickNext(ctx context.Context, userID string) (card domain.Card, ok bool, err error)

	// DueCards lists due cards, most overdue first. limit <= 0 is uncapped.
	DueCards(ctx context.Context, userID string, limit int) ([]domain.Card, error)

	// NewCards lists cards without review state in catalog order.
	// limit <= 0 is uncapped.
	NewCards(ctx context.Context, userID string, limit int) ([]domain.Card, error)

	// Stats counts enabled cards by scheduling status.
	Stats(ctx context.Context, userID string) (Stats, error)

	// SubmitAnswer applies outcome to the card's state and stores the result.
	//
	// Returns:
	//   - ErrCardNotFound when no deck holds the card
	//   - ErrInvalidAnswer when the algorithm does not accept the outcome
	SubmitAnswer(ctx context.Context, userID, cardID string, outcome domain.Outcome) (*AnswerResult, error)

	// PreviewAnswer reports where each accepted outcome would schedule the
	// card. Nothing is stored.
	PreviewAnswer(ctx context.Context, userID, cardID string) ([]srs.OutcomePreview, error)

	// ResetCard forgets the user's progress on the card.
	ResetCard(ctx context.Context, userID, cardID string) error

	// Outcomes lists the answers the configured algorithm accepts.
	Outcomes() []domain.Outcome
}

// Common error types for CardReviewService
var (
	// ErrCardNotFound indicates that no deck holds the card.
	ErrCardNotFound = errors.New("card not found")

	// ErrInvalidAnswer indicates an outcome the algorithm does not accept.
	ErrInvalidAnswer = errors.New("invalid answer")
)

// ServiceError wraps errors from the card review service with additional context.
// This allows consumers to differentiate between different types of service errors
// using errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "pick_next", "submit_answer")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError returns a ServiceError for the named operation.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// Option configures the service.
type Option func(*cardReviewServiceImpl)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *cardReviewServiceImpl) {
		if now != nil {
			s.now = now
		}
	}
}
