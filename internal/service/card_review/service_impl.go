package card_review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/phrazzld/scry-cue/internal/domain"
	"github.com/phrazzld/scry-cue/internal/domain/srs"
	"github.com/phrazzld/scry-cue/internal/platform/logger"
)

// Verify interface compliance at compile time
var _ CardReviewService = (*cardReviewServiceImpl)(nil)

// cardReviewServiceImpl implements the CardReviewService interface.
type cardReviewServiceImpl struct {
	cards      CardSource
	progress   ProgressTracker
	srsService srs.Service
	logger     *slog.Logger
	now        func() time.Time
}

// NewCardReviewService creates a new CardReviewService implementation.
func NewCardReviewService(
	cards CardSource,
	progress ProgressTracker,
	srsService srs.Service,
	logger *slog.Logger,
	opts ...Option,
) CardReviewService {
	if cards == nil {
		panic("cards cannot be nil")
	}
	if progress == nil {
		panic("progress cannot be nil")
	}
	if srsService == nil {
		panic("srsService cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &cardReviewServiceImpl{
		cards:      cards,
		progress:   progress,
		srsService: srsService,
		logger:     logger.With(slog.String("component", "card_review_service")),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type partition struct {
	due      []domain.Card
	fresh    []domain.Card
	reviewed int
}

// partition splits the enabled cards into due (sorted most overdue first,
// ties in catalog order) and new (catalog order).
func (s *cardReviewServiceImpl) partition(ctx context.Context, userID string) partition {
	now := s.now()
	cards := s.cards.EnabledCards(ctx)
	states := s.progress.AllStates(ctx, userID)

	var p partition
	dueAt := make(map[string]time.Time)
	for _, card := range cards {
		state, ok := states[card.ID]
		switch {
		case !ok:
			p.fresh = append(p.fresh, card)
		case state.IsDue(now):
			p.due = append(p.due, card)
			dueAt[card.ID] = state.NextDueAt
		default:
			p.reviewed++
		}
	}

	sort.SliceStable(p.due, func(i, j int) bool {
		return dueAt[p.due[i].ID].Before(dueAt[p.due[j].ID])
	})
	return p
}

func capCards(cards []domain.Card, limit int) []domain.Card {
	if limit > 0 && len(cards) > limit {
		cards = cards[:limit]
	}
	if cards == nil {
		return []domain.Card{}
	}
	return cards
}

func requireUser(operation, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return NewServiceError(operation, "user is required", domain.ErrEmptyUserID)
	}
	return nil
}

// PickNext implements CardReviewService.PickNext.
func (s *cardReviewServiceImpl) PickNext(ctx context.Context, userID string) (domain.Card, bool, error) {
	if err := requireUser("pick_next", userID); err != nil {
		return domain.Card{}, false, err
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	p := s.partition(ctx, userID)
	switch {
	case len(p.due) > 0:
		log.Debug("picked due card",
			slog.String("user_id", userID),
			slog.String("card_id", p.due[0].ID),
			slog.Int("due", len(p.due)))
		return p.due[0], true, nil
	case len(p.fresh) > 0:
		log.Debug("picked new card",
			slog.String("user_id", userID),
			slog.String("card_id", p.fresh[0].ID))
		return p.fresh[0], true, nil
	default:
		log.Debug("nothing to review", slog.String("user_id", userID))
		return domain.Card{}, false, nil
	}
}

// DueCards implements CardReviewService.DueCards.
func (s *cardReviewServiceImpl) DueCards(ctx context.Context, userID string, limit int) ([]domain.Card, error) {
	if err := requireUser("due_cards", userID); err != nil {
		return nil, err
	}
	return capCards(s.partition(ctx, userID).due, limit), nil
}

// NewCards implements CardReviewService.NewCards.
func (s *cardReviewServiceImpl) NewCards(ctx context.Context, userID string, limit int) ([]domain.Card, error) {
	if err := requireUser("new_cards", userID); err != nil {
		return nil, err
	}
	return capCards(s.partition(ctx, userID).fresh, limit), nil
}

// Stats implements CardReviewService.Stats.
func (s *cardReviewServiceImpl) Stats(ctx context.Context, userID string) (Stats, error) {
	if err := requireUser("stats", userID); err != nil {
		return Stats{}, err
	}

	p := s.partition(ctx, userID)
	stats := Stats{
		Total: len(p.due) + len(p.fresh) + p.reviewed,
		Due:   len(p.due),
		New:   len(p.fresh),
	}
	stats.ReviewedNotDue = stats.Total - stats.New - stats.Due
	return stats, nil
}

// SubmitAnswer implements CardReviewService.SubmitAnswer.
func (s *cardReviewServiceImpl) SubmitAnswer(
	ctx context.Context,
	userID, cardID string,
	outcome domain.Outcome,
) (*AnswerResult, error) {
	const op = "submit_answer"
	if err := requireUser(op, userID); err != nil {
		return nil, err
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("processing review answer",
		slog.String("user_id", userID),
		slog.String("card_id", cardID),
		slog.String("outcome", string(outcome)))

	card, ok := s.cards.Card(ctx, cardID)
	if !ok {
		log.Warn("card not found for review",
			slog.String("user_id", userID),
			slog.String("card_id", cardID))
		return nil, NewServiceError(op, "card "+cardID, ErrCardNotFound)
	}

	current, err := s.progress.GetOrCreate(ctx, userID, cardID)
	if err != nil {
		return nil, NewServiceError(op, "failed to load review state", err)
	}

	next, err := s.srsService.CalculateNextReview(&current, outcome, s.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOutcome) {
			log.Warn("invalid review outcome",
				slog.String("user_id", userID),
				slog.String("card_id", cardID),
				slog.String("outcome", string(outcome)))
			return nil, NewServiceError(op, "outcome "+string(outcome), fmt.Errorf("%w: %w", ErrInvalidAnswer, err))
		}
		log.Error("failed to calculate next review",
			slog.String("error", err.Error()),
			slog.String("user_id", userID),
			slog.String("card_id", cardID))
		return nil, NewServiceError(op, "failed to calculate next review", err)
	}

	if err := s.progress.Update(ctx, userID, *next); err != nil {
		log.Error("failed to store review state",
			slog.String("error", err.Error()),
			slog.String("user_id", userID),
			slog.String("card_id", cardID))
		return nil, NewServiceError(op, "failed to store review state", err)
	}

	log.Info("review answer recorded",
		slog.String("user_id", userID),
		slog.String("card_id", cardID),
		slog.String("outcome", string(outcome)),
		slog.Float64("ease_factor", next.EaseFactor),
		slog.Int("interval_days", next.IntervalDays),
		slog.Time("next_due_at", next.NextDueAt))

	return &AnswerResult{Card: card, Previous: current, State: *next}, nil
}

// PreviewAnswer implements CardReviewService.PreviewAnswer.
func (s *cardReviewServiceImpl) PreviewAnswer(
	ctx context.Context,
	userID, cardID string,
) ([]srs.OutcomePreview, error) {
	const op = "preview_answer"
	if err := requireUser(op, userID); err != nil {
		return nil, err
	}
	if _, ok := s.cards.Card(ctx, cardID); !ok {
		return nil, NewServiceError(op, "card "+cardID, ErrCardNotFound)
	}

	now := s.now().UTC()
	state, ok := s.progress.Get(ctx, userID, cardID)
	if !ok {
		state = domain.NewReviewState(cardID, now)
	}

	previews, err := s.srsService.PreviewOutcomes(&state, now)
	if err != nil {
		return nil, NewServiceError(op, "failed to preview outcomes", err)
	}
	return previews, nil
}

// ResetCard implements CardReviewService.ResetCard.
func (s *cardReviewServiceImpl) ResetCard(ctx context.Context, userID, cardID string) error {
	const op = "reset_card"
	if err := requireUser(op, userID); err != nil {
		return err
	}
	if strings.TrimSpace(cardID) == "" {
		return NewServiceError(op, "card is required", domain.ErrEmptyCardID)
	}

	s.progress.Reset(ctx, userID, cardID)
	logger.FromContextOrDefault(ctx, s.logger).Info("card progress reset",
		slog.String("user_id", userID),
		slog.String("card_id", cardID))
	return nil
}

// Outcomes implements CardReviewService.Outcomes.
func (s *cardReviewServiceImpl) Outcomes() []domain.Outcome {
	return s.srsService.Outcomes()
}
