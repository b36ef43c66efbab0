package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-cue/internal/api/shared"
	"github.com/phrazzld/scry-cue/internal/domain"
	"github.com/phrazzld/scry-cue/internal/platform/logger"
	"github.com/phrazzld/scry-cue/internal/progress"
	"github.com/phrazzld/scry-cue/internal/service/card_review"
)

// ProgressReader exposes stored progress to the review endpoints.
type ProgressReader interface {
	Get(ctx context.Context, userID, cardID string) (domain.ReviewState, bool)
	Stats(ctx context.Context, userID string) progress.Stats
}

// ReviewLimits are the default listing sizes when a request sets no limit.
type ReviewLimits struct {
	MaxDue int
	MaxNew int
}

// ReviewHandler serves card review requests.
type ReviewHandler struct {
	reviews  card_review.CardReviewService
	progress ProgressReader
	limits   ReviewLimits
	logger   *slog.Logger
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(
	reviews card_review.CardReviewService,
	progress ProgressReader,
	limits ReviewLimits,
	logger *slog.Logger,
) *ReviewHandler {
	if reviews == nil || progress == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("review service and progress cannot be nil for ReviewHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ReviewHandler")
	}

	return &ReviewHandler{
		reviews:  reviews,
		progress: progress,
		limits:   limits,
		logger:   logger.With(slog.String("component", "review_handler")),
	}
}

// Next handles GET /reviews/next. It responds 204 when nothing is due or new.
func (h *ReviewHandler) Next(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	card, found, err := h.reviews.PickNext(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get next review card")
		return
	}
	if !found {
		log.Debug("no cards to review")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := ReviewCardResponse{Card: toCardResponse(card)}
	if state, ok := h.progress.Get(r.Context(), userID, card.ID); ok {
		s := toReviewStateResponse(state)
		resp.State = &s
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Due handles GET /reviews/due?limit=N.
func (h *ReviewHandler) Due(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.limits.MaxDue, h.reviews.DueCards, "Failed to list due cards")
}

// New handles GET /reviews/new?limit=N.
func (h *ReviewHandler) New(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.limits.MaxNew, h.reviews.NewCards, "Failed to list new cards")
}

func (h *ReviewHandler) list(
	w http.ResponseWriter,
	r *http.Request,
	def int,
	fetch func(ctx context.Context, userID string, limit int) ([]domain.Card, error),
	failure string,
) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	limit, err := getLimit(r, def)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	cards, err := fetch(r.Context(), userID, limit)
	if err != nil {
		HandleAPIError(w, r, err, failure)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, toCardListResponse(cards))
}

// SubmitAnswer handles POST /cards/{id}/answer.
func (h *ReviewHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, cardID, ok := handleUserIDAndPathParam(w, r, "id", log)
	if !ok {
		return
	}

	var req AnswerRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	outcome, err := domain.ParseOutcome(req.Outcome)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	result, err := h.reviews.SubmitAnswer(r.Context(), userID, cardID, outcome)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit answer")
		return
	}

	log.Debug("answer recorded",
		slog.String("card_id", cardID),
		slog.String("outcome", string(outcome)))
	shared.RespondWithJSON(w, r, http.StatusOK, AnswerResponse{
		Card:     toCardResponse(result.Card),
		Previous: toReviewStateResponse(result.Previous),
		State:    toReviewStateResponse(result.State),
	})
}

// PreviewAnswer handles GET /cards/{id}/preview.
func (h *ReviewHandler) PreviewAnswer(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, cardID, ok := handleUserIDAndPathParam(w, r, "id", log)
	if !ok {
		return
	}

	previews, err := h.reviews.PreviewAnswer(r.Context(), userID, cardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to preview answer")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, toPreviewResponse(cardID, previews))
}

// ResetCard handles DELETE /progress/{id}.
func (h *ReviewHandler) ResetCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, cardID, ok := handleUserIDAndPathParam(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.reviews.ResetCard(r.Context(), userID, cardID); err != nil {
		HandleAPIError(w, r, err, "Failed to reset card")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /stats.
func (h *ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	schedule, err := h.reviews.Stats(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load stats")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, StatsResponse{
		Schedule: schedule,
		Progress: h.progress.Stats(r.Context(), userID),
		Outcomes: h.reviews.Outcomes(),
	})
}
