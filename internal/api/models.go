package api

import (
	"time"

	"github.com/phrazzld/scry-cue/internal/catalog"
	"github.com/phrazzld/scry-cue/internal/domain"
	"github.com/phrazzld/scry-cue/internal/domain/srs"
	"github.com/phrazzld/scry-cue/internal/events"
	"github.com/phrazzld/scry-cue/internal/progress"
	"github.com/phrazzld/scry-cue/internal/service/card_review"
	"github.com/phrazzld/scry-cue/internal/service/trigger"
)

// EventRequest defines the payload for reporting a gameplay event.
type EventRequest struct {
	// Kind is one of the trigger kinds, e.g. "death" or "block_break".
	Kind string `json:"kind" validate:"required,max=32"`

	// Subject is the block or entity ID for kinds with a whitelist.
	Subject string `json:"subject,omitempty" validate:"max=256"`

	// Text is the chat message for chat events.
	Text string `json:"text,omitempty" validate:"max=1024"`
}

// AnswerRequest defines the payload for submitting a review answer.
type AnswerRequest struct {
	Outcome string `json:"outcome" validate:"required,max=16"`
}

// SetDeckEnabledRequest defines the payload for enabling or disabling a deck.
type SetDeckEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// CardResponse is a card as shown to the player.
type CardResponse struct {
	ID    string   `json:"id"`
	Front string   `json:"front"`
	Back  string   `json:"back"`
	Tags  []string `json:"tags,omitempty"`
}

// ReviewStateResponse is a player's schedule for one card.
type ReviewStateResponse struct {
	CardID         string     `json:"card_id"`
	IntervalDays   int        `json:"interval_days"`
	EaseFactor     float64    `json:"ease_factor"`
	Repetitions    int        `json:"repetitions"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	NextDueAt      time.Time  `json:"next_due_at"`
}

// ReviewCardResponse pairs a card with the player's state for it.
type ReviewCardResponse struct {
	Card  CardResponse         `json:"card"`
	State *ReviewStateResponse `json:"state,omitempty"`
}

// CardListResponse is returned by the due and new listings.
type CardListResponse struct {
	Cards []CardResponse `json:"cards"`
	Count int            `json:"count"`
}

// AnswerResponse reports the schedule before and after an answer.
type AnswerResponse struct {
	Card     CardResponse        `json:"card"`
	Previous ReviewStateResponse `json:"previous"`
	State    ReviewStateResponse `json:"state"`
}

// PreviewOptionResponse describes where one outcome would schedule a card.
type PreviewOptionResponse struct {
	Outcome         domain.Outcome `json:"outcome"`
	Label           string         `json:"label"`
	IntervalSeconds int64          `json:"interval_seconds"`
	NextDueAt       time.Time      `json:"next_due_at"`
}

// PreviewResponse lists every outcome the active algorithm accepts.
type PreviewResponse struct {
	CardID  string                  `json:"card_id"`
	Options []PreviewOptionResponse `json:"options"`
}

// StatsResponse combines the scheduler's view with stored progress.
type StatsResponse struct {
	Schedule card_review.Stats `json:"schedule"`
	Progress progress.Stats    `json:"progress"`
	Outcomes []domain.Outcome  `json:"outcomes"`
}

// TriggerResponse is a trigger decision.
type TriggerResponse struct {
	Fired             bool                 `json:"fired"`
	Kind              string               `json:"kind"`
	Reason            string               `json:"reason,omitempty"`
	Card              *CardResponse        `json:"card,omitempty"`
	State             *ReviewStateResponse `json:"state,omitempty"`
	Count             int                  `json:"count,omitempty"`
	Threshold         int                  `json:"threshold,omitempty"`
	RetryAfterSeconds float64              `json:"retry_after_seconds,omitempty"`
	Stats             *card_review.Stats   `json:"stats,omitempty"`
}

// PendingResponse is a decision the background timer published.
type PendingResponse struct {
	EventID   string          `json:"event_id"`
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	Decision  TriggerResponse `json:"decision"`
}

// SessionResponse reports the session state after a session call.
type SessionResponse struct {
	UserID string `json:"user_id"`
	Active bool   `json:"active"`
}

// DeckListResponse lists decks and the built-ins that were deleted.
type DeckListResponse struct {
	Decks   []catalog.DeckSummary `json:"decks"`
	Deleted []string              `json:"deleted,omitempty"`
}

// CategoryListResponse lists all categories.
type CategoryListResponse struct {
	Categories []domain.Category `json:"categories"`
}

func toCardResponse(card domain.Card) CardResponse {
	return CardResponse{
		ID:    card.ID,
		Front: card.Front,
		Back:  card.Back,
		Tags:  card.Tags,
	}
}

func toCardListResponse(cards []domain.Card) CardListResponse {
	out := make([]CardResponse, len(cards))
	for i, c := range cards {
		out[i] = toCardResponse(c)
	}
	return CardListResponse{Cards: out, Count: len(out)}
}

func toReviewStateResponse(state domain.ReviewState) ReviewStateResponse {
	resp := ReviewStateResponse{
		CardID:       state.CardID,
		IntervalDays: state.IntervalDays,
		EaseFactor:   state.EaseFactor,
		Repetitions:  state.Repetitions,
		NextDueAt:    state.NextDueAt,
	}
	if !state.LastReviewedAt.IsZero() {
		last := state.LastReviewedAt
		resp.LastReviewedAt = &last
	}
	return resp
}

func toPreviewResponse(cardID string, previews []srs.OutcomePreview) PreviewResponse {
	options := make([]PreviewOptionResponse, len(previews))
	for i, p := range previews {
		options[i] = PreviewOptionResponse{
			Outcome:         p.Outcome,
			Label:           p.Label,
			IntervalSeconds: int64(p.Interval / time.Second),
			NextDueAt:       p.State.NextDueAt,
		}
	}
	return PreviewResponse{CardID: cardID, Options: options}
}

func toTriggerResponse(res trigger.Result) TriggerResponse {
	resp := TriggerResponse{
		Fired:     res.Fired,
		Kind:      string(res.Kind),
		Reason:    string(res.Reason),
		Count:     res.Count,
		Threshold: res.Threshold,
		Stats:     res.Stats,
	}
	if res.RetryAfter > 0 {
		resp.RetryAfterSeconds = res.RetryAfter.Seconds()
	}
	if res.Card != nil {
		card := toCardResponse(*res.Card)
		resp.Card = &card
	}
	if res.State != nil {
		state := toReviewStateResponse(*res.State)
		resp.State = &state
	}
	return resp
}

func toPendingResponse(event *events.Event) (PendingResponse, error) {
	var res trigger.Result
	if err := event.UnmarshalPayload(&res); err != nil {
		return PendingResponse{}, err
	}
	return PendingResponse{
		EventID:   event.ID.String(),
		Type:      event.Type,
		CreatedAt: event.CreatedAt,
		Decision:  toTriggerResponse(res),
	}, nil
}

