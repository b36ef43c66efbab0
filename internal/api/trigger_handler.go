package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-cue/internal/api/shared"
	"github.com/phrazzld/scry-cue/internal/events"
	"github.com/phrazzld/scry-cue/internal/platform/logger"
	"github.com/phrazzld/scry-cue/internal/service/trigger"
)

// TriggerEngine decides when gameplay interrupts play with a review.
type TriggerEngine interface {
	RecordEvent(ctx context.Context, ev trigger.Event) (trigger.Result, error)
	StartSession(userID string) error
	EndSession(userID string)
}

// PendingInbox holds decisions published in the background.
type PendingInbox interface {
	Pop(userID string) (*events.Event, bool)
	Clear(userID string)
}

// ProgressEvictor drops a player's cached progress.
type ProgressEvictor interface {
	Evict(userID string)
}

// TriggerHandler serves gameplay events and play sessions.
type TriggerHandler struct {
	engine   TriggerEngine
	inbox    PendingInbox
	progress ProgressEvictor
	logger   *slog.Logger
}

// NewTriggerHandler creates a new TriggerHandler.
func NewTriggerHandler(
	engine TriggerEngine,
	inbox PendingInbox,
	progress ProgressEvictor,
	logger *slog.Logger,
) *TriggerHandler {
	if engine == nil || inbox == nil || progress == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("engine, inbox and progress cannot be nil for TriggerHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TriggerHandler")
	}

	return &TriggerHandler{
		engine:   engine,
		inbox:    inbox,
		progress: progress,
		logger:   logger.With(slog.String("component", "trigger_handler")),
	}
}

// RecordEvent handles POST /events. Every decision, fired or not, is a 200.
func (h *TriggerHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req EventRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	kind, err := trigger.ParseKind(req.Kind)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	res, err := h.engine.RecordEvent(r.Context(), trigger.Event{
		UserID:  userID,
		Kind:    kind,
		Subject: req.Subject,
		Text:    req.Text,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record event")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, toTriggerResponse(res))
}

// Pending handles GET /reviews/pending. It pops the oldest decision the
// background timer published, or responds 204.
func (h *TriggerHandler) Pending(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	event, ok := h.inbox.Pop(userID)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp, err := toPendingResponse(event)
	if err != nil {
		log.Error("failed to decode pending decision",
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()))
		HandleAPIError(w, r, err, "Failed to load pending review")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// StartSession handles POST /session. Starting starts the review timer.
func (h *TriggerHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	if err := h.engine.StartSession(userID); err != nil {
		HandleAPIError(w, r, err, "Failed to start session")
		return
	}

	log.Info("session started")
	shared.RespondWithJSON(w, r, http.StatusOK, SessionResponse{UserID: userID, Active: true})
}

// EndSession handles DELETE /session. It drops the player's trigger state,
// pending decisions and cached progress.
func (h *TriggerHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	h.engine.EndSession(userID)
	h.inbox.Clear(userID)
	h.progress.Evict(userID)

	log.Info("session ended")
	shared.RespondWithJSON(w, r, http.StatusOK, SessionResponse{UserID: userID, Active: false})
}
