package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-cue/internal/api/shared"
	"github.com/phrazzld/scry-cue/internal/catalog"
	"github.com/phrazzld/scry-cue/internal/domain"
	"github.com/phrazzld/scry-cue/internal/platform/logger"
)

// DeckCatalog is the part of the card catalog exposed over HTTP.
type DeckCatalog interface {
	Decks(ctx context.Context) []catalog.DeckSummary
	Deck(ctx context.Context, id string) (*domain.Deck, error)
	DeletedDecks(ctx context.Context) []string
	SetDeckEnabled(ctx context.Context, id string, enabled bool) error
	DeleteDeck(ctx context.Context, id string) error
	RestoreDeck(ctx context.Context, id string) error
	Categories(ctx context.Context) []domain.Category
}

// DeckHandler serves deck and category management.
type DeckHandler struct {
	catalog DeckCatalog
	logger  *slog.Logger
}

// NewDeckHandler creates a new DeckHandler.
func NewDeckHandler(catalog DeckCatalog, logger *slog.Logger) *DeckHandler {
	if catalog == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("catalog cannot be nil for DeckHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for DeckHandler")
	}
	return &DeckHandler{
		catalog: catalog,
		logger:  logger.With(slog.String("component", "deck_handler")),
	}
}

// ListDecks handles GET /decks.
func (h *DeckHandler) ListDecks(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, DeckListResponse{
		Decks:   h.catalog.Decks(r.Context()),
		Deleted: h.catalog.DeletedDecks(r.Context()),
	})
}

// GetDeck handles GET /decks/{id}, returning the deck with its cards.
func (h *DeckHandler) GetDeck(w http.ResponseWriter, r *http.Request) {
	id, err := getPathParam(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	deck, err := h.catalog.Deck(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load deck")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, deck)
}

// SetDeckEnabled handles PUT /decks/{id}/enabled.
func (h *DeckHandler) SetDeckEnabled(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	id, err := getPathParam(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req SetDeckEnabledRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	if err := h.catalog.SetDeckEnabled(r.Context(), id, *req.Enabled); err != nil {
		HandleAPIError(w, r, err, "Failed to update deck")
		return
	}

	deck, err := h.catalog.Deck(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load deck")
		return
	}
	log.Debug("deck updated", slog.String("deck_id", id), slog.Bool("enabled", deck.Enabled))
	shared.RespondWithJSON(w, r, http.StatusOK, catalog.DeckSummary{
		ID:          deck.ID,
		Name:        deck.Name,
		Description: deck.Description,
		CategoryID:  deck.CategoryID,
		Enabled:     deck.Enabled,
		BuiltIn:     deck.BuiltIn,
		CardCount:   len(deck.Cards),
	})
}

// DeleteDeck handles DELETE /decks/{id}. Built-in decks can be restored.
func (h *DeckHandler) DeleteDeck(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	id, err := getPathParam(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.catalog.DeleteDeck(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete deck")
		return
	}
	log.Debug("deck deleted", slog.String("deck_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// RestoreDeck handles POST /decks/{id}/restore for deleted built-in decks.
func (h *DeckHandler) RestoreDeck(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	id, err := getPathParam(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.catalog.RestoreDeck(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to restore deck")
		return
	}
	log.Debug("deck restored", slog.String("deck_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories handles GET /categories.
func (h *DeckHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, CategoryListResponse{
		Categories: h.catalog.Categories(r.Context()),
	})
}
