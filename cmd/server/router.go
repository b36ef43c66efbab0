package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/scry-cue/internal/api"
	apiMiddleware "github.com/phrazzld/scry-cue/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	reviewHandler := api.NewReviewHandler(
		app.cardReviewService,
		app.progress,
		api.ReviewLimits{
			MaxDue: app.config.Review.MaxDueCards,
			MaxNew: app.config.Review.MaxNewCards,
		},
		app.logger,
	)
	triggerHandler := api.NewTriggerHandler(app.triggerEngine, app.inbox, app.progress, app.logger)
	deckHandler := api.NewDeckHandler(app.catalog, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		// Gameplay events and sessions
		r.Post("/events", triggerHandler.RecordEvent)
		r.Post("/session", triggerHandler.StartSession)
		r.Delete("/session", triggerHandler.EndSession)

		// Review scheduling
		r.Get("/reviews/next", reviewHandler.Next)
		r.Get("/reviews/pending", triggerHandler.Pending)
		r.Get("/reviews/due", reviewHandler.Due)
		r.Get("/reviews/new", reviewHandler.New)
		r.Post("/cards/{id}/answer", reviewHandler.SubmitAnswer)
		r.Get("/cards/{id}/preview", reviewHandler.PreviewAnswer)
		r.Delete("/progress/{id}", reviewHandler.ResetCard)
		r.Get("/stats", reviewHandler.Stats)

		// Deck catalog
		r.Get("/decks", deckHandler.ListDecks)
		r.Get("/decks/{id}", deckHandler.GetDeck)
		r.Put("/decks/{id}/enabled", deckHandler.SetDeckEnabled)
		r.Delete("/decks/{id}", deckHandler.DeleteDeck)
		r.Post("/decks/{id}/restore", deckHandler.RestoreDeck)
		r.Get("/categories", deckHandler.ListCategories)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
