package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-cue/internal/catalog"
	"github.com/phrazzld/scry-cue/internal/config"
	"github.com/phrazzld/scry-cue/internal/domain/srs"
	"github.com/phrazzld/scry-cue/internal/events"
	"github.com/phrazzld/scry-cue/internal/progress"
	"github.com/phrazzld/scry-cue/internal/service/auth"
	"github.com/phrazzld/scry-cue/internal/service/card_review"
	"github.com/phrazzld/scry-cue/internal/service/trigger"
	"github.com/phrazzld/scry-cue/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// Persistence
	backendCloser io.Closer
	progress      *progress.Store
	catalog       *catalog.Catalog

	// Services
	jwtService        auth.JWTService
	srsService        srs.Service
	cardReviewService card_review.CardReviewService
	triggerEngine     *trigger.Engine

	// Event delivery
	eventEmitter *events.InMemoryEventEmitter
	inbox        *events.Inbox

	// Background timer ticks
	timerRunner *task.TimerRunner
}

// newApplication creates a new application instance with all dependencies initialized.
// Background work is not started until Run.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	backend, closer, err := setupProgressBackend(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	app.backendCloser = closer

	app.progress, err = progress.New(backend, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create progress store: %w", err)
	}

	app.catalog = catalog.New(catalog.BuiltinFS(), cfg.Catalog.UserDeckDir, logger)
	if err := app.catalog.Load(ctx); err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to load deck catalog: %w", err)
	}

	app.srsService, err = srs.New(cfg.Review.Algorithm, nil)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create SRS service: %w", err)
	}
	logger.Info("SRS algorithm selected", "algorithm", app.srsService.Algorithm())

	app.cardReviewService = card_review.NewCardReviewService(
		app.catalog,
		app.progress,
		app.srsService,
		logger,
	)

	app.inbox = events.NewInbox(0, logger)
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(app.inbox)

	app.triggerEngine, err = trigger.New(
		trigger.FromSettings(cfg.Triggers),
		app.cardReviewService,
		app.progress,
		logger,
		trigger.WithEmitter(app.eventEmitter),
	)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create trigger engine: %w", err)
	}

	runnerCfg := task.DefaultTimerRunnerConfig()
	runnerCfg.TickInterval = time.Duration(cfg.Triggers.TickIntervalSeconds) * time.Second
	app.timerRunner = task.NewTimerRunner(app.triggerEngine, runnerCfg, logger)

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the background timer runner and the HTTP server, and blocks
// until the server shuts down.
func (app *application) Run(ctx context.Context) error {
	if err := app.timerRunner.Start(); err != nil {
		return fmt.Errorf("failed to start timer runner: %w", err)
	}

	router := app.setupRouter()
	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.timerRunner != nil {
		app.timerRunner.Stop()
	}

	if app.backendCloser != nil {
		if err := app.backendCloser.Close(); err != nil {
			app.logger.Error("Error closing progress storage", "error", err)
		}
	}
}
