package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/phrazzld/scry-cue/internal/config"
	"github.com/phrazzld/scry-cue/internal/platform/filestore"
	"github.com/phrazzld/scry-cue/internal/platform/postgres"
	"github.com/phrazzld/scry-cue/internal/platform/sqlite"
	"github.com/phrazzld/scry-cue/internal/store"
)

// Storage backend names accepted in configuration.
const (
	backendMemory   = "memory"
	backendFile     = "file"
	backendSQLite   = "sqlite"
	backendPostgres = "postgres"
)

// setupProgressBackend opens the configured persistence backend. The returned
// closer is nil for backends without resources to release.
func setupProgressBackend(
	ctx context.Context,
	cfg config.StorageConfig,
	logger *slog.Logger,
) (store.ProgressStore, io.Closer, error) {
	switch cfg.Backend {
	case backendMemory:
		logger.Warn("Using in-memory progress storage; progress is lost on restart")
		return store.NewMemoryProgressStore(), nil, nil

	case backendFile:
		fs, err := filestore.New(cfg.Dir, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open file storage: %w", err)
		}
		logger.Info("File progress storage ready", "dir", cfg.Dir)
		return fs, nil, nil

	case backendSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		logger.Info("SQLite progress storage ready", "path", cfg.SQLitePath)
		return db, db, nil

	case backendPostgres:
		db, err := postgres.Open(ctx, cfg.PostgresURL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres storage: %w", err)
		}
		logger.Info("PostgreSQL progress storage ready")
		return db, db, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
