package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/phrazzld/scry-cue/internal/domain"
	"github.com/phrazzld/scry-cue/internal/platform/migrate"
	"github.com/phrazzld/scry-cue/internal/platform/postgres/migrations"
	"github.com/phrazzld/scry-cue/internal/store"
)

// PostgresProgressStore implements the store.ProgressStore interface
// using a PostgreSQL database as the storage backend.
type PostgresProgressStore struct {
	db     store.DBTX
	sqlDB  *sql.DB
	logger *slog.Logger
}

// Ensure PostgresProgressStore implements store.ProgressStore interface
var _ store.ProgressStore = (*PostgresProgressStore)(nil)

// Open connects to PostgreSQL, verifies the connection and applies migrations.
func Open(ctx context.Context, databaseURL string, logger *slog.Logger) (*PostgresProgressStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrate.Up(ctx, db, migrate.DialectPostgres, migrations.FS, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return NewPostgresProgressStore(db, logger), nil
}

// NewPostgresProgressStore creates a store over an already migrated database.
func NewPostgresProgressStore(db *sql.DB, logger *slog.Logger) *PostgresProgressStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProgressStore{
		db:     db,
		sqlDB:  db,
		logger: logger.With(slog.String("component", "postgres_progress_store")),
	}
}

// Close releases the connection pool.
func (s *PostgresProgressStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// LoadProgress implements store.ProgressStore.
func (s *PostgresProgressStore) LoadProgress(
	ctx context.Context,
	userID string,
) (map[string]domain.ReviewState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT card_id, interval_days, ease_factor, repetitions, last_reviewed_at, next_due_at
		FROM review_states
		WHERE user_id = $1
	`, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to query review states",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("progress", "load", "query review states", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	states := make(map[string]domain.ReviewState)
	for rows.Next() {
		var (
			state domain.ReviewState
			last  sql.NullTime
		)
		if err := rows.Scan(
			&state.CardID,
			&state.IntervalDays,
			&state.EaseFactor,
			&state.Repetitions,
			&last,
			&state.NextDueAt,
		); err != nil {
			return nil, store.NewStoreError("progress", "load", "scan review state", MapError(err))
		}
		if last.Valid {
			state.LastReviewedAt = last.Time.UTC()
		}
		state.NextDueAt = state.NextDueAt.UTC()
		states[state.CardID] = state
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("progress", "load", "iterate review states", MapError(err))
	}

	return states, nil
}

// SaveProgress implements store.ProgressStore by replacing the user's rows
// in one transaction.
func (s *PostgresProgressStore) SaveProgress(
	ctx context.Context,
	userID string,
	states map[string]domain.ReviewState,
) error {
	err := store.RunInTransaction(ctx, s.sqlDB, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM review_states WHERE user_id = $1`, userID); err != nil {
			return MapError(err)
		}

		for _, state := range store.SortedStates(states) {
			var last sql.NullTime
			if !state.LastReviewedAt.IsZero() {
				last = sql.NullTime{Time: state.LastReviewedAt, Valid: true}
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO review_states
					(user_id, card_id, interval_days, ease_factor, repetitions, last_reviewed_at, next_due_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`,
				userID,
				state.CardID,
				state.IntervalDays,
				state.EaseFactor,
				state.Repetitions,
				last,
				state.NextDueAt,
			)
			if err != nil {
				return MapError(err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to save progress snapshot",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return store.NewStoreError("progress", "save", "replace review states", err)
	}

	return nil
}
