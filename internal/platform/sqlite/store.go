// Package sqlite provides a SQLite-backed progress store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/phrazzld/scry-cue/internal/domain"
	"github.com/phrazzld/scry-cue/internal/platform/migrate"
	"github.com/phrazzld/scry-cue/internal/platform/sqlite/migrations"
	"github.com/phrazzld/scry-cue/internal/store"
	_ "modernc.org/sqlite"
)

// Store persists review progress in a SQLite database, one row per
// (user, card) pair.
type Store struct {
	sqlDB  *sql.DB
	logger *slog.Logger
}

// Open opens a SQLite progress store and applies migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := migrate.Up(ctx, sqlDB, migrate.DialectSQLite, migrations.FS, logger); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{
		sqlDB:  sqlDB,
		logger: logger.With(slog.String("component", "sqlite_progress_store")),
	}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// LoadProgress implements store.ProgressStore.
func (s *Store) LoadProgress(ctx context.Context, userID string) (map[string]domain.ReviewState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, store.ErrClosed
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT card_id, interval_days, ease_factor, repetitions, last_reviewed_at, next_due_at
FROM review_states
WHERE user_id = ?
`, userID)
	if err != nil {
		return nil, store.NewStoreError("progress", "load", "query review states", err)
	}
	defer func() { _ = rows.Close() }()

	states := make(map[string]domain.ReviewState)
	for rows.Next() {
		var (
			state    domain.ReviewState
			lastNano sql.NullInt64
			nextNano int64
		)
		if err := rows.Scan(
			&state.CardID,
			&state.IntervalDays,
			&state.EaseFactor,
			&state.Repetitions,
			&lastNano,
			&nextNano,
		); err != nil {
			return nil, store.NewStoreError("progress", "load", "scan review state", err)
		}
		if lastNano.Valid {
			state.LastReviewedAt = time.Unix(0, lastNano.Int64).UTC()
		}
		state.NextDueAt = time.Unix(0, nextNano).UTC()
		states[state.CardID] = state
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("progress", "load", "iterate review states", err)
	}

	return states, nil
}

// SaveProgress implements store.ProgressStore. The user's rows are replaced
// inside a single transaction.
func (s *Store) SaveProgress(ctx context.Context, userID string, states map[string]domain.ReviewState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return store.ErrClosed
	}

	err := store.RunInTransaction(ctx, s.sqlDB, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM review_states WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("clear review states: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO review_states (
	user_id,
	card_id,
	interval_days,
	ease_factor,
	repetitions,
	last_reviewed_at,
	next_due_at
) VALUES (?, ?, ?, ?, ?, ?, ?)
`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, state := range store.SortedStates(states) {
			if _, err := stmt.ExecContext(ctx,
				userID,
				state.CardID,
				state.IntervalDays,
				state.EaseFactor,
				state.Repetitions,
				nullableNanos(state.LastReviewedAt),
				state.NextDueAt.UnixNano(),
			); err != nil {
				return fmt.Errorf("insert review state %s: %w", state.CardID, err)
			}
		}
		return nil
	})
	if err != nil {
		return store.NewStoreError("progress", "save", "replace review states", err)
	}

	s.logger.DebugContext(ctx, "saved progress snapshot",
		slog.String("user_id", userID),
		slog.Int("states", len(states)))
	return nil
}

func nullableNanos(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

var _ store.ProgressStore = (*Store)(nil)
