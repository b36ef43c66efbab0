package postgres_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/scry-cue/internal/platform/postgres"
	"github.com/phrazzld/scry-cue/internal/store"
	"github.com/stretchr/testify/assert"
)

func newPgError(code string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		SchemaName:     "public",
		TableName:      "review_states",
		ColumnName:     "interval_days",
		ConstraintName: "review_states_interval_days_check",
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		wantIs  error
		wantMsg string
	}{
		{name: "no rows", err: sql.ErrNoRows, wantIs: store.ErrNotFound},
		{name: "unique violation", err: newPgError("23505"), wantIs: store.ErrDuplicate},
		{name: "foreign key violation", err: newPgError("23503"), wantIs: store.ErrInvalidEntity, wantMsg: "foreign key"},
		{name: "check violation", err: newPgError("23514"), wantIs: store.ErrInvalidEntity, wantMsg: "review_states_interval_days_check"},
		{name: "not null violation", err: newPgError("23502"), wantIs: store.ErrInvalidEntity, wantMsg: "interval_days"},
		{name: "server shutting down", err: newPgError("57P01"), wantIs: store.ErrClosed},
		{name: "wrapped pg error", err: fmt.Errorf("insert: %w", newPgError("23505")), wantIs: store.ErrDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mapped := postgres.MapError(tt.err)
			assert.ErrorIs(t, mapped, tt.wantIs)
			if tt.wantMsg != "" {
				assert.Contains(t, mapped.Error(), tt.wantMsg)
			}
		})
	}
}

func TestMapError_Passthrough(t *testing.T) {
	t.Parallel()

	assert.NoError(t, postgres.MapError(nil))

	plain := errors.New("connection reset")
	assert.Equal(t, plain, postgres.MapError(plain))

	unmapped := newPgError("40001")
	assert.Equal(t, error(unmapped), postgres.MapError(unmapped))
}

func TestViolationHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, postgres.IsUniqueViolation(newPgError("23505")))
	assert.False(t, postgres.IsUniqueViolation(newPgError("23514")))
	assert.True(t, postgres.IsCheckConstraintViolation(fmt.Errorf("wrap: %w", newPgError("23514"))))
	assert.False(t, postgres.IsCheckConstraintViolation(errors.New("plain")))
}
