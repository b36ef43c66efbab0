package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/scry-cue/internal/store"
)

// SQLSTATE codes the review_states schema can raise.
const (
	codeUniqueViolation  = "23505"
	codeForeignKey       = "23503"
	codeCheckViolation   = "23514"
	codeNotNullViolation = "23502"
	codeAdminShutdown    = "57P01"
)

// MapError translates driver errors into the store sentinels so callers
// never need to inspect pgconn types. Unknown errors pass through untouched.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	case codeCheckViolation:
		return fmt.Errorf("%w: review state rejected by %s: %v", store.ErrInvalidEntity, pgErr.ConstraintName, err)
	case codeNotNullViolation:
		return fmt.Errorf("%w: review state missing %s: %v", store.ErrInvalidEntity, pgErr.ColumnName, err)
	case codeForeignKey:
		return fmt.Errorf("%w: foreign key %s: %v", store.ErrInvalidEntity, pgErr.ConstraintName, err)
	case codeAdminShutdown:
		return fmt.Errorf("%w: %v", store.ErrClosed, err)
	}
	return err
}

// IsUniqueViolation reports whether err carries a unique_violation SQLSTATE.
func IsUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

// IsCheckConstraintViolation reports whether err carries a check_violation
// SQLSTATE, e.g. a non-positive interval_days.
func IsCheckConstraintViolation(err error) bool {
	return hasCode(err, codeCheckViolation)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
