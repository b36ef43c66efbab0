// Package postgres provides a PostgreSQL implementation of the progress
// store defined in internal/store. It uses the pgx stdlib driver, applies
// its own goose migrations and maps driver errors onto store errors.
package postgres
