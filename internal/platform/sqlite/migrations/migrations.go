// Package migrations embeds the SQLite schema for the progress store.
package migrations

import "embed"

// FS holds the goose SQL migrations.
//
//go:embed *.sql
var FS embed.FS
