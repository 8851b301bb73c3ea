// Package migrations embeds the goose SQL migrations for the portal schema.
package migrations

import "embed"

// FS holds the migration files at its root.
//
//go:embed *.sql
var FS embed.FS
