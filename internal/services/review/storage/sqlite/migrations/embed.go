// Package migrations embeds SQLite schema migrations for review storage.
package migrations

import "embed"

// FS contains embedded SQLite migrations for review storage.
//
//go:embed *.sql
var FS embed.FS
