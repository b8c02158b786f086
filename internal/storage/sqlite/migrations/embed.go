// Package migrations embeds the auth schema migrations.
package migrations

import "embed"

// FS exposes the bundled migration files.
//
//go:embed *.sql
var FS embed.FS
