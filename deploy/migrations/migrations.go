// Package migrations embeds the SQL migrations applied by the MySQL
// history store.
package migrations

import "embed"

// Files exposes all SQL migration files, ordered by their numeric prefix.
//
//go:embed *.sql
var Files embed.FS
