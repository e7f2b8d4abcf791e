// Package migrations holds the embedded schema migrations for each storage backend.
package migrations

import "embed"

// FS contains sqlite/NNN_name.sql and postgres/NNN_name.sql
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
