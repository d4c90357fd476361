package store

import "embed"

// Migrations holds the goose SQL migration files for both backends. The
// schema is plain enough (no dialect-specific types) to serve sqlite and
// postgres from the same files.
//
//go:embed migrations/*.sql
var Migrations embed.FS
