// Package migrations holds the Go-based schema migrations for the hulugan
// database. Each migration file registers itself in init().
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
