// Package migrations holds the bun migrations of the service schema.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
