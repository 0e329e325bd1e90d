package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the registry applied by rolemanager.Migrate.
var Migrations = migrate.NewMigrations()
