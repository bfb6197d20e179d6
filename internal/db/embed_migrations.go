package db

import "embed"

// MigrationFS embeds the SQL migrations, one directory per dialect:
// migrations/postgres (cmd/migrate) and migrations/sqlite (applied by OpenSQLite).
//
//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var MigrationFS embed.FS

const (
	// PostgresMigrations is the MigrationFS directory holding Postgres migrations.
	PostgresMigrations = "migrations/postgres"
	// SQLiteMigrations is the MigrationFS directory holding SQLite migrations.
	SQLiteMigrations = "migrations/sqlite"
)
