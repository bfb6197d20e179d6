// Package migrate runs Postgres migrations from embedded SQL files using golang-migrate.
package migrate

import (
	"errors"
	"fmt"

	"github.com/abhicommands/Next-Auth-Practice/internal/db"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ErrNoChange is returned when Up/Down has nothing to do (already at target version).
var ErrNoChange = migrate.ErrNoChange

// Run applies migrations in the given direction using the provided DSN.
// direction must be "up" or "down". Already being at the target is not an error.
func Run(dsn string, direction string) error {
	m, err := open(dsn, direction)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Version returns the applied schema version and whether the last migration left it dirty.
// A database with no migrations applied reports version 0.
func Version(dsn string) (uint, bool, error) {
	m, err := open(dsn, "up")
	if err != nil {
		return 0, false, err
	}
	defer func() { _, _ = m.Close() }()
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func open(dsn, direction string) (*migrate.Migrate, error) {
	if dsn == "" {
		return nil, errors.New("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	if direction != "up" && direction != "down" {
		return nil, fmt.Errorf("direction must be up or down, got %q", direction)
	}
	sourceDriver, err := iofs.New(db.MigrationFS, db.PostgresMigrations)
	if err != nil {
		return nil, fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return m, nil
}
