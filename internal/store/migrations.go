package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// MigrationDriverErr is returned when the postgres migration driver
	// cannot be created.
	MigrationDriverErr = fmt.Errorf("failed to create migration driver")

	// MigrationSourceErr is returned when the embedded migrations cannot be
	// read.
	MigrationSourceErr = fmt.Errorf("failed to read embedded migrations")

	// MigrationFailedErr is returned when applying migrations fails.
	MigrationFailedErr = fmt.Errorf("failed to apply migrations")
)

// Migrate applies every pending schema migration to db.
func Migrate(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("%w: %w", MigrationDriverErr, err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("%w: %w", MigrationSourceErr, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("%w: %w", MigrationFailedErr, err)
	}

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: %w", MigrationFailedErr, err)
	}
	return nil
}
