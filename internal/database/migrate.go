package database

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// MigrationStatus describes the schema after a migration run.
type MigrationStatus struct {
	Version  uint
	UpToDate bool
}

func newMigrate(databaseURL, dir string) (*migrate.Migrate, func(), error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve migrations dir: %w", err)
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(abs), "postgres", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, func() { db.Close() }, nil
}

// MigrateUp applies every pending migration in dir. A dirty schema is an
// error: it needs a manual fix before anything else runs against it.
func MigrateUp(databaseURL, dir string) (MigrationStatus, error) {
	m, closeDB, err := newMigrate(databaseURL, dir)
	if err != nil {
		return MigrationStatus{}, err
	}
	defer closeDB()

	var status MigrationStatus
	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return status, fmt.Errorf("failed to apply migrations: %w", err)
		}
		status.UpToDate = true
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return status, fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return status, fmt.Errorf("migration version %d is dirty, fix the schema and force the version", version)
	}
	status.Version = version
	return status, nil
}

// MigrateDown rolls back the most recent migration. It reports false when
// there was nothing to roll back.
func MigrateDown(databaseURL, dir string) (bool, error) {
	m, closeDB, err := newMigrate(databaseURL, dir)
	if err != nil {
		return false, err
	}
	defer closeDB()

	if err := m.Steps(-1); err != nil {
		if errors.Is(err, migrate.ErrNoChange) || errors.Is(err, migrate.ErrNilVersion) {
			return false, nil
		}
		return false, fmt.Errorf("failed to roll back migration: %w", err)
	}
	return true, nil
}
