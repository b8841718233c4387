package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/cloo-solutions/askdesk/migrations"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// MigrationStatus describes the schema version after a migration command.
type MigrationStatus struct {
	Version uint
	Dirty   bool
	Changed bool
}

func newMigrate(databaseURL string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, func() { _, _ = m.Close() }, nil
}

// MigrateUp applies every pending migration.
func MigrateUp(databaseURL string, logger *zap.Logger) (*MigrationStatus, error) {
	m, closeFn, err := newMigrate(databaseURL)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	status := &MigrationStatus{Changed: true}
	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		status.Changed = false
	}

	return finishStatus(m, status, logger)
}

// MigrateDown rolls back the given number of migrations.
func MigrateDown(databaseURL string, steps int, logger *zap.Logger) (*MigrationStatus, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("steps must be positive, got %d", steps)
	}

	m, closeFn, err := newMigrate(databaseURL)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	if err := m.Steps(-steps); err != nil {
		return nil, fmt.Errorf("failed to roll back migrations: %w", err)
	}

	return finishStatus(m, &MigrationStatus{Changed: true}, logger)
}

func finishStatus(m *migrate.Migrate, status *MigrationStatus, logger *zap.Logger) (*MigrationStatus, error) {
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return nil, fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return nil, fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	}

	status.Version = version
	if logger != nil {
		logger.Info("migrations finished",
			zap.Uint("version", version),
			zap.Bool("changed", status.Changed),
		)
	}
	return status, nil
}
