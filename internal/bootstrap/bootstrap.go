// Package bootstrap applies the queue/queue_message/app_locks schema via
// golang-migrate. It is never invoked by the engine itself, schema
// migration is an external collaborator; only cmd/migrate calls
// Migrate.
package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// MigrationsPath is the source/file-compatible directory golang-migrate
// reads from.
const MigrationsPath = "internal/bootstrap/migrations"

// Migrate applies every pending up migration against dsn. dsn is a
// standard Postgres connection string; migrationsDir overrides
// MigrationsPath for callers running from a different working directory
// (pass "" to use the default).
func Migrate(dsn, migrationsDir string) error {
	if migrationsDir == "" {
		migrationsDir = MigrationsPath
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("bootstrap: open database/sql handle: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("bootstrap: postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir, "pgx", driver)
	if err != nil {
		return fmt.Errorf("bootstrap: load migrations: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("bootstrap: apply migrations: %w", err)
	}
	return nil
}
