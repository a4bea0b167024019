// internal/storage/postgres/init.go
package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"plant_identifier/internal/storage/migrations"
)

func init() {
	goose.SetBaseFS(migrations.FS)
}

func runMigrations(db *sql.DB, logger *slog.Logger) error {
	const op = "postgres.migrations"

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err := goose.Up(db, ".")
	if err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			logger.Info("no migrations to apply")
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("database migrations applied")
	return nil
}

// Migrate runs a goose command ("up", "down", "status", ...) against dsn
// through the lib/pq driver, without opening a connection pool.
func Migrate(dsn, command string, logger *slog.Logger) error {
	const op = "postgres.Migrate"

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer db.Close()

	if command == "up" {
		return runMigrations(db, logger)
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := goose.Run(command, db, "."); err != nil {
		return fmt.Errorf("%s: %s: %w", op, command, err)
	}
	return nil
}
