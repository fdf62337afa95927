package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/AlibekovAA/registration-board/internal/common/logger"
	"github.com/AlibekovAA/registration-board/migrations"
)

// Migrate applies the embedded goose migrations over a short-lived
// database/sql handle; the pgx pool is not involved.
func Migrate(ctx context.Context, log *logger.Logger, databaseURL string) error {
	conn, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("db open error: %w", err)
	}
	defer conn.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect error: %w", err)
	}

	before, err := goose.GetDBVersionContext(ctx, conn)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if err := goose.UpContext(ctx, conn, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	after, err := goose.GetDBVersionContext(ctx, conn)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	log.WithFields(ctx, logger.Fields{
		"from":   before,
		"to":     after,
		"action": "db_migrate",
	}).Info("database migrations applied")

	return nil
}
