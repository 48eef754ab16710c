package database

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
)

//go:embed migrations/postgres/001_trash_records.up.sql
var trashRecordsMigrationSQL string

var requiredTables = []string{
	"trash_records",
}

func (pg *Postgres) EnsureSchema(ctx context.Context) error {
	if pg == nil || pg.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	exists, err := pg.hasAllRequiredTables(ctx)
	if err != nil {
		return fmt.Errorf("check existing tables: %w", err)
	}
	if exists {
		slog.Debug("database schema present")
		return nil
	}

	slog.Info("database schema missing tables; applying trash records migration")
	if _, err := pg.Pool.Exec(ctx, trashRecordsMigrationSQL); err != nil {
		return fmt.Errorf("apply trash records migration: %w", err)
	}

	exists, err = pg.hasAllRequiredTables(ctx)
	if err != nil {
		return fmt.Errorf("re-check tables after migration: %w", err)
	}
	if !exists {
		return fmt.Errorf("schema initialization incomplete: required tables are still missing")
	}

	slog.Info("database schema ensured")
	return nil
}

func (pg *Postgres) hasAllRequiredTables(ctx context.Context) (bool, error) {
	var count int
	err := pg.Pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		  AND table_name = ANY($1)
	`, requiredTables).Scan(&count)
	if err != nil {
		return false, err
	}

	return count == len(requiredTables), nil
}
