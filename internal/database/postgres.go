// Package database opens the SQL backends the undelete index can persist to.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions sizes the Postgres pool. Zero values keep the pgx defaults.
type PoolOptions struct {
	URL      string
	MaxConns int32
	MinConns int32
}

// Postgres holds the pool backing the trash_records index.
type Postgres struct {
	Pool *pgxpool.Pool
}

// OpenPostgres connects, pings and makes sure the trash_records schema exists.
func OpenPostgres(ctx context.Context, opts PoolOptions) (*Postgres, error) {
	cfg, err := poolConfig(opts)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pg := &Postgres{Pool: pool}
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	slog.Info("trash index connected to postgres",
		"host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database,
		"max_conns", cfg.MaxConns, "min_conns", cfg.MinConns)
	return pg, nil
}

func poolConfig(opts PoolOptions) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 && opts.MinConns <= cfg.MaxConns {
		cfg.MinConns = opts.MinConns
	}
	// Index writes are short; recycle connections so failovers are picked up.
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second
	return cfg, nil
}

func (pg *Postgres) Close() {
	if pg != nil && pg.Pool != nil {
		pg.Pool.Close()
	}
}

// Health pings the pool. It backs the postgres entry of GET /health.
func (pg *Postgres) Health(ctx context.Context) error {
	return pg.Pool.Ping(ctx)
}
