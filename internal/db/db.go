// Package db opens the Postgres pool and applies the embedded schema.
package db

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeMC777/backoffice-resto/internal/config"
	"github.com/MikeMC777/backoffice-resto/internal/logging"
)

//go:embed schema.sql
var schema string

// DefaultChannel is the NOTIFY channel hard-wired in schema.sql.
const DefaultChannel = "backoffice_changes"

func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	logging.Info().Int32("max_conns", pcfg.MaxConns).Msg("postgres pool ready")
	return pool, nil
}

// Schema returns the DDL with the notify channel substituted.
func Schema(channel string) string {
	if channel == "" || channel == DefaultChannel {
		return schema
	}
	return strings.ReplaceAll(schema, "'"+DefaultChannel+"'", "'"+channel+"'")
}

// Migrate applies the idempotent schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool, channel string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, Schema(channel)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
