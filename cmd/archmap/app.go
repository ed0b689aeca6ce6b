package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archmap/archmap/internal/cache"
	"github.com/archmap/archmap/internal/config"
	"github.com/archmap/archmap/internal/layoutsync"
	"github.com/archmap/archmap/internal/store"
)

// openPool connects to DATABASE_URL with the configured pool size.
func openPool(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	if cfg.DBMaxConns > 0 {
		poolCfg.MaxConns = cfg.DBMaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// newService wires the layout service over pool. The cache is only used by
// long-running processes; one-off commands pass a zero ttl.
func newService(pool *pgxpool.Pool, ttl time.Duration, logger *slog.Logger) *layoutsync.Service {
	st := store.New(pool)
	return &layoutsync.Service{
		Store:   st,
		Layouts: st,
		Cache:   cache.New(ttl),
		Logger:  logger,
	}
}
