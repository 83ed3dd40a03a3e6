package postgres

import (
	"context"
	"fmt"
	"time"

	"bank-cards/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const pingTimeout = 5 * time.Second

// NewPool opens the card ledger's connection pool and verifies it with a ping.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse ledger database config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open ledger pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping ledger database %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	log.Info().
		Str("component", "ledger_db").
		Str("db_addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)).
		Str("db_name", cfg.DBName).
		Int32("pool_min", cfg.MinConns).
		Int32("pool_max", cfg.MaxConns).
		Dur("conn_max_lifetime", poolCfg.MaxConnLifetime).
		Msg("card ledger pool ready")

	return pool, nil
}
