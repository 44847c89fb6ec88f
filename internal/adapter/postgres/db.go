package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pool against connString. A non-empty accessKey replaces the
// password carried in the URL, so the key can live in its own secret.
// An unreachable server is logged, not fatal: the pool dials again on first use.
func Connect(ctx context.Context, connString, accessKey string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	if accessKey != "" {
		config.ConnConfig.Password = accessKey
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		slog.Warn("remote database unreachable at startup", "host", config.ConnConfig.Host, "error", err)
	}

	return pool, nil
}
