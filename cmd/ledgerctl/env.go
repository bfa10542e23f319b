package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/ledgerly/ledgerly/internal/config"
	"github.com/ledgerly/ledgerly/internal/infra"
	"github.com/ledgerly/ledgerly/internal/logging"
	"github.com/ledgerly/ledgerly/internal/storage/postgres"
)

// env holds the backing services a command runs against.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	db     *postgres.DB
	cache  *redis.Client
}

// openEnv loads configuration and connects to Postgres, and to Redis when
// withCache is set and REDIS_URL is present. Logs go to stderr so stdout
// carries only command output.
func openEnv(ctx context.Context, stderr io.Writer, withCache bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}
	e := &env{cfg: cfg, logger: logging.NewWithWriter(stderr, cfg.LogLevel)}
	if e.pool, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.AppName+"-ctl"); err != nil {
		return nil, err
	}
	e.db = postgres.New(e.pool)
	if withCache && cfg.RedisURL != "" {
		if e.cache, err = infra.NewRedisClient(ctx, cfg.RedisURL); err != nil {
			e.pool.Close()
			return nil, err
		}
	}
	return e, nil
}

func (e *env) close() error {
	var err error
	if e.cache != nil {
		err = multierr.Append(err, e.cache.Close())
	}
	e.pool.Close()
	return err
}
