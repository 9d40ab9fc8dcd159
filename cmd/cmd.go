// Package cmd implements the fireflies-summary CLI commands.
package cmd

import (
	"context"
	"fmt"

	"github.com/Poxagronka/fireflies-summary/config"
	"github.com/Poxagronka/fireflies-summary/pkg/logging"
	"github.com/Poxagronka/fireflies-summary/pkg/store"
)

// Deps holds shared dependencies for commands, injectable for tests.
type Deps struct {
	LoadConfig func() (*config.Config, error)
}

// DefaultDeps returns production dependencies.
func DefaultDeps() *Deps {
	return &Deps{LoadConfig: config.Load}
}

// newLogger builds the process logger from config and the --debug flag.
func newLogger(cfg *config.Config, debug bool) logging.Logger {
	level := cfg.LogLevel
	if debug {
		level = logging.LevelDebug
	}
	return logging.NewLogger(&logging.Config{
		Level:       level,
		ServiceName: "fireflies-summary",
		JSONFormat:  cfg.LogJSON,
	})
}

// openRepository connects to Postgres and ensures the schema. The caller
// closes the returned pool via the cleanup func.
func openRepository(ctx context.Context, cfg *config.Config, log logging.Logger) (*store.Repository, func(), error) {
	if cfg.Postgres.Host == "" {
		return nil, nil, fmt.Errorf("postgres host not configured")
	}
	pool, err := store.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	repo := store.NewRepository(pool, log)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return repo, pool.Close, nil
}
