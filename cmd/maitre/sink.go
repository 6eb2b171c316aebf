package main

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/platewise/maitre/export"
	"github.com/platewise/maitre/export/postgres"
	"github.com/platewise/maitre/export/sqlite"
)

// openSink returns a result sink for the configured database driver.
func openSink(cmd *cobra.Command) (export.Sink, error) {
	switch cfg.Database.Driver {
	case "sqlite", "":
		sink := sqlite.New(cfg.Database.Path, sqlite.WithLogger(logger))
		if err := sink.Init(cmd.Context()); err != nil {
			sink.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		return sink, nil
	case "postgres":
		pool, err := pgxpool.New(cmd.Context(), cfg.Database.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		sink := postgres.New(pool)
		if err := sink.Init(cmd.Context()); err != nil {
			pool.Close()
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}
