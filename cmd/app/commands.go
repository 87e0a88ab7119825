// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"codeberg.org/oliverandrich/identity-recovery/internal/config"
	"codeberg.org/oliverandrich/identity-recovery/internal/database"
	"codeberg.org/oliverandrich/identity-recovery/internal/server"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply all pending migrations",
				Action: withDB(func(*cli.Command, *sqlx.DB) error { return nil }),
			},
			{
				Name:   "down",
				Usage:  "Roll back the latest migration",
				Action: withDB(func(_ *cli.Command, db *sqlx.DB) error { return database.MigrateDown(db.DB) }),
			},
			{
				Name:   "reset",
				Usage:  "Roll back all migrations",
				Action: withDB(func(_ *cli.Command, db *sqlx.DB) error { return database.MigrateReset(db.DB) }),
			},
			{
				Name:  "status",
				Usage: "Print the current schema version",
				Action: withDB(func(cmd *cli.Command, db *sqlx.DB) error {
					return printVersion(cmd.Root().Writer, db)
				}),
			},
		},
	}
}

// withDB opens the configured database, which applies pending migrations,
// and runs fn on it.
func withDB(fn func(cmd *cli.Command, db *sqlx.DB) error) cli.ActionFunc {
	return func(_ context.Context, cmd *cli.Command) error {
		cfg := config.NewFromCLI(cmd)
		server.SetupLogger(cfg.Log.Level, cfg.Log.Format)

		db, err := database.Open(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("failed to close database", "error", closeErr)
			}
		}()

		return fn(cmd, db)
	}
}

func printVersion(w io.Writer, db *sqlx.DB) error {
	version, err := database.Version(db.DB)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "schema version %d\n", version)
	return err
}

func purgeTenantCommand() *cli.Command {
	return &cli.Command{
		Name:      "purge-tenant",
		Usage:     "Delete all recovery data of a tenant",
		ArgsUsage: "<tenant-domain>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			tenant := cmd.Args().First()
			if tenant == "" {
				return errors.New("tenant domain is required")
			}

			cfg := config.NewFromCLI(cmd)
			server.SetupLogger(cfg.Log.Level, cfg.Log.Format)

			svc, err := server.NewServices(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := svc.Close(); closeErr != nil {
					slog.Error("failed to close database", "error", closeErr)
				}
			}()

			deleted, err := svc.Store.DeleteRecoveryDataByTenant(ctx, tenant)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.Root().Writer, "deleted %d recovery records of %s\n", deleted, tenant)
			return err
		},
	}
}
