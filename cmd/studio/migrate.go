package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"productstudio/internal/infra"
	"productstudio/internal/migrate"
	"productstudio/internal/storage/postgres"
	"productstudio/internal/storage/sqlite"
)

func migrateCmd() *cobra.Command {
	m := &cobra.Command{Use: "migrate", Short: "Manage the database schema"}
	m.AddCommand(migrateRunCmd("up", "Apply pending migrations", migrate.Up))
	m.AddCommand(migrateRunCmd("down", "Roll back the latest migration", migrate.Down))
	m.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSchemaDB(cmd, func(ctx context.Context, db *sql.DB, d migrate.Dialect) error {
				v, err := migrate.Version(ctx, db, d)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s schema version %d\n", d, v)
				return nil
			})
		},
	})
	return m
}

func migrateRunCmd(use, short string, fn func(context.Context, *sql.DB, migrate.Dialect) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSchemaDB(cmd, func(ctx context.Context, db *sql.DB, d migrate.Dialect) error {
				if err := fn(ctx, db, d); err != nil {
					return err
				}
				v, err := migrate.Version(ctx, db, d)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s schema now at version %d\n", use, d, v)
				return nil
			})
		},
	}
}

// withSchemaDB opens the configured store without applying migrations.
func withSchemaDB(cmd *cobra.Command, fn func(context.Context, *sql.DB, migrate.Dialect) error) error {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var (
		db      *sql.DB
		dialect migrate.Dialect
	)
	switch cfg.StoreBackend {
	case "sqlite":
		db, err = sqlite.OpenSQL(ctx, cfg.SQLitePath)
		dialect = migrate.SQLite
	case "postgres":
		db, err = postgres.OpenSQL(ctx, cfg.DatabaseURL)
		dialect = migrate.Postgres
	default:
		return fmt.Errorf("STORE_BACKEND=%s has no schema", cfg.StoreBackend)
	}
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, db, dialect)
}
