package main

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/corvid-labs/rowgen/internal/store"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations to the configured store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			var driverName, dialect string
			switch cfg.Store.Driver {
			case "", "sqlite":
				driverName, dialect = "sqlite", "sqlite3"
			case "postgres":
				driverName, dialect = "pgx", "postgres"
			default:
				return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
			}

			db, err := sql.Open(driverName, cfg.Store.DSN)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer db.Close()

			goose.SetBaseFS(store.Migrations)
			if err := goose.SetDialect(dialect); err != nil {
				return err
			}
			if err := goose.Up(db, "migrations"); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}

			fmt.Println("migrations applied")
			return nil
		},
	}
	return cmd
}
