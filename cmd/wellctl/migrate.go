package main

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"lg/mindful-go-api/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or inspect schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrations(func(sqldb *sql.DB) error {
			return goose.UpContext(cmd.Context(), sqldb, db.Dir)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrations(func(sqldb *sql.DB) error {
			return goose.DownContext(cmd.Context(), sqldb, db.Dir)
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which migrations have been applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrations(func(sqldb *sql.DB) error {
			return goose.StatusContext(cmd.Context(), sqldb, db.Dir)
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

// withMigrations sets goose up with the embedded migrations and a pgx-backed
// database/sql handle.
func withMigrations(fn func(sqldb *sql.DB) error) error {
	if dbURL == "" {
		return errors.New("DB_URL is not set (use --db-url or the DB_URL env var)")
	}
	sqldb, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer sqldb.Close()

	goose.SetBaseFS(db.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return fn(sqldb)
}
