package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var dbURL string

var rootCmd = &cobra.Command{
	Use:   "wellctl",
	Short: "wellctl administers the mindful API database",
	Long:  "wellctl applies schema migrations, creates users and manages login sessions for the mindful API.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		if dbURL == "" {
			dbURL = os.Getenv("DB_URL")
		}
		return nil
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "Postgres connection URL (default $DB_URL)")
}

// withConn opens a single connection for the duration of fn.
func withConn(ctx context.Context, fn func(conn *pgx.Conn) error) error {
	if dbURL == "" {
		return errors.New("DB_URL is not set (use --db-url or the DB_URL env var)")
	}
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer conn.Close(ctx)
	return fn(conn)
}
