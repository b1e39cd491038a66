package main

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
)

var purgeUser string

var purgeSessionsCmd = &cobra.Command{
	Use:   "purge-sessions",
	Short: "Delete expired sessions (or every session of one user)",
	RunE: func(cmd *cobra.Command, args []string) error {
		sql, named := purgeQuery(purgeUser)
		return withConn(cmd.Context(), func(conn *pgx.Conn) error {
			tag, err := conn.Exec(cmd.Context(), sql, named)
			if err != nil {
				return fmt.Errorf("purge sessions: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d session(s) deleted.\n", tag.RowsAffected())
			return nil
		})
	},
}

func init() {
	purgeSessionsCmd.Flags().StringVar(&purgeUser, "user", "", "Revoke all sessions of this username instead of only expired ones")
	rootCmd.AddCommand(purgeSessionsCmd)
}

func purgeQuery(username string) (string, pgx.NamedArgs) {
	if username == "" {
		return "DELETE FROM sessions WHERE expires_at <= now()", pgx.NamedArgs{}
	}
	return "DELETE FROM sessions WHERE user_id = (SELECT id FROM users WHERE username = @username)",
		pgx.NamedArgs{"username": username}
}
