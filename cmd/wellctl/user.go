package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// readPassword reads a password from in, without echo when in is a terminal.
// Piped input falls back to the next line of r, the buffered reader over in.
var readPassword = func(in io.Reader, r *bufio.Reader) ([]byte, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return term.ReadPassword(int(f.Fd()))
	}
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a user with a bcrypt-hashed password",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		reader := bufio.NewReader(in)
		out := cmd.OutOrStdout()

		username, err := prompt(reader, out, "Username: ")
		if err != nil {
			return err
		}
		if username == "" {
			return errors.New("username is required")
		}
		email, err := prompt(reader, out, "Email: ")
		if err != nil {
			return err
		}
		fmt.Fprint(out, "Password: ")
		password, err := readPassword(in, reader)
		fmt.Fprintln(out)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if len(password) == 0 {
			return errors.New("password is required")
		}

		hash, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		userID := uuid.NewString()
		return withConn(cmd.Context(), func(conn *pgx.Conn) error {
			_, err := conn.Exec(cmd.Context(),
				`INSERT INTO users (id, username, email, password_hash)
				 VALUES (@id, @username, @email, @passwordHash)`,
				pgx.NamedArgs{"id": userID, "username": username, "email": email, "passwordHash": string(hash)})
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(out, "\nUser created successfully!\n")
			fmt.Fprintf(out, "  ID:       %s\n", userID)
			fmt.Fprintf(out, "  Username: %s\n", username)
			return nil
		})
	},
}

var issueTTL time.Duration

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token <username>",
	Short: "Open a session for a user and print its bearer token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConn(cmd.Context(), func(conn *pgx.Conn) error {
			token, expiresAt, err := issueToken(cmd.Context(), conn, args[0], issueTTL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token:   %s\nExpires: %s\n", token, expiresAt.Format(time.RFC3339))
			return nil
		})
	},
}

func init() {
	issueTokenCmd.Flags().DurationVar(&issueTTL, "ttl", 30*24*time.Hour, "Session lifetime")
	rootCmd.AddCommand(createUserCmd, issueTokenCmd)
}

func issueToken(ctx context.Context, conn *pgx.Conn, username string, ttl time.Duration) (string, time.Time, error) {
	var userID string
	err := conn.QueryRow(ctx, "SELECT id FROM users WHERE username = @username",
		pgx.NamedArgs{"username": username}).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", time.Time{}, fmt.Errorf("user %q not found", username)
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("look up user: %w", err)
	}

	token := uuid.NewString()
	expiresAt := time.Now().Add(ttl)
	_, err = conn.Exec(ctx,
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (@token, @userID, @expiresAt)",
		pgx.NamedArgs{"token": token, "userID": userID, "expiresAt": expiresAt})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("create session: %w", err)
	}
	return token, expiresAt, nil
}

func prompt(r *bufio.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
