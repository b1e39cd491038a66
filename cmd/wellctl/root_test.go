package main

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsAreRegistered(t *testing.T) {
	for _, path := range [][]string{
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "status"},
		{"create-user"},
		{"issue-token"},
		{"purge-sessions"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestPurgeQuery(t *testing.T) {
	sql, args := purgeQuery("")
	assert.Equal(t, "DELETE FROM sessions WHERE expires_at <= now()", sql)
	assert.Empty(t, args)

	sql, args = purgeQuery("sam")
	assert.Contains(t, sql, "WHERE user_id = (SELECT id FROM users WHERE username = @username)")
	assert.Equal(t, pgx.NamedArgs{"username": "sam"}, args)
}

func TestPrompt(t *testing.T) {
	var out bytes.Buffer
	r := bufio.NewReader(strings.NewReader("  sam  \nsam@example.com"))

	got, err := prompt(r, &out, "Username: ")
	require.NoError(t, err)
	assert.Equal(t, "sam", got)

	got, err = prompt(r, &out, "Email: ")
	require.NoError(t, err, "EOF without newline is fine")
	assert.Equal(t, "sam@example.com", got)
	assert.Equal(t, "Username: Email: ", out.String())
}

func TestMigrateRequiresDBURL(t *testing.T) {
	t.Setenv("DB_URL", "")
	dbURL = ""
	rootCmd.SetArgs([]string{"migrate", "status"})
	err := rootCmd.Execute()
	assert.ErrorContains(t, err, "DB_URL is not set")
}

// stubPassword replaces readPassword for the duration of the test and records
// the input source it was handed.
func stubPassword(t *testing.T, password string) *io.Reader {
	t.Helper()
	var got io.Reader
	orig := readPassword
	readPassword = func(in io.Reader, _ *bufio.Reader) ([]byte, error) {
		got = in
		return []byte(password), nil
	}
	t.Cleanup(func() { readPassword = orig })
	return &got
}

func runCreateUser(t *testing.T, stdin string) (string, error) {
	t.Helper()
	t.Setenv("DB_URL", "")
	dbURL = ""
	in := strings.NewReader(stdin)
	var out bytes.Buffer
	rootCmd.SetIn(in)
	rootCmd.SetOut(&out)
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
	})
	rootCmd.SetArgs([]string{"create-user"})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCreateUser_ReadsPasswordFromCommandInput(t *testing.T) {
	got := stubPassword(t, "hunter2")

	out, err := runCreateUser(t, "sam\nsam@example.com\n")
	assert.ErrorContains(t, err, "DB_URL is not set", "stops at the database once input is complete")
	assert.Equal(t, "Username: Email: Password: \n", out)
	assert.Equal(t, rootCmd.InOrStdin(), *got)
}

func TestCreateUser_RequiresPassword(t *testing.T) {
	stubPassword(t, "")
	_, err := runCreateUser(t, "sam\nsam@example.com\n")
	assert.EqualError(t, err, "password is required")
}

func TestReadPassword_PipedInput(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("sam\ns3cret pass\r\n"))
	_, err := r.ReadString('\n')
	require.NoError(t, err)

	got, err := readPassword(strings.NewReader(""), r)
	require.NoError(t, err)
	assert.Equal(t, "s3cret pass", string(got))
}
