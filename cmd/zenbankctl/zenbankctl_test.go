package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"zenbank/internal/core"
)

func TestMain(m *testing.M) {
	core.HashCost = bcrypt.MinCost
	os.Exit(m.Run())
}

// isolate points every store at a temp dir and clears settings that would
// reach out to real services.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_BACKEND", "toml")
	t.Setenv("TOML_ACCOUNTS_PATH", filepath.Join(dir, "accounts.toml"))
	t.Setenv("SQLITE_DB_PATH", filepath.Join(dir, "zenbank.db"))
	t.Setenv("SUGGEST_PROVIDER", "none")
	t.Setenv("REDIS_URL", "")
	t.Setenv("AMQP_URL", "")
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func createAlice(t *testing.T) {
	t.Helper()
	out, err := execute(t, "accounts", "create",
		"--username", "alice",
		"--password", "secret1",
		"--pin", "1234",
		"--name", "Alice Zen",
		"--email", "alice@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "1000.00")
}

func TestAccountsCreateListShow(t *testing.T) {
	isolate(t)
	createAlice(t)

	out, err := execute(t, "accounts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "Alice Zen")
	assert.Contains(t, out, "1000.00")

	out, err = execute(t, "accounts", "show", "ALICE")
	require.NoError(t, err)
	assert.Contains(t, out, "alice@example.com")
	assert.Contains(t, out, "no transactions")
}

func TestAccountsCreateRejectsDuplicatesAndBadInput(t *testing.T) {
	isolate(t)
	createAlice(t)

	_, err := execute(t, "accounts", "create",
		"--username", "Alice",
		"--password", "secret1",
		"--pin", "1234",
		"--name", "Other",
		"--email", "other@example.com")
	require.ErrorIs(t, err, core.ErrUsernameTaken)

	_, err = execute(t, "accounts", "create",
		"--username", "bob",
		"--password", "secret1",
		"--pin", "12",
		"--name", "Bob",
		"--email", "bob@example.com")
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "pin", verr.Field)
}

func TestAccountsShowUnknown(t *testing.T) {
	isolate(t)
	_, err := execute(t, "accounts", "show", "nobody")
	require.ErrorIs(t, err, core.ErrUserNotFound)
}

func TestSuggestWithoutHistoryUsesDefaults(t *testing.T) {
	isolate(t)
	createAlice(t)

	out, err := execute(t, "suggest", "alice", "deposit")
	require.NoError(t, err)
	assert.Contains(t, out, "500.00")
	assert.Contains(t, out, "1000.00")
	assert.Contains(t, out, "2000.00")
	assert.Contains(t, out, "source default")

	_, err = execute(t, "suggest", "alice", "transfer")
	require.ErrorIs(t, err, core.ErrInvalidTransactionType)
}

func TestMigrate(t *testing.T) {
	isolate(t)

	_, err := execute(t, "migrate")
	require.Error(t, err, "toml backend has no schema")

	t.Setenv("DATA_BACKEND", "sqlite")
	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 2")

	out, err = execute(t, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 2")
}

func TestLedgerReconcileWithoutSpreadsheet(t *testing.T) {
	isolate(t)
	createAlice(t)

	out, err := execute(t, "ledger", "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "0 ledger entries reconciled")
}

func TestConfigFileAndFlags(t *testing.T) {
	dir := isolate(t)
	t.Setenv("DATA_BACKEND", "")
	t.Setenv("TOML_ACCOUNTS_PATH", "")

	accountsFile := filepath.Join(dir, "from-config.toml")
	configFile := filepath.Join(dir, "zenbankctl.toml")
	require.NoError(t, os.WriteFile(configFile, []byte(
		"data_backend = \"toml\"\ntoml_accounts_path = \""+filepath.ToSlash(accountsFile)+"\"\n"), 0o600))

	_, err := execute(t, "--config", configFile, "accounts", "create",
		"--username", "carol",
		"--password", "secret1",
		"--pin", "4321",
		"--name", "Carol",
		"--email", "carol@example.com")
	require.NoError(t, err)
	assert.FileExists(t, accountsFile)

	// A flag beats the config file.
	out, err := execute(t, "--config", configFile, "--backend", "memory", "accounts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no accounts")
}
