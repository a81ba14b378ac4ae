package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zenbank/internal/accounts"
	"zenbank/internal/accounts/accountstest"
	"zenbank/internal/core"
)

func newTestRepository(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "zenbank.db")
	repo, err := NewSQLiteRepository(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo, path
}

func TestSQLiteRepositoryContract(t *testing.T) {
	accountstest.Run(t, func(t *testing.T) accounts.Repository {
		repo, _ := newTestRepository(t)
		return repo
	})
}

func TestMigrationsApplied(t *testing.T) {
	_, path := newTestRepository(t)

	version, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Reopening an up-to-date database is a no-op.
	require.NoError(t, RunMigrations(path))
}

func TestPutIsIdempotentForHistory(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	u := accountstest.User("u-1", "carol", now)
	require.NoError(t, u.Apply(core.Transaction{ID: "tx-1", Type: core.Deposit, Amount: core.Money{Cents: 700}, Date: now}))
	require.NoError(t, repo.Put(ctx, u))
	require.NoError(t, repo.Put(ctx, u))

	require.NoError(t, u.Apply(core.Transaction{ID: "tx-2", Type: core.Withdrawal, Amount: core.Money{Cents: 200}, Date: now}))
	require.NoError(t, repo.Put(ctx, u))

	got, err := repo.Get(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, got.Transactions, 2)
	assert.Equal(t, "tx-2", got.Transactions[0].ID)
	assert.Equal(t, "tx-1", got.Transactions[1].ID)
	assert.Equal(t, int64(100500), got.Balance.Cents)
}

func TestPingAndReopen(t *testing.T) {
	repo, path := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Ping(ctx))
	require.NoError(t, repo.Put(ctx, accountstest.User("u-1", "dave", time.Now())))
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	u, err := reopened.GetByUsername(ctx, "DAVE")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
}
