// Package accountstest holds the behaviour every accounts.Repository must
// satisfy, shared by the adapter test suites.
package accountstest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zenbank/internal/accounts"
	"zenbank/internal/core"
)

// Factory builds an empty repository for a single subtest.
type Factory func(t *testing.T) accounts.Repository

// User returns a fixture with pre-hashed placeholder secrets.
func User(id, username string, created time.Time) core.User {
	return core.User{
		ID:           id,
		Username:     username,
		PasswordHash: "pw-hash-" + id,
		PINHash:      "pin-hash-" + id,
		Profile: core.Profile{
			Name:  "Test " + username,
			Email: username + "@example.com",
		},
		Balance:      core.StartingBalance,
		Transactions: []core.Transaction{},
		CreatedAt:    created.UTC(),
	}
}

// Run exercises the repository contract against repositories built by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("get unknown user", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, core.ErrUserNotFound)
		_, err = repo.GetByUsername(context.Background(), "missing")
		assert.ErrorIs(t, err, core.ErrUserNotFound)
	})

	t.Run("put then get", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		u := User("u-1", "Alice", t0)
		u.Profile.Phone = "+39 333 0000000"
		u.Profile.Address = "Via Roma 1"
		require.NoError(t, repo.Put(ctx, u))

		got, err := repo.Get(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, "Alice", got.Username)
		assert.Equal(t, u.PasswordHash, got.PasswordHash)
		assert.Equal(t, u.PINHash, got.PINHash)
		assert.Equal(t, u.Profile, got.Profile)
		assert.Equal(t, core.StartingBalance, got.Balance)
		assert.True(t, u.CreatedAt.Equal(got.CreatedAt))
		assert.Empty(t, got.Transactions)
	})

	t.Run("username lookup ignores case", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Put(ctx, User("u-1", "Alice", t0)))

		got, err := repo.GetByUsername(ctx, "  aLiCe ")
		require.NoError(t, err)
		assert.Equal(t, "u-1", got.ID)
	})

	t.Run("duplicate username rejected", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Put(ctx, User("u-1", "alice", t0)))
		err := repo.Put(ctx, User("u-2", "ALICE", t0))
		assert.ErrorIs(t, err, core.ErrUsernameTaken)

		_, err = repo.Get(ctx, "u-2")
		assert.ErrorIs(t, err, core.ErrUserNotFound)
	})

	t.Run("transactions round trip newest first", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		u := User("u-1", "alice", t0)
		for i, cents := range []int64{5000, 12050, 800} {
			typ := core.Deposit
			if i == 1 {
				typ = core.Withdrawal
			}
			tx := core.Transaction{
				ID:     "tx-" + string(rune('a'+i)),
				Type:   typ,
				Amount: core.Money{Cents: cents},
				Date:   t0.Add(time.Duration(i+1) * time.Minute),
			}
			require.NoError(t, u.Apply(tx))
		}
		require.NoError(t, repo.Put(ctx, u))

		got, err := repo.Get(ctx, "u-1")
		require.NoError(t, err)
		require.Len(t, got.Transactions, 3)
		assert.Equal(t, "tx-c", got.Transactions[0].ID)
		assert.Equal(t, "tx-a", got.Transactions[2].ID)
		assert.Equal(t, core.Withdrawal, got.Transactions[1].Type)
		assert.Equal(t, int64(12050), got.Transactions[1].Amount.Cents)
		assert.Equal(t, u.Balance, got.Balance)
	})

	t.Run("put replaces existing user", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		u := User("u-1", "alice", t0)
		require.NoError(t, repo.Put(ctx, u))

		tx := core.Transaction{ID: "tx-1", Type: core.Deposit, Amount: core.Money{Cents: 2500}, Date: t0.Add(time.Hour)}
		require.NoError(t, u.Apply(tx))
		u.Profile.Email = "alice@zen.example"
		require.NoError(t, repo.Put(ctx, u))

		got, err := repo.Get(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, int64(102500), got.Balance.Cents)
		assert.Equal(t, "alice@zen.example", got.Profile.Email)
		require.Len(t, got.Transactions, 1)

		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("list ordered by creation", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Put(ctx, User("u-2", "bob", t0.Add(time.Hour))))
		require.NoError(t, repo.Put(ctx, User("u-1", "alice", t0)))

		all, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "alice", all[0].Username)
		assert.Equal(t, "bob", all[1].Username)
	})

	t.Run("returned users are copies", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		u := User("u-1", "alice", t0)
		require.NoError(t, u.Apply(core.Transaction{ID: "tx-1", Type: core.Deposit, Amount: core.Money{Cents: 100}, Date: t0}))
		require.NoError(t, repo.Put(ctx, u))

		got, err := repo.Get(ctx, "u-1")
		require.NoError(t, err)
		got.Transactions[0].Amount.Cents = 1
		got.Balance.Cents = 0

		again, err := repo.Get(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, int64(100), again.Transactions[0].Amount.Cents)
		assert.Equal(t, u.Balance, again.Balance)
	})

	t.Run("cancelled context", func(t *testing.T) {
		repo := newRepo(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := repo.Get(ctx, "u-1")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
