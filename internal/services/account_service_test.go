package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zenbank/internal/core"
)

func TestRevealBalanceRequiresPIN(t *testing.T) {
	f := newFixture(t)
	u := f.signup(t, "alice")
	ctx := context.Background()

	_, err := f.accounts.RevealBalance(ctx, u.ID, "0000")
	assert.ErrorIs(t, err, core.ErrIncorrectPIN)

	bal, err := f.accounts.RevealBalance(ctx, u.ID, "1234")
	require.NoError(t, err)
	assert.Equal(t, core.StartingBalance, bal)

	_, err = f.accounts.RevealBalance(ctx, "missing", "1234")
	assert.ErrorIs(t, err, core.ErrUserNotFound)
}

func TestDepositAndWithdraw(t *testing.T) {
	f := newFixture(t)
	u := f.signup(t, "alice")
	ctx := context.Background()

	r, err := f.accounts.Deposit(ctx, u.ID, cents(25050), "1234")
	require.NoError(t, err)
	assert.Equal(t, int64(125050), r.Balance.Cents)
	assert.Equal(t, core.Deposit, r.Transaction.Type)

	r, err = f.accounts.Withdraw(ctx, u.ID, cents(5050), "1234")
	require.NoError(t, err)
	assert.Equal(t, int64(120000), r.Balance.Cents)

	history, err := f.accounts.History(ctx, u.ID, "", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, core.Withdrawal, history[0].Type)
	assert.Equal(t, core.Deposit, history[1].Type)

	events := f.publisher.Events()
	require.Len(t, events, 2)
	assert.Equal(t, r.Transaction.ID, events[1].ID)
	assert.Equal(t, int64(120000), events[1].BalanceCents)
	assert.Equal(t, "alice", events[1].Username)
}

func TestWithdrawRejections(t *testing.T) {
	f := newFixture(t)
	u := f.signup(t, "alice")
	ctx := context.Background()

	tests := []struct {
		name    string
		amount  core.Money
		pin     string
		wantErr error
	}{
		{"insufficient funds", cents(100001), "1234", core.ErrInsufficientFunds},
		{"wrong pin", cents(100), "9999", core.ErrIncorrectPIN},
		{"zero amount", cents(0), "1234", core.ErrInvalidAmount},
		{"negative amount", cents(-5), "1234", core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.accounts.Withdraw(ctx, u.ID, tt.amount, tt.pin)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	stored, err := f.repo.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StartingBalance, stored.Balance)
	assert.Empty(t, stored.Transactions)
	assert.Empty(t, f.publisher.Events())
}

func TestPublishFailureDoesNotFailTransaction(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")
	u := f.signup(t, "alice")

	r, err := f.accounts.Deposit(context.Background(), u.ID, cents(100), "1234")
	require.NoError(t, err)
	assert.Equal(t, int64(100100), r.Balance.Cents)
}

func TestBookingForgetsShownSuggestions(t *testing.T) {
	f := newFixture(t)
	u := f.signup(t, "alice")
	ctx := context.Background()
	require.NoError(t, f.shown.Remember(ctx, u.ID, core.Deposit, []float64{500, 1000, 1500}))
	require.NoError(t, f.shown.Remember(ctx, u.ID, core.Withdrawal, []float64{20, 50, 100}))

	_, err := f.accounts.Deposit(ctx, u.ID, cents(100), "1234")
	require.NoError(t, err)

	prev, err := f.shown.Previous(ctx, u.ID, core.Deposit)
	require.NoError(t, err)
	assert.Nil(t, prev)
	prev, err = f.shown.Previous(ctx, u.ID, core.Withdrawal)
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 50, 100}, prev)
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	u := f.signup(t, "alice")
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.accounts.Withdraw(ctx, u.ID, cents(30000), "1234"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	stored, err := f.repo.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), stored.Balance.Cents)
	assert.Len(t, stored.Transactions, 3)
}

func TestHistoryAndRecentAmounts(t *testing.T) {
	f := newFixture(t)
	u := f.signup(t, "alice")
	ctx := context.Background()
	for _, c := range []int64{48000, 51000, 49500, 10000} {
		_, err := f.accounts.Deposit(ctx, u.ID, cents(c), "1234")
		require.NoError(t, err)
	}
	_, err := f.accounts.Withdraw(ctx, u.ID, cents(2000), "1234")
	require.NoError(t, err)

	recent, err := f.accounts.RecentAmounts(ctx, u.ID, core.Deposit, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 495, 510}, recent)

	deposits, err := f.accounts.History(ctx, u.ID, core.Deposit, 2)
	require.NoError(t, err)
	assert.Len(t, deposits, 2)

	_, err = f.accounts.History(ctx, u.ID, core.TransactionType("fee"), 0)
	assert.ErrorIs(t, err, core.ErrInvalidTransactionType)

	sum, err := f.accounts.Summary(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Count)
	assert.Equal(t, int64(158500), sum.Deposits.Cents)
	assert.Equal(t, int64(2000), sum.Withdrawals.Cents)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	u := f.signup(t, "alice")
	ctx := context.Background()

	updated, err := f.accounts.UpdateProfile(ctx, u.ID, core.Profile{
		Name:    "  Alice Liddell ",
		Email:   "alice@wonder.land",
		Phone:   "+44 20 7946 0000",
		Address: "Oxford",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", updated.Profile.Name)

	_, err = f.accounts.UpdateProfile(ctx, u.ID, core.Profile{Name: "", Email: "a@b.c"})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)

	stored, err := f.repo.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@wonder.land", stored.Profile.Email)
	assert.Equal(t, u.PINHash, stored.PINHash)
}

func TestChangePIN(t *testing.T) {
	f := newFixture(t)
	u := f.signup(t, "alice")
	ctx := context.Background()

	assert.ErrorIs(t, f.accounts.ChangePIN(ctx, u.ID, "0000", "4321"), core.ErrIncorrectPIN)

	var verr *core.ValidationError
	require.ErrorAs(t, f.accounts.ChangePIN(ctx, u.ID, "1234", "43"), &verr)

	require.NoError(t, f.accounts.ChangePIN(ctx, u.ID, "1234", "4321"))
	assert.ErrorIs(t, f.accounts.VerifyPIN(ctx, u.ID, "1234"), core.ErrIncorrectPIN)
	assert.NoError(t, f.accounts.VerifyPIN(ctx, u.ID, "4321"))
}
