package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zenbank/internal/accounts/accountstest"
	accountsmem "zenbank/internal/accounts/memory"
	"zenbank/internal/core"
	"zenbank/internal/sheets"
	ledgermem "zenbank/internal/sheets/memory"
)

func userWithHistory(t *testing.T, id, name string) core.User {
	t.Helper()
	t0 := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	u := accountstest.User(id, name, t0)
	steps := []struct {
		typ   core.TransactionType
		cents int64
	}{
		{core.Deposit, 20000},
		{core.Withdrawal, 5000},
		{core.Deposit, 1000},
	}
	for i, s := range steps {
		tx := core.Transaction{ID: id + "-tx" + string(rune('1'+i)), Type: s.typ, Amount: core.Money{Cents: s.cents}, Date: t0.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, u.Apply(tx))
	}
	return u
}

func TestLedgerEntriesCarryRunningBalance(t *testing.T) {
	u := userWithHistory(t, "u1", "alice")

	entries := LedgerEntries(u, 0)
	require.Len(t, entries, 3)
	assert.Equal(t, "u1-tx3", entries[0].TransactionID)
	assert.Equal(t, int64(116000), entries[0].Balance.Cents)
	assert.Equal(t, int64(115000), entries[1].Balance.Cents)
	assert.Equal(t, int64(120000), entries[2].Balance.Cents)

	assert.Len(t, LedgerEntries(u, 2), 2)
}

func TestReconcileReplaysOldestFirstAndIsIdempotent(t *testing.T) {
	repo := accountsmem.New(userWithHistory(t, "u1", "alice"), userWithHistory(t, "u2", "bob"))
	ledger := ledgermem.New()
	w := NewLedgerWorker(repo, ledger, 0, nil)

	n, err := w.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	entries := ledger.Entries()
	require.Len(t, entries, 6)
	assert.Equal(t, "u1-tx1", entries[0].TransactionID)
	assert.Equal(t, "u1-tx3", entries[2].TransactionID)

	_, err = w.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Len(t, ledger.Entries(), 6)
}

type brokenLedger struct{}

func (brokenLedger) AppendEntry(context.Context, sheets.LedgerEntry) (string, error) {
	return "", errors.New("permission denied")
}

func TestReconcileReportsFailures(t *testing.T) {
	repo := accountsmem.New(userWithHistory(t, "u1", "alice"))
	w := NewLedgerWorker(repo, brokenLedger{}, 5, nil)

	n, err := w.Reconcile(context.Background())
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Contains(t, err.Error(), "3 entries failed")
}
