// Package worker hosts the ledger mirror: the AMQP-driven sync loop and a
// startup reconciliation that replays stored history into the ledger.
package worker

import (
	"context"
	"fmt"

	"zenbank/internal/accounts"
	"zenbank/internal/core"
	"zenbank/internal/log"
	"zenbank/internal/sheets"
)

// DefaultReconcileDepth is how many recent transactions per account are
// replayed at startup.
const DefaultReconcileDepth = 20

// LedgerWorker replays stored transactions into the ledger. Ledgers ignore
// transaction ids they already hold, so replay is safe to repeat.
type LedgerWorker struct {
	repo   accounts.Repository
	ledger sheets.LedgerWriter
	depth  int
	logger *log.Logger
}

func NewLedgerWorker(repo accounts.Repository, ledger sheets.LedgerWriter, depth int, logger *log.Logger) *LedgerWorker {
	if depth <= 0 {
		depth = DefaultReconcileDepth
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &LedgerWorker{
		repo:   repo,
		ledger: ledger,
		depth:  depth,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Reconcile appends the most recent transactions of every account, oldest
// first, and returns how many entries it handed to the ledger. This recovers
// events lost while the broker or the worker was down.
func (w *LedgerWorker) Reconcile(ctx context.Context) (int, error) {
	users, err := w.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list accounts: %w", err)
	}

	total, failed := 0, 0
	for _, u := range users {
		entries := LedgerEntries(u, w.depth)
		for i := len(entries) - 1; i >= 0; i-- {
			if err := ctx.Err(); err != nil {
				return total, err
			}
			if _, err := w.ledger.AppendEntry(ctx, entries[i]); err != nil {
				failed++
				w.logger.ErrorContext(ctx, "Failed to reconcile ledger entry",
					log.FieldError, err,
					log.FieldTxID, entries[i].TransactionID,
					log.FieldUserID, u.ID)
				continue
			}
			total++
		}
	}

	w.logger.InfoContext(ctx, "Ledger reconciliation finished",
		"accounts", len(users),
		"entries", total,
		"errors", failed)
	if failed > 0 {
		return total, fmt.Errorf("reconcile ledger: %d entries failed", failed)
	}
	return total, nil
}

// LedgerEntries returns up to depth ledger entries for u, newest first, with
// the balance that followed each transaction.
func LedgerEntries(u core.User, depth int) []sheets.LedgerEntry {
	txs := u.History("", depth)
	out := make([]sheets.LedgerEntry, 0, len(txs))
	balance := u.Balance.Cents
	for _, tx := range txs {
		out = append(out, sheets.LedgerEntry{
			TransactionID: tx.ID,
			UserID:        u.ID,
			Username:      u.Username,
			Type:          tx.Type,
			Amount:        tx.Amount,
			Balance:       core.Money{Cents: balance},
			Date:          tx.Date,
		})
		// Undo tx to get the balance before it.
		switch tx.Type {
		case core.Deposit:
			balance -= tx.Amount.Cents
		case core.Withdrawal:
			balance += tx.Amount.Cents
		}
	}
	return out
}
