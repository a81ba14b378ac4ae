// Package sheets defines the external ledger port fed by the ledger worker.
package sheets

import (
	"context"
	"time"

	"zenbank/internal/core"
)

// LedgerEntry is one booked transaction as mirrored to the ledger.
type LedgerEntry struct {
	TransactionID string
	UserID        string
	Username      string
	Type          core.TransactionType
	Amount        core.Money
	Balance       core.Money
	Date          time.Time
}

// Ports for outbound adapters.
type (
	// LedgerWriter appends entries. Appending an entry whose TransactionID is
	// already present returns the existing reference instead of a new row.
	LedgerWriter interface {
		AppendEntry(ctx context.Context, e LedgerEntry) (rowRef string, err error)
	}
)
