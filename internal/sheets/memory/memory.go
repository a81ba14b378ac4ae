package memory

import (
	"context"
	"fmt"
	"sync"

	"zenbank/internal/sheets"
)

// Ledger keeps entries in process memory.
type Ledger struct {
	mu    sync.Mutex
	items []sheets.LedgerEntry
	refs  map[string]string
}

var _ sheets.LedgerWriter = (*Ledger)(nil)

func New() *Ledger {
	return &Ledger{refs: make(map[string]string)}
}

// AppendEntry stores the entry and returns a synthetic row reference.
func (l *Ledger) AppendEntry(ctx context.Context, e sheets.LedgerEntry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.TransactionID == "" {
		return "", fmt.Errorf("ledger entry without transaction id")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if ref, ok := l.refs[e.TransactionID]; ok {
		return ref, nil
	}
	l.items = append(l.items, e)
	ref := fmt.Sprintf("mem:%d", len(l.items))
	l.refs[e.TransactionID] = ref
	return ref, nil
}

// Entries returns a copy of the stored entries in append order.
func (l *Ledger) Entries() []sheets.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sheets.LedgerEntry(nil), l.items...)
}
