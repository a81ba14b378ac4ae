package memory

import (
	"context"
	"testing"
	"time"

	"zenbank/internal/core"
	"zenbank/internal/sheets"
)

func TestLedgerAppendAndDedupe(t *testing.T) {
	l := New()
	e := sheets.LedgerEntry{
		TransactionID: "tx-1",
		UserID:        "u-1",
		Type:          core.Deposit,
		Amount:        core.Money{Cents: 123},
		Date:          time.Now(),
	}

	ref, err := l.AppendEntry(context.Background(), e)
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	again, err := l.AppendEntry(context.Background(), e)
	if err != nil || again != ref {
		t.Fatalf("duplicate append: ref=%q err=%v", again, err)
	}

	e.TransactionID = "tx-2"
	ref, err = l.AppendEntry(context.Background(), e)
	if err != nil || ref != "mem:2" {
		t.Fatalf("second append: ref=%q err=%v", ref, err)
	}
	if got := len(l.Entries()); got != 2 {
		t.Fatalf("entries = %d, want 2", got)
	}
}

func TestLedgerRejectsMissingID(t *testing.T) {
	if _, err := New().AppendEntry(context.Background(), sheets.LedgerEntry{}); err == nil {
		t.Fatal("expected error for entry without transaction id")
	}
}
