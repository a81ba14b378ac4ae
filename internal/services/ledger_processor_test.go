package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zenbank/internal/amqp"
	"zenbank/internal/sheets"
	ledgermem "zenbank/internal/sheets/memory"
)

type flakyLedger struct {
	failures int
	calls    int
	inner    *ledgermem.Ledger
}

func (l *flakyLedger) AppendEntry(ctx context.Context, e sheets.LedgerEntry) (string, error) {
	l.calls++
	if l.calls <= l.failures {
		return "", errors.New("sheets quota exceeded")
	}
	return l.inner.AppendEntry(ctx, e)
}

// chanConsumer hands every queued event to the handler, then blocks until
// the context ends.
type chanConsumer struct {
	events  chan *amqp.TransactionEvent
	results chan error
}

func (c *chanConsumer) ConsumeTransactions(ctx context.Context, handler func(context.Context, *amqp.TransactionEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-c.events:
			c.results <- handler(ctx, e)
		}
	}
}

func testEvent(id string) *amqp.TransactionEvent {
	return &amqp.TransactionEvent{
		ID:           id,
		UserID:       "u-1",
		Username:     "alice",
		Type:         "deposit",
		AmountCents:  2500,
		BalanceCents: 102500,
		Date:         time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestProcessTransactionEvent(t *testing.T) {
	ledger := ledgermem.New()
	p := NewLedgerSyncProcessor(nil, ledger, DefaultLedgerSyncConfig(), nil)

	require.NoError(t, p.ProcessTransactionEvent(context.Background(), testEvent("tx-1")))

	entries := ledger.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "tx-1", entries[0].TransactionID)
	assert.Equal(t, int64(2500), entries[0].Amount.Cents)
	assert.Equal(t, int64(102500), entries[0].Balance.Cents)
	assert.Equal(t, "deposit", string(entries[0].Type))
	assert.Equal(t, LedgerSyncStats{Processed: 1}, p.Stats())
}

func TestProcessTransactionEventRetriesThenDrops(t *testing.T) {
	ledger := &flakyLedger{failures: 10, inner: ledgermem.New()}
	p := NewLedgerSyncProcessor(nil, ledger, LedgerSyncConfig{MaxRetries: 3}, nil)
	ctx := context.Background()

	assert.Error(t, p.ProcessTransactionEvent(ctx, testEvent("tx-1")))
	assert.Error(t, p.ProcessTransactionEvent(ctx, testEvent("tx-1")))
	assert.NoError(t, p.ProcessTransactionEvent(ctx, testEvent("tx-1")), "third failure drops the event")

	assert.Equal(t, LedgerSyncStats{Failed: 2, Dropped: 1}, p.Stats())
}

func TestProcessTransactionEventRecoversAfterFailure(t *testing.T) {
	ledger := &flakyLedger{failures: 1, inner: ledgermem.New()}
	p := NewLedgerSyncProcessor(nil, ledger, DefaultLedgerSyncConfig(), nil)
	ctx := context.Background()

	assert.Error(t, p.ProcessTransactionEvent(ctx, testEvent("tx-1")))
	assert.NoError(t, p.ProcessTransactionEvent(ctx, testEvent("tx-1")))
	assert.Len(t, ledger.inner.Entries(), 1)
	assert.Equal(t, LedgerSyncStats{Processed: 1, Failed: 1}, p.Stats())
}

func TestLedgerSyncProcessorLifecycle(t *testing.T) {
	consumer := &chanConsumer{events: make(chan *amqp.TransactionEvent), results: make(chan error)}
	ledger := ledgermem.New()
	p := NewLedgerSyncProcessor(consumer, ledger, DefaultLedgerSyncConfig(), nil)

	assert.False(t, p.IsRunning())
	require.NoError(t, p.Start(context.Background()))
	assert.True(t, p.IsRunning())
	assert.Error(t, p.Start(context.Background()), "second start must fail")

	consumer.events <- testEvent("tx-1")
	require.NoError(t, <-consumer.results)
	assert.Len(t, ledger.Entries(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
	assert.False(t, p.IsRunning())
	assert.NoError(t, p.Stop(ctx), "stop is idempotent")
}

func TestLedgerSyncProcessorRunWithoutConsumer(t *testing.T) {
	p := NewLedgerSyncProcessor(nil, ledgermem.New(), LedgerSyncConfig{}, nil)
	assert.Error(t, p.Run(context.Background()))
	assert.Equal(t, DefaultLedgerSyncConfig().MaxRetries, p.config.MaxRetries)
}
