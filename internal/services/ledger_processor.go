package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"zenbank/internal/amqp"
	"zenbank/internal/core"
	"zenbank/internal/log"
	"zenbank/internal/sheets"
)

// TransactionConsumer delivers transaction events until ctx is cancelled.
type TransactionConsumer interface {
	ConsumeTransactions(ctx context.Context, handler func(context.Context, *amqp.TransactionEvent) error) error
}

// LedgerSyncConfig holds configuration for the ledger processor.
type LedgerSyncConfig struct {
	// MaxRetries is how many failed appends of one event are retried through
	// redelivery before the event is dropped (default: 5).
	MaxRetries int
}

func DefaultLedgerSyncConfig() LedgerSyncConfig {
	return LedgerSyncConfig{MaxRetries: 5}
}

// LedgerSyncStats counts handled events since start.
type LedgerSyncStats struct {
	Processed int64
	Failed    int64
	Dropped   int64
}

// LedgerSyncProcessor mirrors consumed transaction events into the ledger.
type LedgerSyncProcessor struct {
	consumer TransactionConsumer
	ledger   sheets.LedgerWriter
	config   LedgerSyncConfig
	logger   *log.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
	runErr  error

	attemptsMu sync.Mutex
	attempts   map[string]int

	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

func NewLedgerSyncProcessor(consumer TransactionConsumer, ledger sheets.LedgerWriter, config LedgerSyncConfig, logger *log.Logger) *LedgerSyncProcessor {
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultLedgerSyncConfig().MaxRetries
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &LedgerSyncProcessor{
		consumer: consumer,
		ledger:   ledger,
		config:   config,
		logger:   logger.WithComponent(log.ComponentWorker),
		attempts: make(map[string]int),
	}
}

// Run consumes until ctx is cancelled or the consumer gives up.
func (p *LedgerSyncProcessor) Run(ctx context.Context) error {
	if p.consumer == nil {
		return errors.New("ledger processor has no consumer")
	}
	p.logger.InfoContext(ctx, "Ledger sync processor started", "max_retries", p.config.MaxRetries)
	err := p.consumer.ConsumeTransactions(ctx, p.ProcessTransactionEvent)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Start runs the processor in the background. Returns an error if already running.
func (p *LedgerSyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("ledger sync processor is already running")
	}
	if p.cancel != nil {
		p.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.doneCh = make(chan struct{})
	p.runErr = nil

	go func(done chan struct{}) {
		defer close(done)
		err := p.Run(runCtx)
		p.mu.Lock()
		p.runErr = err
		p.running = false
		p.mu.Unlock()
	}(p.doneCh)
	return nil
}

// Stop cancels a started processor and waits for it to finish.
func (p *LedgerSyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel == nil {
		p.mu.Unlock()
		return nil
	}
	cancel, done := p.cancel, p.doneCh
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	select {
	case <-done:
		p.logger.InfoContext(ctx, "Ledger sync processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Ledger sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runErr
}

// IsRunning returns whether the processor is currently running
func (p *LedgerSyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// ProcessTransactionEvent appends one event to the ledger. A returned error
// asks for redelivery; after MaxRetries failures the event is dropped.
func (p *LedgerSyncProcessor) ProcessTransactionEvent(ctx context.Context, e *amqp.TransactionEvent) error {
	entry := sheets.LedgerEntry{
		TransactionID: e.ID,
		UserID:        e.UserID,
		Username:      e.Username,
		Type:          core.TransactionType(e.Type),
		Amount:        core.Money{Cents: e.AmountCents},
		Balance:       core.Money{Cents: e.BalanceCents},
		Date:          e.Date,
	}

	ref, err := p.ledger.AppendEntry(ctx, entry)
	if err != nil {
		attempt := p.recordAttempt(e.ID)
		if attempt >= p.config.MaxRetries {
			p.dropped.Add(1)
			p.forget(e.ID)
			p.logger.ErrorContext(ctx, "Ledger append failed permanently after max retries",
				log.FieldError, err,
				log.FieldTxID, e.ID,
				"attempts", attempt)
			return nil
		}
		p.failed.Add(1)
		p.logger.WarnContext(ctx, "Ledger append failed",
			log.FieldError, err,
			log.FieldTxID, e.ID,
			"attempt", attempt)
		return fmt.Errorf("append ledger entry %s: %w", e.ID, err)
	}

	p.forget(e.ID)
	p.processed.Add(1)
	p.logger.InfoContext(ctx, "Mirrored transaction to ledger",
		log.FieldOperation, log.OpAppend,
		log.FieldTxID, e.ID,
		log.FieldLedgerRef, ref)
	return nil
}

func (p *LedgerSyncProcessor) recordAttempt(id string) int {
	p.attemptsMu.Lock()
	defer p.attemptsMu.Unlock()
	p.attempts[id]++
	return p.attempts[id]
}

func (p *LedgerSyncProcessor) forget(id string) {
	p.attemptsMu.Lock()
	delete(p.attempts, id)
	p.attemptsMu.Unlock()
}

func (p *LedgerSyncProcessor) Stats() LedgerSyncStats {
	return LedgerSyncStats{
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
	}
}
