package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"zenbank/internal/amqp"
	"zenbank/internal/backend"
	"zenbank/internal/cli"
	"zenbank/internal/config"
	"zenbank/internal/log"
	"zenbank/internal/services"
	"zenbank/internal/sheets"
	"zenbank/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentWorker)

	logger.Info("Starting zenbank-worker", log.FieldOperation, log.OpStartup)
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required for the worker")
	}

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	logger.Info("Ledger target", "google_sheets", cfg.LedgerEnabled(), "sheet", cfg.LedgerSheetName)
	factory := backend.NewFactory(logger)
	ledger, err := factory.CreateLedger(ctx, cfg.GoogleSpreadsheetID, cfg.LedgerSheetName)
	if err != nil {
		return err
	}

	// Catch up on bookings that were made while no worker was consuming.
	if cfg.LedgerReconcile {
		if err := reconcile(ctx, cfg, factory, ledger, logger); err != nil {
			logger.Error("Startup reconcile failed", log.FieldError, err)
		}
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer client.Close()

	processor := services.NewLedgerSyncProcessor(client, ledger, services.DefaultLedgerSyncConfig(), logger)
	err = processor.Run(ctx)
	logger.Info("Shutting down worker...", log.FieldOperation, log.OpShutdown)

	stats := processor.Stats()
	logger.Info("Worker shutdown complete",
		"processed", stats.Processed,
		"failed", stats.Failed,
		"dropped", stats.Dropped)
	return err
}

// reconcile replays recent history into the ledger. The memory backend has
// nothing to replay.
func reconcile(ctx context.Context, cfg *config.Config, factory *backend.DefaultFactory, ledger sheets.LedgerWriter, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	if backendCfg.Type == backend.MemoryBackend {
		logger.Info("Skipping reconcile for memory backend")
		return nil
	}
	// The worker only reads accounts; it never publishes.
	backendCfg.AMQPURL = ""

	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	n, err := worker.NewLedgerWorker(result.Backend.Repository, ledger, cfg.LedgerReconcileDepth, logger).Reconcile(ctx)
	logger.Info("Startup reconcile finished", log.FieldCount, n)
	return err
}
