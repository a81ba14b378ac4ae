package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"zenbank/internal/accounts/memory"
	"zenbank/internal/accounts/tomlrepo"
	"zenbank/internal/amqp"
	"zenbank/internal/log"
	"zenbank/internal/sheets"
	gsheet "zenbank/internal/sheets/google"
	ledgermem "zenbank/internal/sheets/memory"
	"zenbank/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the configured account store and, when AMQP is
// configured, the event publisher. A broker that cannot be reached is
// logged and skipped: bookings never depend on it.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case MemoryBackend:
		result, err = f.createMemoryBackend()
	case TOMLBackend:
		result, err = f.createTOMLBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events",
				log.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			result.Backend.Publisher = client
			result.Cleanup = joinCleanup(result.Cleanup, client.Close)
		}
	}
	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Backend: Backend{Repository: repo, Ready: repo},
		Cleanup: repo.Close,
	}, nil
}

// createMemoryBackend keeps accounts for the life of the process only.
func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	f.logger.Warn("Initialized memory backend, accounts are lost on restart")
	return &BackendResult{Backend: Backend{Repository: memory.New()}}, nil
}

func (f *DefaultFactory) createTOMLBackend(config Config) (*BackendResult, error) {
	v := viper.New()
	if config.TOMLAccountsPath != "" {
		v.Set(tomlrepo.PathKey, config.TOMLAccountsPath)
	}
	repo, err := tomlrepo.New(v)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize TOML repository: %w", err)
	}
	f.logger.Info("Initialized TOML backend", "path", repo.Path())
	return &BackendResult{Backend: Backend{Repository: repo}}, nil
}

// CreateLedger returns the Google Sheets ledger when a spreadsheet is
// configured and an in-memory ledger otherwise.
func (f *DefaultFactory) CreateLedger(ctx context.Context, spreadsheetID, sheetName string) (sheets.LedgerWriter, error) {
	if spreadsheetID == "" {
		f.logger.WarnContext(ctx, "No spreadsheet configured, mirroring ledger in memory")
		return ledgermem.New(), nil
	}
	client, err := gsheet.New(ctx, spreadsheetID, sheetName, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets ledger: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets ledger", "sheet", sheetName)
	return client, nil
}

// joinCleanup runs both functions and joins their errors.
func joinCleanup(first, second CleanupFunc) CleanupFunc {
	return func() error {
		var errs []error
		if second != nil {
			errs = append(errs, second())
		}
		if first != nil {
			errs = append(errs, first())
		}
		return errors.Join(errs...)
	}
}
