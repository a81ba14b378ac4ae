// Package backend builds the account store and event publisher selected by
// configuration, so the commands share one wiring path.
package backend

import (
	"context"

	"zenbank/internal/accounts"
	"zenbank/internal/services"
)

// Backend bundles what the services need from infrastructure.
type Backend struct {
	Repository accounts.Repository
	// Publisher is nil when AMQP is not configured.
	Publisher services.EventPublisher
	// Ready is nil for stores that live inside the process.
	Ready accounts.Pinger
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath     string
	TOMLAccountsPath string

	// Empty AMQPURL disables event publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
	TOMLBackend   BackendType = "toml"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend, TOMLBackend:
		return true
	default:
		return false
	}
}
