// Package accounts defines the account repository port and its adapters.
package accounts

import (
	"context"

	"zenbank/internal/core"
)

// Repository persists users together with their transaction history.
//
// Get and GetByUsername return core.ErrUserNotFound for unknown keys.
// Username lookups are case-insensitive. Put inserts or replaces a user by ID
// and returns core.ErrUsernameTaken when another user already owns the name.
type Repository interface {
	Get(ctx context.Context, id string) (core.User, error)
	GetByUsername(ctx context.Context, username string) (core.User, error)
	List(ctx context.Context) ([]core.User, error)
	Put(ctx context.Context, u core.User) error
}

// Pinger is implemented by repositories backed by an external resource.
type Pinger interface {
	Ping(ctx context.Context) error
}
