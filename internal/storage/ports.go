// Package storage defines the persistence port for users and their ledgers.
// Adapters live in the memory, jsonfile, sqlite and postgres subpackages.
package storage

import (
	"context"

	"wallet/internal/core"
)

// UserStore persists users keyed by username. Implementations must round-trip
// every ledger field exactly, including transaction order.
type UserStore interface {
	Exists(ctx context.Context, username string) (bool, error)
	// Get returns core.ErrUserNotFound when the username is unknown.
	Get(ctx context.Context, username string) (*core.User, error)
	Put(ctx context.Context, user *core.User) error
	Remove(ctx context.Context, username string) error

	// SaveSnapshot replaces the whole store with the given users.
	SaveSnapshot(ctx context.Context, users map[string]*core.User) error
	LoadSnapshot(ctx context.Context) (map[string]*core.User, error)

	Close() error
}
