// Package storage provides key-addressed blob persistence for the
// ledger and watchlist snapshots.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no value exists for a key.
var ErrNotFound = errors.New("key not found")

// KVStore is an opaque byte store addressed by string keys. The ledger
// and watchlist each serialize to their own independent key; no
// cross-key atomicity is assumed.
type KVStore interface {
	// Get retrieves the value for key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores a value, overwriting any previous one.
	Put(ctx context.Context, key string, data []byte) error

	// Delete removes a key. No error if absent.
	Delete(ctx context.Context, key string) error

	// Exists checks whether a key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases underlying resources.
	Close() error
}
