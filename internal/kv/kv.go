// Package kv provides the key/value storage capability used for durable
// state. Keys are plain strings; values are opaque bytes.
//
// A BadgerDB-backed implementation is used on disk and an in-memory
// implementation serves tests and ephemeral sessions.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// Store is a minimal get/set/remove key/value store.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if not present.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value, overwriting any existing one.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a key. No error if the key does not exist.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}
