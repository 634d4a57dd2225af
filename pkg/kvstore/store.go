// Package kvstore abstracts the shared key-value service that backs
// distributed locks and the read-side cache. Two implementations exist: a
// Redis client for production and an in-process map for environments
// without a reachable Redis. A process uses exactly one of them, selected
// at startup.
package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by Get when the key is absent or expired.
var ErrKeyNotFound = errors.New("kvstore: key not found")

// Store is the minimal contract the lock manager and cache need. All
// operations must be atomic with respect to each other for a single key.
type Store interface {
	// Get returns the value stored at key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key unconditionally. Removing an absent key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// SetNX stores value only if key is absent. Returns true when the
	// value was stored.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// CompareAndDelete removes key only if its current value equals
	// expected. Returns true when the key was deleted.
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)

	// DeletePattern removes every key matching a glob-style pattern and
	// returns how many were removed.
	DeletePattern(ctx context.Context, pattern string) (int, error)

	// Ping reports whether the backing service is reachable.
	Ping(ctx context.Context) error
}
