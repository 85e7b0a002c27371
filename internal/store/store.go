// Package store provides the persistence interfaces consumed by the import
// pipeline: a generic key-value store for the response cache and an atomic
// state store for the circuit breaker singleton. Redis backs both by default;
// a SQL implementation and an in-memory implementation satisfy the same
// interfaces.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by KV.Get when no value exists for the key.
var ErrNotFound = errors.New("store: key not found")

// KV is a content-addressed key-value store with a write timestamp. TTL
// filtering is the caller's concern: Get returns the stored value together
// with when it was written, and never deletes.
type KV interface {
	Get(ctx context.Context, key string) (value []byte, storedAt time.Time, err error)
	Upsert(ctx context.Context, key string, value []byte, storedAt time.Time) error
}

// CircuitState is the persisted circuit breaker record. Exactly one instance
// exists system-wide.
type CircuitState struct {
	ConsecutiveFailures int
	LastFailureAt       time.Time
	IsOpen              bool
}

// CircuitStore persists the breaker state. RecordFailure must be atomic at
// the storage layer (a single conditional update, not read-then-write), so it
// is safe under concurrent importers.
type CircuitStore interface {
	// State returns the current circuit record; a store that has never
	// recorded a failure returns the zero state.
	State(ctx context.Context) (CircuitState, error)

	// RecordFailure atomically increments the failure counter, stamps the
	// failure time, and opens the circuit when the counter reaches
	// threshold. It reports whether the circuit is now open.
	RecordFailure(ctx context.Context, threshold int, at time.Time) (bool, error)

	// Reset closes the circuit and zeroes the failure counter.
	Reset(ctx context.Context) error
}
