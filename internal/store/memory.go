package store

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value    []byte
	storedAt time.Time
}

// MemoryStore is an in-process implementation of KV and CircuitStore, used in
// tests and as a last-resort backend when no external store is configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	circuit CircuitState
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Get returns the stored value and its write timestamp.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, time.Time{}, ErrNotFound
	}
	return entry.value, entry.storedAt, nil
}

// Upsert inserts or replaces the value for key.
func (s *MemoryStore) Upsert(_ context.Context, key string, value []byte, storedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{value: value, storedAt: storedAt}
	return nil
}

// State returns the circuit record.
func (s *MemoryStore) State(context.Context) (CircuitState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.circuit, nil
}

// RecordFailure increments the counter under the store lock.
func (s *MemoryStore) RecordFailure(_ context.Context, threshold int, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.circuit.ConsecutiveFailures++
	s.circuit.LastFailureAt = at
	s.circuit.IsOpen = s.circuit.ConsecutiveFailures >= threshold
	return s.circuit.IsOpen, nil
}

// Reset closes the circuit.
func (s *MemoryStore) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.circuit = CircuitState{}
	return nil
}

var (
	_ KV           = (*MemoryStore)(nil)
	_ CircuitStore = (*MemoryStore)(nil)
)
