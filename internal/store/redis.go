package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const circuitKey = "recipe_import:circuit"

// recordFailureScript increments the failure counter and opens the circuit in
// one atomic server-side step, so concurrent importers cannot lose updates.
var recordFailureScript = redis.NewScript(`
local failures = redis.call('HINCRBY', KEYS[1], 'consecutive_failures', 1)
local open = 0
if failures >= tonumber(ARGV[1]) then
  open = 1
end
redis.call('HSET', KEYS[1], 'is_open', open, 'last_failure_at', ARGV[2])
return open
`)

// RedisStore implements KV and CircuitStore on a Redis client.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func cacheKey(key string) string {
	return "recipe_import:cache:" + key
}

// Get returns the stored value and its write timestamp.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, time.Time, error) {
	fields, err := s.client.HGetAll(ctx, cacheKey(key)).Result()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read cache entry: %w", err)
	}
	data, ok := fields["data"]
	if !ok {
		return nil, time.Time{}, ErrNotFound
	}

	storedAt := time.Time{}
	if unix, err := strconv.ParseInt(fields["stored_at"], 10, 64); err == nil {
		storedAt = time.Unix(unix, 0)
	}
	return []byte(data), storedAt, nil
}

// Upsert inserts or replaces the value for key.
func (s *RedisStore) Upsert(ctx context.Context, key string, value []byte, storedAt time.Time) error {
	err := s.client.HSet(ctx, cacheKey(key),
		"data", value,
		"stored_at", storedAt.Unix(),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// State returns the circuit record, or the zero state when none exists.
func (s *RedisStore) State(ctx context.Context) (CircuitState, error) {
	fields, err := s.client.HGetAll(ctx, circuitKey).Result()
	if err != nil {
		return CircuitState{}, fmt.Errorf("failed to read circuit state: %w", err)
	}

	state := CircuitState{}
	if v, err := strconv.Atoi(fields["consecutive_failures"]); err == nil {
		state.ConsecutiveFailures = v
	}
	if v, err := strconv.Atoi(fields["is_open"]); err == nil {
		state.IsOpen = v != 0
	}
	if unix, err := strconv.ParseInt(fields["last_failure_at"], 10, 64); err == nil {
		state.LastFailureAt = time.Unix(unix, 0)
	}
	return state, nil
}

// RecordFailure runs the atomic increment-with-threshold script.
func (s *RedisStore) RecordFailure(ctx context.Context, threshold int, at time.Time) (bool, error) {
	open, err := recordFailureScript.Run(ctx, s.client, []string{circuitKey}, threshold, at.Unix()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to record circuit failure: %w", err)
	}
	return open != 0, nil
}

// Reset closes the circuit.
func (s *RedisStore) Reset(ctx context.Context) error {
	err := s.client.HSet(ctx, circuitKey, "consecutive_failures", 0, "is_open", 0).Err()
	if err != nil {
		return fmt.Errorf("failed to reset circuit state: %w", err)
	}
	return nil
}

var (
	_ KV           = (*RedisStore)(nil)
	_ CircuitStore = (*RedisStore)(nil)
)
