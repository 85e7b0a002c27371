package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CacheEntry is the SQL row backing the import cache. Entries are upserted by
// URL hash and expired at read time by the cache layer, never swept.
type CacheEntry struct {
	URLHash    string    `gorm:"primaryKey;size:64"`
	RecipeData []byte    `gorm:"not null"`
	CachedAt   time.Time `gorm:"not null;index"`
}

// TableName keeps the table name explicit.
func (CacheEntry) TableName() string { return "recipe_import_cache" }

// CircuitRow is the singleton SQL row backing the circuit breaker.
type CircuitRow struct {
	ID                  int `gorm:"primaryKey"`
	ConsecutiveFailures int
	LastFailureAt       *time.Time
	IsOpen              bool
}

// TableName keeps the table name explicit.
func (CircuitRow) TableName() string { return "recipe_import_circuit_state" }

// GormStore implements KV and CircuitStore on a SQL database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore and migrates its tables.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&CacheEntry{}, &CircuitRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate import store tables: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Get returns the stored value and its write timestamp.
func (s *GormStore) Get(ctx context.Context, key string) ([]byte, time.Time, error) {
	var entry CacheEntry
	err := s.db.WithContext(ctx).First(&entry, "url_hash = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, time.Time{}, ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return entry.RecipeData, entry.CachedAt, nil
}

// Upsert inserts or replaces the value for key.
func (s *GormStore) Upsert(ctx context.Context, key string, value []byte, storedAt time.Time) error {
	entry := CacheEntry{URLHash: key, RecipeData: value, CachedAt: storedAt}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"recipe_data", "cached_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// State returns the circuit record, or the zero state when the row has never
// been written.
func (s *GormStore) State(ctx context.Context) (CircuitState, error) {
	var row CircuitRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return CircuitState{}, nil
	}
	if err != nil {
		return CircuitState{}, fmt.Errorf("failed to read circuit state: %w", err)
	}

	state := CircuitState{
		ConsecutiveFailures: row.ConsecutiveFailures,
		IsOpen:              row.IsOpen,
	}
	if row.LastFailureAt != nil {
		state.LastFailureAt = *row.LastFailureAt
	}
	return state, nil
}

// RecordFailure increments the counter and derives is_open inside a single
// UPDATE, so concurrent workers cannot interleave a read-then-write.
func (s *GormStore) RecordFailure(ctx context.Context, threshold int, at time.Time) (bool, error) {
	db := s.db.WithContext(ctx)

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&CircuitRow{ID: 1}).Error; err != nil {
		return false, fmt.Errorf("failed to initialize circuit state: %w", err)
	}

	err := db.Model(&CircuitRow{}).Where("id = ?", 1).Updates(map[string]interface{}{
		"consecutive_failures": gorm.Expr("consecutive_failures + 1"),
		"is_open":              gorm.Expr("consecutive_failures + 1 >= ?", threshold),
		"last_failure_at":      at,
	}).Error
	if err != nil {
		return false, fmt.Errorf("failed to record circuit failure: %w", err)
	}

	var row CircuitRow
	if err := db.First(&row, "id = ?", 1).Error; err != nil {
		return false, fmt.Errorf("failed to read circuit state: %w", err)
	}
	return row.IsOpen, nil
}

// Reset closes the circuit.
func (s *GormStore) Reset(ctx context.Context) error {
	err := s.db.WithContext(ctx).Model(&CircuitRow{}).Where("id = ?", 1).Updates(map[string]interface{}{
		"consecutive_failures": 0,
		"is_open":              false,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to reset circuit state: %w", err)
	}
	return nil
}

var (
	_ KV           = (*GormStore)(nil)
	_ CircuitStore = (*GormStore)(nil)
)
