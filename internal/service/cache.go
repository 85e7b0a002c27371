package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chuckycastle/mealtogether/backend/internal/store"
	"github.com/chuckycastle/mealtogether/backend/internal/types"
)

// ImportCache keeps finished imports keyed by the SHA-256 of the source URL.
// Entries older than the TTL are ignored at read time. The cache is strictly
// best effort: read and write failures are logged and the import proceeds.
type ImportCache struct {
	kv  store.KV
	ttl time.Duration
	now func() time.Time
	log *logrus.Logger
}

func NewImportCache(kv store.KV, ttl time.Duration, log *logrus.Logger) *ImportCache {
	return &ImportCache{kv: kv, ttl: ttl, now: time.Now, log: log}
}

// Get returns the cached recipe for url if a fresh entry exists.
func (c *ImportCache) Get(ctx context.Context, url string) (*types.ImportedRecipe, bool) {
	data, storedAt, err := c.kv.Get(ctx, urlHash(url))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.log.WithError(err).Warn("import cache read failed")
		}
		return nil, false
	}
	if c.now().Sub(storedAt) > c.ttl {
		return nil, false
	}
	var recipe types.ImportedRecipe
	if err := json.Unmarshal(data, &recipe); err != nil {
		c.log.WithError(err).Warn("import cache entry corrupt, ignoring")
		return nil, false
	}
	return &recipe, true
}

// Put stores a finished import, replacing any previous entry for the URL.
func (c *ImportCache) Put(ctx context.Context, url string, recipe *types.ImportedRecipe) {
	data, err := json.Marshal(recipe)
	if err != nil {
		c.log.WithError(err).Warn("import cache marshal failed")
		return
	}
	if err := c.kv.Upsert(ctx, urlHash(url), data, c.now()); err != nil {
		c.log.WithError(err).Warn("import cache write failed")
	}
}

func urlHash(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
