// Package cache is the read-side cache over the shared key-value store.
// Entries are best-effort: absence always falls through to the source of
// truth, and an entry is never treated as authoritative.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"radiantgo/pkg/kvstore"
	"radiantgo/pkg/logger"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache: miss")

const (
	detailPrefix = "bookings:detail:"
	listPrefix   = "bookings:list:"
)

// DetailKey is the cache key for one booking's detail view.
func DetailKey(ref string) string {
	return detailPrefix + ref
}

// ListKey is the cache key for one paginated listing page.
func ListKey(limit int, offset int64) string {
	return fmt.Sprintf("%s%d:%d", listPrefix, limit, offset)
}

// ListPattern matches every paginated listing key. Any booking write can
// affect any page, so invalidation sweeps the whole family.
func ListPattern() string {
	return listPrefix + "*"
}

type Cache struct {
	store kvstore.Store
	log   *logger.Logger
}

func New(store kvstore.Store, log *logger.Logger) *Cache {
	return &Cache{store: store, log: log}
}

// Get unmarshals the cached value into dest, or returns ErrMiss. Store
// failures are logged and reported as misses: the caller reads through to
// the record store either way.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kvstore.ErrKeyNotFound) {
			c.log.Warn("Cache read failed", "key", key, "error", err)
		}
		return ErrMiss
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		c.log.Warn("Cache entry corrupted, dropping", "key", key, "error", err)
		_ = c.store.Delete(ctx, key)
		return ErrMiss
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}
	if err := c.store.Set(ctx, key, string(raw), ttl); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Invalidate removes every key matching a glob-style pattern. It must run
// strictly after the underlying write is durable, never before.
func (c *Cache) Invalidate(ctx context.Context, pattern string) error {
	removed, err := c.store.DeletePattern(ctx, pattern)
	if err != nil {
		return fmt.Errorf("cache invalidate %s: %w", pattern, err)
	}
	c.log.Debug("Cache invalidated", "pattern", pattern, "removed", removed)
	return nil
}

// GetOrSet returns the cached value or computes, stores and returns it.
// There is no single-flight: duplicate concurrent computation on miss is
// tolerable, correctness depends only on invalidation.
func (c *Cache) GetOrSet(ctx context.Context, key string, ttl time.Duration, dest any, compute func(ctx context.Context) (any, error)) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	}

	value, err := compute(ctx)
	if err != nil {
		return err
	}
	if err := c.Set(ctx, key, value, ttl); err != nil {
		c.log.Warn("Cache populate failed", "key", key, "error", err)
	}

	// Round-trip through JSON so dest is filled identically on the miss
	// path and the hit path.
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}
	return json.Unmarshal(raw, dest)
}
