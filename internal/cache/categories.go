// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// categories.go provides a Valkey-backed cache of the category list.
// Every category write invalidates it by bumping a version counter, and a
// list read from the store is only cached if the counter has not moved
// since the read began.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"deskboard/internal/models"
)

const (
	// CategoriesKey is the Valkey key holding the cached list.
	CategoriesKey = "deskboard:categories"

	// CategoriesVersionKey counts invalidations of CategoriesKey.
	CategoriesVersionKey = "deskboard:categories:version"

	// DefaultCategoriesTTL is how long a cached list is served.
	DefaultCategoriesTTL = time.Minute
)

// CategoryCache caches the ordered category list in Valkey. Errors are
// logged and reported as misses.
type CategoryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCategoryCache creates a category cache backed by the given Valkey client.
func NewCategoryCache(client *redis.Client, ttl time.Duration) *CategoryCache {
	if ttl == 0 {
		ttl = DefaultCategoriesTTL
	}
	return &CategoryCache{client: client, ttl: ttl}
}

// Get returns the cached list, if present.
func (c *CategoryCache) Get(ctx context.Context) ([]models.Category, bool) {
	val, err := c.client.Get(ctx, CategoriesKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("category cache get error", "error", err)
		return nil, false
	}

	var cats []models.Category
	if err := json.Unmarshal(val, &cats); err != nil {
		slog.Warn("category cache entry unreadable", "error", err)
		return nil, false
	}
	slog.Debug("category cache hit", "count", len(cats))
	return cats, true
}

// Version returns the invalidation counter. ok is false if it could not
// be read, in which case the caller must not Set.
func (c *CategoryCache) Version(ctx context.Context) (int64, bool) {
	v, err := c.client.Get(ctx, CategoriesVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		slog.Warn("category cache version error", "error", err)
		return 0, false
	}
	return v, true
}

// Set stores the list with the configured TTL, unless the cache has been
// invalidated since version was read.
func (c *CategoryCache) Set(ctx context.Context, version int64, cats []models.Category) {
	data, err := json.Marshal(cats)
	if err != nil {
		slog.Warn("category cache encode error", "error", err)
		return
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, CategoriesVersionKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			slog.Debug("category cache set skipped, list is stale", "version", version, "current", current)
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, CategoriesKey, data, c.ttl)
			return nil
		})
		return err
	}, CategoriesVersionKey)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		slog.Debug("category cache set skipped, invalidated concurrently")
	case err != nil:
		slog.Warn("category cache set error", "error", err)
	}
}

// Invalidate drops the cached list and bumps the version so in-flight
// reads do not store what they fetched.
func (c *CategoryCache) Invalidate(ctx context.Context) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, CategoriesVersionKey)
		pipe.Del(ctx, CategoriesKey)
		return nil
	})
	if err != nil {
		slog.Warn("category cache invalidate error", "error", err)
		return
	}
	slog.Debug("category cache invalidated")
}
