package server

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/addrindex/addrindex/pkg/config"
	pkgredis "github.com/addrindex/addrindex/pkg/redis"
)

const cacheKeyPrefix = "suggest:"

// SuggestCache caches suggestion result lists in Redis, keyed by the full
// query shape (level, ancestor path, prefix, limit). Concurrent identical
// misses collapse into one engine call via singleflight. The cache is
// flushed whenever a new world is swapped in.
type SuggestCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func NewSuggestCache(client *pkgredis.Client, cfg config.RedisConfig) *SuggestCache {
	return &SuggestCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "suggest-cache"),
	}
}

// GetOrCompute returns the cached result for the query shape, or runs
// computeFn, caches its result, and returns it. The second return reports a
// cache hit.
func (c *SuggestCache) GetOrCompute(
	ctx context.Context,
	level string,
	path []string,
	prefix string,
	limit int,
	computeFn func() ([]string, error),
) ([]string, bool, error) {
	key := c.buildKey(level, path, prefix, limit)
	if result, ok := c.get(ctx, key); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.get(ctx, key); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]string), false, nil
}

func (c *SuggestCache) get(ctx context.Context, key string) ([]string, bool) {
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var result []string
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return result, true
}

func (c *SuggestCache) set(ctx context.Context, key string, result []string) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// Invalidate removes every cached suggestion. Called after a world swap.
func (c *SuggestCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, cacheKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating suggest cache: %w", err)
	}
	c.logger.Info("suggest cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *SuggestCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *SuggestCache) buildKey(level string, path []string, prefix string, limit int) string {
	raw := fmt.Sprintf("%s|%s|%s|limit=%d", level, strings.Join(path, "\x00"), prefix, limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", cacheKeyPrefix, hash[:16])
}
