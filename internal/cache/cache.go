// Package cache keeps recent matching results in Redis so repeated lookups
// for the same order skip the scoring pipeline.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/Matchmaker/internal/metrics"
	"github.com/MikeSquared-Agency/Matchmaker/internal/store"
)

const keyPrefix = "matchmaker"

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// ResultCache stores flattened match results. A nil client or a disabled
// cache turns every call into a no-op miss. Redis failures are logged and
// treated as misses; they never fail a request.
type ResultCache struct {
	rdb     *redis.Client
	ttl     time.Duration
	enabled bool
	logger  *zap.Logger
}

func New(rdb *redis.Client, enabled bool, ttl time.Duration, logger *zap.Logger) *ResultCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ResultCache{
		rdb:     rdb,
		ttl:     ttl,
		enabled: enabled && rdb != nil,
		logger:  logger,
	}
}

func (c *ResultCache) Enabled() bool { return c != nil && c.enabled }

// Key identifies one matching request. The fingerprint covers the whole
// order so an edited order never reads a stale entry.
func Key(order *store.Order, maxResults int, fallback bool) string {
	h := fnv.New64a()
	if data, err := json.Marshal(order); err == nil {
		_, _ = h.Write(data)
	}
	return fmt.Sprintf("%s:matches:%s:%d:%t:%x", keyPrefix, order.ID, maxResults, fallback, h.Sum64())
}

func indexKey(orderID string) string {
	return fmt.Sprintf("%s:order:%s:keys", keyPrefix, orderID)
}

// Get returns the cached results for key, if any.
func (c *ResultCache) Get(ctx context.Context, key string) ([]map[string]interface{}, bool) {
	if !c.Enabled() {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	var out []map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		c.logger.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return out, true
}

// Set stores results under key and indexes the key by order so Invalidate
// can find it.
func (c *ResultCache) Set(ctx context.Context, orderID, key string, results []map[string]interface{}) {
	if !c.Enabled() {
		return
	}
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}

	idx := indexKey(orderID)
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, key, data, c.ttl)
	pipe.SAdd(ctx, idx, key)
	pipe.Expire(ctx, idx, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops every cached result for an order and reports how many
// entries were removed.
func (c *ResultCache) Invalidate(ctx context.Context, orderID string) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}
	idx := indexKey(orderID)
	keys, err := c.rdb.SMembers(ctx, idx).Result()
	if err != nil {
		return 0, fmt.Errorf("list cached keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("delete cached keys: %w", err)
	}
	if err := c.rdb.Del(ctx, idx).Err(); err != nil {
		return n, fmt.Errorf("delete cache index: %w", err)
	}
	return n, nil
}
