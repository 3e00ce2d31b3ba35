// Package cache keeps recently computed scoring results in Redis so repeated
// lookups skip the store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
)

const defaultKeyPrefix = "leadscore:score:"

// Cache is a best-effort result cache keyed by lead id.
type Cache interface {
	// Get reports ok=false on a miss. Errors are transport failures.
	Get(ctx context.Context, leadID string) (model.ScoringResult, bool, error)
	Set(ctx context.Context, leadID string, result model.ScoringResult, ttl time.Duration) error
}

// Option configures a RedisCache.
type Option func(*RedisCache)

// WithKeyPrefix namespaces keys, e.g. per deployment.
func WithKeyPrefix(prefix string) Option {
	return func(c *RedisCache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// RedisCache stores results as JSON strings.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client redis.UniversalClient, opts ...Option) *RedisCache {
	c := &RedisCache{client: client, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClient parses url, connects and pings.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *RedisCache) key(leadID string) string {
	return c.prefix + leadID
}

// Get reads a result. Hits and misses are counted by the service, not here.
func (c *RedisCache) Get(ctx context.Context, leadID string) (model.ScoringResult, bool, error) {
	raw, err := c.client.Get(ctx, c.key(leadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.ScoringResult{}, false, nil
	}
	if err != nil {
		return model.ScoringResult{}, false, fmt.Errorf("cache get %s: %w", leadID, err)
	}
	var res model.ScoringResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return model.ScoringResult{}, false, fmt.Errorf("cache decode %s: %w", leadID, err)
	}
	return res, true, nil
}

// Set stores result. A non-positive ttl stores without expiry.
func (c *RedisCache) Set(ctx context.Context, leadID string, result model.ScoringResult, ttl time.Duration) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", leadID, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.key(leadID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", leadID, err)
	}
	return nil
}

var _ Cache = (*RedisCache)(nil)
