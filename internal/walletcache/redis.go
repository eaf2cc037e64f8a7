package walletcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "walletquery:"

// RedisCache stores wallet lists in Redis with per-entry TTLs so
// multiple engine instances share query results.
type RedisCache struct {
	client redis.Cmdable
}

// NewRedisCache wraps an existing Redis client.
func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, query string) ([]string, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+query).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("wallet cache get: %w", err)
	}

	var wallets []string
	if err := json.Unmarshal([]byte(raw), &wallets); err != nil {
		// Treat a corrupt entry as a miss; the next Set overwrites it.
		return nil, false, nil
	}
	return wallets, true, nil
}

func (c *RedisCache) Set(ctx context.Context, query string, wallets []string, ttl time.Duration) error {
	raw, err := json.Marshal(wallets)
	if err != nil {
		return fmt.Errorf("wallet cache encode: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+query, raw, ttl).Err(); err != nil {
		return fmt.Errorf("wallet cache set: %w", err)
	}
	return nil
}

var _ Cache = (*RedisCache)(nil)
