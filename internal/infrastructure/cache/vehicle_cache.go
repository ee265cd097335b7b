package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tempcover/backend/internal/domain/vehicle"
)

const vehicleKeyPrefix = "tempcover:vehicle:"

// RedisVehicleCache stores vehicle summaries as JSON with a TTL
type RedisVehicleCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisVehicleCache creates a cache. A non-positive ttl defaults to 24h.
func NewRedisVehicleCache(client redis.UniversalClient, ttl time.Duration) *RedisVehicleCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisVehicleCache{client: client, ttl: ttl}
}

// Get returns the cached summary, if any
func (c *RedisVehicleCache) Get(ctx context.Context, registration string) (*vehicle.Summary, bool, error) {
	raw, err := c.client.Get(ctx, vehicleKeyPrefix+registration).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read vehicle cache: %w", err)
	}

	var summary vehicle.Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		// Drop entries written by an older schema.
		_ = c.client.Del(ctx, vehicleKeyPrefix+registration).Err()
		return nil, false, nil
	}
	return &summary, true, nil
}

// Set stores summary for the cache TTL
func (c *RedisVehicleCache) Set(ctx context.Context, registration string, summary *vehicle.Summary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode vehicle summary: %w", err)
	}
	if err := c.client.Set(ctx, vehicleKeyPrefix+registration, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write vehicle cache: %w", err)
	}
	return nil
}

// Ensure RedisVehicleCache implements vehicle.Cache
var _ vehicle.Cache = (*RedisVehicleCache)(nil)
