// Package cache provides a Redis-backed cache for candidate rule and window
// sets. Write paths invalidate the affected network or station key, instead
// of the old flush-everything-on-any-insert behavior; the resolver itself
// stays cache-agnostic and operates on whatever set it is handed.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when a key is not present.
var ErrCacheMiss = errors.New("cache miss")

// DefaultTTL bounds staleness for cached candidate sets.
const DefaultTTL = 2 * time.Minute

// Cache represents a Redis cache implementation
type Cache struct {
	client *redis.Client
}

// NewCache creates a new Redis cache instance
func NewCache(addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// NewCacheWithClient wraps an existing client, for tests.
func NewCacheWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// NetworkRulesKey is the cache key for a network's active candidate set on
// a date, narrowed to a connector type ("any" when unscoped).
func NetworkRulesKey(networkID int32, connectorTypeID *int32, date time.Time) string {
	ct := "any"
	if connectorTypeID != nil {
		ct = fmt.Sprintf("%d", *connectorTypeID)
	}
	return fmt.Sprintf("tariff:rules:%d:%s:%s", networkID, date.Format("2006-01-02"), ct)
}

// StationWindowsKey is the cache key for a station's weekly windows.
func StationWindowsKey(stationID int32) string {
	return fmt.Sprintf("tariff:avail:%d", stationID)
}

// Set sets a key-value pair in the cache
func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return c.client.Set(ctx, key, data, expiration).Err()
}

// Get retrieves a value from the cache
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get key: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return nil
}

// Delete removes a key from the cache
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// InvalidateNetwork drops every cached rule set for a network. Dated keys
// share the network prefix, so a SCAN over the prefix catches them all.
func (c *Cache) InvalidateNetwork(ctx context.Context, networkID int32) error {
	pattern := fmt.Sprintf("tariff:rules:%d:*", networkID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to invalidate key %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan network keys: %w", err)
	}
	return nil
}

// InvalidateStation drops the cached window set for a station.
func (c *Cache) InvalidateStation(ctx context.Context, stationID int32) error {
	return c.Delete(ctx, StationWindowsKey(stationID))
}
