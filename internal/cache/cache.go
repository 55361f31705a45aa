package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/city-infos/internal/cities"
)

const (
	// DefaultTTL is how long upstream snapshots stay cached.
	DefaultTTL = 5 * time.Minute

	connectTimeout = 3 * time.Second
)

// Connect parses redisURL, creates a client, and verifies connectivity with a ping
// bounded by a short timeout. The caller owns the returned client.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", opts.Addr, err)
	}

	return client, nil
}

// Redis wraps a Redis client and provides typed get/set/delete for city snapshots.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis constructs a Redis cache. A non-positive ttl falls back to DefaultTTL.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// key returns the Redis key for the given city. City ids are opaque, so no case folding.
func key(cityID string) string {
	return "cityinfos:snapshot:" + cityID
}

// Get retrieves a snapshot from cache.
// Returns nil, nil on a cache miss (not an error).
func (c *Redis) Get(ctx context.Context, cityID string) (*cities.Snapshot, error) {
	val, err := c.client.Get(ctx, key(cityID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get for city %s: %w", cityID, err)
	}

	var snap cities.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return nil, fmt.Errorf("unmarshaling cached snapshot for city %s: %w", cityID, err)
	}

	return &snap, nil
}

// Set stores a snapshot with the configured TTL.
func (c *Redis) Set(ctx context.Context, cityID string, snap *cities.Snapshot) error {
	if snap == nil {
		return nil
	}

	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot for city %s: %w", cityID, err)
	}

	if err := c.client.Set(ctx, key(cityID), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set for city %s: %w", cityID, err)
	}

	return nil
}

// Delete removes the cached entry for the given city.
func (c *Redis) Delete(ctx context.Context, cityID string) error {
	if err := c.client.Del(ctx, key(cityID)).Err(); err != nil {
		return fmt.Errorf("cache delete for city %s: %w", cityID, err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
