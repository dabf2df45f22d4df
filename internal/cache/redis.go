package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisBackend stores cache entries as JSON values under a key prefix.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend connects to redisURL and verifies the connection.
func NewRedisBackend(redisURL string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisBackendWithClient(client), nil
}

// NewRedisBackendWithClient creates a backend from an existing Redis client.
func NewRedisBackendWithClient(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client, prefix: "geocode:"}
}

func (b *RedisBackend) key(address string) string {
	return b.prefix + address
}

// FindGeocode returns the entry for address, or nil when the key does not exist.
func (b *RedisBackend) FindGeocode(ctx context.Context, address string) (*models.CacheEntry, error) {
	raw, err := b.client.Get(ctx, b.key(address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil //nolint:nilnil // a miss is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("get geocode entry: %w", err)
	}

	var entry models.CacheEntry
	if err = json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decode geocode entry: %w", err)
	}

	return &entry, nil
}

// InsertGeocode writes the entry with SETNX and no expiry; entries are permanent.
func (b *RedisBackend) InsertGeocode(ctx context.Context, entry models.CacheEntry) (bool, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return false, fmt.Errorf("encode geocode entry: %w", err)
	}

	inserted, err := b.client.SetNX(ctx, b.key(entry.Address), data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("set geocode entry: %w", err)
	}

	return inserted, nil
}

// Ping checks the Redis connection.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
