// Package cache is a JSON value cache with per-entry expiry backed by Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache reads and writes JSON-encoded values with a fixed TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// Options configures a Cache.
type Options struct {
	URL  string        // redis:// URL; takes precedence over Addr
	Addr string        // host:port
	TTL  time.Duration // expiry of every entry, default 300s
}

func New(opts Options) (*Cache, error) {
	var redisOpts *redis.Options
	if opts.URL != "" {
		parsed, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		redisOpts = parsed
	} else {
		redisOpts = &redis.Options{Addr: opts.Addr}
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &Cache{client: redis.NewClient(redisOpts), ttl: ttl}, nil
}

// Get decodes the value stored at key into dst. A missing key reports false
// and no error.
func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s from redis: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return true, nil
}

// Set overwrites key with the JSON encoding of value for the cache TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s to redis: %w", key, err)
	}
	return nil
}

func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
