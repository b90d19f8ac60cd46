// Package cache provides the Redis access layer for auth lookups and
// rate limiting.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// clientName identifies service connections in CLIENT LIST.
const clientName = "taskshare-api"

// Options configures the shared Redis client. The same pool serves the
// auth cache, the rate limiter and the token-usage stream, so it is sized
// for one bearer lookup plus one limiter call per request.
type Options struct {
	URL          string
	PoolSize     int
	MinIdleConns int
}

// Cache wraps a Redis client.
type Cache struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, o Options) (*Cache, error) {
	opt, err := clientOptions(o)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Cache{client: client}, nil
}

func clientOptions(o Options) (*redis.Options, error) {
	opt, err := redis.ParseURL(o.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if o.PoolSize > 0 {
		opt.PoolSize = o.PoolSize
	}
	opt.MinIdleConns = o.MinIdleConns
	// Requests wait on the pool no longer than the API write timeout
	// leaves room for.
	opt.PoolTimeout = 2 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute
	if opt.ClientName == "" {
		opt.ClientName = clientName
	}
	return opt, nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Ping checks Redis connectivity for /readyz.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying client for the token-usage stream.
func (c *Cache) Client() *redis.Client {
	return c.client
}
