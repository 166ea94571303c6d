// Package redis wraps the Redis operations used for cross-process sync
// coordination.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps Redis operations for the reconciliation pipeline.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health checks if Redis is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

const syncLockKey = "holderwatch:sync:lock"

// SyncGuard is a cross-process single-flight guard for reconciliation runs,
// backed by a Redis lock with a TTL so a crashed run cannot wedge the system.
type SyncGuard struct {
	client *Client
	ttl    time.Duration
}

// NewSyncGuard creates a guard with the given lock TTL.
func NewSyncGuard(client *Client, ttl time.Duration) *SyncGuard {
	return &SyncGuard{client: client, ttl: ttl}
}

// TryAcquire attempts to take the sync lock. Returns false when another run
// holds it.
func (g *SyncGuard) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := g.client.rdb.SetNX(ctx, syncLockKey, "locked", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

// Release frees the sync lock.
func (g *SyncGuard) Release(ctx context.Context) error {
	return g.client.rdb.Del(ctx, syncLockKey).Err()
}
