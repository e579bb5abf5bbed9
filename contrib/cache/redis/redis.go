// Package redis caches finished ticket resolutions so identical tickets
// skip the full pipeline.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sweetpotato0/support-assistant/schema"
)

// Config holds Redis configuration for the resolution cache.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// Cache stores validated responses keyed by a hash of the normalized
// ticket text.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New creates a Redis-backed resolution cache.
func New(config *Config) *Cache {
	if config == nil {
		config = &Config{
			Addr:   "localhost:6379",
			Prefix: "support-assistant:resolution:",
			TTL:    time.Hour,
		}
	}
	if config.Prefix == "" {
		config.Prefix = "support-assistant:resolution:"
	}
	if config.TTL <= 0 {
		config.TTL = time.Hour
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &Cache{
		client: client,
		prefix: config.Prefix,
		ttl:    config.TTL,
	}
}

// Get returns the cached response for the ticket, or (nil, nil) on a miss.
func (c *Cache) Get(ctx context.Context, ticket string) (*schema.Response, error) {
	raw, err := c.client.Get(ctx, c.key(ticket)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load cached resolution: %w", err)
	}

	var resp schema.Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("decode cached resolution: %w", err)
	}
	return &resp, nil
}

// Put stores a response under the ticket's key for the configured TTL.
func (c *Cache) Put(ctx context.Context, ticket string, resp *schema.Response) error {
	if resp == nil {
		return fmt.Errorf("response cannot be nil")
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal resolution: %w", err)
	}
	if err := c.client.Set(ctx, c.key(ticket), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache resolution: %w", err)
	}
	return nil
}

// Ping checks if the Redis connection is alive.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) key(ticket string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(ticket)))
	return c.prefix + hex.EncodeToString(sum[:])
}
