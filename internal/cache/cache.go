// Package cache keeps recently used graphs in Redis, keyed by content ID.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/capsule/internal/graph"
)

// Config holds Redis connection and key settings.
type Config struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// Prefix is prepended to every graph ID
	Prefix string
	// TTL is how long an entry lives; zero keeps it until evicted
	TTL time.Duration
}

// ErrCacheMiss is returned when a graph is not cached.
type ErrCacheMiss struct {
	ID string
}

func (e ErrCacheMiss) Error() string {
	return fmt.Sprintf("cache miss: %s", e.ID)
}

// IsMiss reports whether err is a cache miss.
func IsMiss(err error) bool {
	var miss ErrCacheMiss
	return errors.As(err, &miss)
}

// Cache stores wire payloads in Redis.
type Cache struct {
	client *redis.Client
	config Config
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, config Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", config.Addr, err)
	}
	return NewWithClient(client, config), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, config Config) *Cache {
	return &Cache{client: client, config: config}
}

func (c *Cache) key(id string) string {
	return c.config.Prefix + id
}

// Get loads the graph cached under id.
func (c *Cache) Get(ctx context.Context, id string) (*graph.Graph, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss{ID: id}
		}
		return nil, err
	}

	g, err := graph.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("cached graph %s: %w", id, err)
	}
	return g, nil
}

// Put caches g under its content ID and returns that ID.
func (c *Cache) Put(ctx context.Context, g *graph.Graph) (string, error) {
	id, err := graph.ID(g)
	if err != nil {
		return "", err
	}
	data, err := graph.Marshal(g)
	if err != nil {
		return "", err
	}
	if err := c.client.Set(ctx, c.key(id), data, c.config.TTL).Err(); err != nil {
		return "", err
	}
	return id, nil
}

// Delete removes id from the cache. Deleting an absent entry is not an
// error.
func (c *Cache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.key(id)).Err()
}

// Exists checks whether id is cached.
func (c *Cache) Exists(ctx context.Context, id string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
