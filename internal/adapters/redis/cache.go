// Package redis caches raw oracle responses.
package redis

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"
)

const keyPrefix = "deepscan:oracle:"

type Cache struct {
    Client *redis.Client
}

// Open accepts either a redis:// URL or a bare host:port and pings the server.
func Open(ctx context.Context, url string) (*Cache, error) {
    opts, err := redis.ParseURL(url)
    if err != nil {
        opts = &redis.Options{Addr: url}
    }
    client := redis.NewClient(opts)
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil, fmt.Errorf("redis ping: %w", err)
    }
    return &Cache{Client: client}, nil
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
    v, err := c.Client.Get(ctx, keyPrefix+key).Result()
    if errors.Is(err, redis.Nil) {
        return "", false, nil
    }
    if err != nil {
        return "", false, err
    }
    return v, true, nil
}

func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
    return c.Client.Set(ctx, keyPrefix+key, value, ttl).Err()
}

func (c *Cache) Close() error { return c.Client.Close() }
