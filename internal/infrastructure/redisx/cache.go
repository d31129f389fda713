package redisx

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a thin pass-through over the Redis client: get, set-with-expiry,
// delete, exists. Values are opaque strings; the verification service owns
// their encoding.
type Cache struct {
	rdb *redis.Client
}

func NewCache(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Available always reports true; a Cache only exists when the resolver
// classified the Redis configuration as usable.
func (c *Cache) Available() bool { return true }

// Get returns the value for key. A missing key is not an error.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SetEx stores value under key with the given TTL, replacing any previous
// value.
func (c *Cache) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Del removes key and reports whether it existed. Redis DEL is atomic, so
// of two concurrent deletes exactly one sees true.
func (c *Cache) Del(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Exists reports whether key currently holds a value.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
