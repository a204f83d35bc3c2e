package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const checkCacheVersionKey = "rbac:version"

// CheckCache is a short lived read-through cache of permission answers.
// Keys embed a global version so one Bump invalidates every entry.
type CheckCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCheckCache instantiates the cache helper. A nil client disables caching.
func NewCheckCache(client *redis.Client, ttl time.Duration) *CheckCache {
	return &CheckCache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *CheckCache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, checkCacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, checkCacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, checkCacheVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Key composes the versioned cache key for a check.
func (c *CheckCache) Key(ctx context.Context, userID, permission string, resource *string) (string, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", strings.Join([]string{"rbac", "check", userID, KeyOf(permission, resource)}, ":"), ver), nil
}

// Fetch returns a cached answer or populates it using the loader. Loader
// errors are returned unchanged and never cached. Redis failures fall back to
// the loader.
func (c *CheckCache) Fetch(ctx context.Context, key string, loader func(context.Context) (bool, error)) (bool, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	raw, err := c.client.Get(ctx, key).Result()
	if err == nil {
		return raw == "1", nil
	}
	if !errors.Is(err, redis.Nil) {
		return loader(ctx)
	}
	granted, err := loader(ctx)
	if err != nil {
		return false, err
	}
	value := "0"
	if granted {
		value = "1"
	}
	_ = c.client.Set(ctx, key, value, c.ttl).Err()
	return granted, nil
}

// Bump invalidates every cached answer. Instances sharing the Redis database
// pick up the new version on their next Key call.
func (c *CheckCache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, checkCacheVersionKey).Err()
}
