package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the distributed counterpart to Cache, for deployments
// running more than one ingest pod — grounded on wisbric-nightowl's
// pkg/alert.Deduplicator: a Redis client wrapping simple GET/SET with a
// fixed TTL, errors swallowed and treated as a miss rather than propagated,
// so a Redis outage degrades to "always recompute" instead of failing
// requests.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache wraps an existing client. prefix namespaces keys so the
// embedding and summary caches can share one Redis instance without
// collisions.
func NewRedisCache(client *redis.Client, ttl time.Duration, prefix string) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, prefix: prefix}
}

func (c *RedisCache) key(key string) string {
	return c.prefix + ":" + key
}

// Get returns the cached string for key. A Redis error (including
// redis.Nil on a genuine miss) is reported as a plain miss — RedisCache
// is always a best-effort accelerator over a recomputable value, never
// the source of truth.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, c.key(key)).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// Set stores value under key with the cache's configured TTL. Errors are
// swallowed for the same best-effort reason Get treats them as a miss.
func (c *RedisCache) Set(ctx context.Context, key, value string) {
	_ = c.client.Set(ctx, c.key(key), value, c.ttl).Err()
}

// Delete removes key unconditionally.
func (c *RedisCache) Delete(ctx context.Context, key string) {
	_ = c.client.Del(ctx, c.key(key)).Err()
}
