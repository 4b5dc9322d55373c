package redisstate

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisRateLimiter is a fixed-window request counter shared by all processes.
type RedisRateLimiter struct {
	client *redis.Client
	keys   keys
}

func NewRedisRateLimiter(client *redis.Client, keyPrefix string) *RedisRateLimiter {
	if client == nil {
		panic("redis client cannot be nil for RedisRateLimiter")
	}
	return &RedisRateLimiter{client: client, keys: newKeys(keyPrefix)}
}

// Allow counts one request for scope and reports whether it is within limit.
// count is the number of requests seen in the current window.
func (r *RedisRateLimiter) Allow(ctx context.Context, scope string, limit int, window time.Duration) (allowed bool, count int64, err error) {
	key := r.keys.rateLimit(scope)
	count, err = r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("redis: rate limit incr for %s: %w", key, err)
	}
	// The first request of a window starts its clock.
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return false, 0, fmt.Errorf("redis: rate limit expire for %s: %w", key, err)
		}
	}
	return count <= int64(limit), count, nil
}
