package redisstate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/ayushanand27/xhire/internal/repository"
)

// DefaultPresenceStaleAfter is how long a connection stays live without a heartbeat.
const DefaultPresenceStaleAfter = 3 * time.Minute

// RedisPresenceRepository implements repository.PresenceRepository as one sorted
// set per (room, user): member = connection id, score = last heartbeat in unix ms.
// Connections whose heartbeat is older than staleAfter do not count, so a process
// that dies without detaching cannot keep a user in a room.
type RedisPresenceRepository struct {
	client     *redis.Client
	keys       keys
	staleAfter time.Duration
	now        func() time.Time
}

type PresenceOption func(*RedisPresenceRepository)

// WithStaleAfter sets the heartbeat age after which a connection is dropped.
func WithStaleAfter(d time.Duration) PresenceOption {
	return func(r *RedisPresenceRepository) {
		if d > 0 {
			r.staleAfter = d
		}
	}
}

// WithClock replaces time.Now for heartbeat scores.
func WithClock(now func() time.Time) PresenceOption {
	return func(r *RedisPresenceRepository) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRedisPresenceRepository(client *redis.Client, keyPrefix string, opts ...PresenceOption) *RedisPresenceRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisPresenceRepository")
	}
	r := &RedisPresenceRepository{
		client:     client,
		keys:       newKeys(keyPrefix),
		staleAfter: DefaultPresenceStaleAfter,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ repository.PresenceRepository = (*RedisPresenceRepository)(nil)

// window returns the score for a heartbeat taken now and the newest score that
// already counts as stale.
func (r *RedisPresenceRepository) window() (float64, string) {
	now := r.now().UnixMilli()
	return float64(now), strconv.FormatInt(now-r.staleAfter.Milliseconds(), 10)
}

// keyTTL lets an abandoned key outlive its newest heartbeat by one stale window.
func (r *RedisPresenceRepository) keyTTL() time.Duration { return 2 * r.staleAfter }

func (r *RedisPresenceRepository) Attach(ctx context.Context, roomID, userID uint, connID string) (int64, error) {
	key := r.keys.presence(roomID, userID)
	score, stale := r.window()
	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, key, &redis.Z{Score: score, Member: connID})
	pipe.ZRemRangeByScore(ctx, key, "-inf", stale)
	count := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, r.keyTTL())
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis: attach connection %s for user %d in room %d: %w", connID, userID, roomID, err)
	}
	return count.Val(), nil
}

// Heartbeat refreshes a connection that is still attached. It never re-adds one
// that was already detached.
func (r *RedisPresenceRepository) Heartbeat(ctx context.Context, roomID, userID uint, connID string) error {
	key := r.keys.presence(roomID, userID)
	score, _ := r.window()
	pipe := r.client.TxPipeline()
	pipe.ZAddXX(ctx, key, &redis.Z{Score: score, Member: connID})
	pipe.Expire(ctx, key, r.keyTTL())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: heartbeat connection %s for user %d in room %d: %w", connID, userID, roomID, err)
	}
	return nil
}

// Detach removes the connection, prunes stale ones and returns how many live
// connections the user still has in the room.
func (r *RedisPresenceRepository) Detach(ctx context.Context, roomID, userID uint, connID string) (int64, error) {
	key := r.keys.presence(roomID, userID)
	_, stale := r.window()
	pipe := r.client.TxPipeline()
	pipe.ZRem(ctx, key, connID)
	pipe.ZRemRangeByScore(ctx, key, "-inf", stale)
	count := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis: detach connection %s for user %d in room %d: %w", connID, userID, roomID, err)
	}
	return count.Val(), nil
}

func (r *RedisPresenceRepository) Count(ctx context.Context, roomID, userID uint) (int64, error) {
	_, stale := r.window()
	n, err := r.client.ZCount(ctx, r.keys.presence(roomID, userID), "("+stale, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("redis: presence count for user %d in room %d: %w", userID, roomID, err)
	}
	return n, nil
}
