package redisstate_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushanand27/xhire/internal/dto"
	redisstate "github.com/ayushanand27/xhire/internal/infra/state/redis"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisPresenceRepository_CountsConnections(t *testing.T) {
	_, client := newTestClient(t)
	repo := redisstate.NewRedisPresenceRepository(client, "test:")
	ctx := context.Background()

	n, err := repo.Attach(ctx, 1, 42, "tab-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = repo.Attach(ctx, 1, 42, "tab-2")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	n, err = repo.Attach(ctx, 1, 42, "tab-2")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n, "re-attaching a connection does not count it twice")

	n, err = repo.Detach(ctx, 1, 42, "tab-2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = repo.Detach(ctx, 1, 42, "tab-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	n, err = repo.Detach(ctx, 1, 42, "tab-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "count never goes negative")

	n, err = repo.Count(ctx, 1, 42)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestRedisPresenceRepository_CrashedConnectionDoesNotBlockDeparture(t *testing.T) {
	mr, client := newTestClient(t)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := redisstate.NewRedisPresenceRepository(client, "test:",
		redisstate.WithStaleAfter(3*time.Minute),
		redisstate.WithClock(func() time.Time { return clock }))
	ctx := context.Background()
	advance := func(d time.Duration) {
		clock = clock.Add(d)
		mr.FastForward(d)
	}

	// The node holding this connection dies without detaching it.
	_, err := repo.Attach(ctx, 1, 42, "lost")
	require.NoError(t, err)

	// Another user keeps the room busy for three days.
	for i := 0; i < 6; i++ {
		_, err := repo.Attach(ctx, 1, 7, fmt.Sprintf("visit-%d", i))
		require.NoError(t, err)
		advance(12 * time.Hour)
	}

	n, err := repo.Attach(ctx, 1, 42, "again")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = repo.Detach(ctx, 1, 42, "again")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestRedisPresenceRepository_HeartbeatKeepsConnectionLive(t *testing.T) {
	mr, client := newTestClient(t)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := redisstate.NewRedisPresenceRepository(client, "test:",
		redisstate.WithStaleAfter(3*time.Minute),
		redisstate.WithClock(func() time.Time { return clock }))
	ctx := context.Background()
	advance := func(d time.Duration) {
		clock = clock.Add(d)
		mr.FastForward(d)
	}

	_, err := repo.Attach(ctx, 1, 42, "kept")
	require.NoError(t, err)
	_, err = repo.Attach(ctx, 1, 42, "silent")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		advance(time.Minute)
		require.NoError(t, repo.Heartbeat(ctx, 1, 42, "kept"))
	}

	n, err := repo.Count(ctx, 1, 42)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "only the connection that kept beating is live")

	n, err = repo.Detach(ctx, 1, 42, "kept")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	require.NoError(t, repo.Heartbeat(ctx, 1, 42, "kept"))
	n, err = repo.Count(ctx, 1, 42)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "a heartbeat after detach does not resurrect the connection")
}

func TestRedisRateLimiter_FixedWindow(t *testing.T) {
	mr, client := newTestClient(t)
	limiter := redisstate.NewRedisRateLimiter(client, "test:")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, _, err := limiter.Allow(ctx, "1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, count, err := limiter.Allow(ctx, "1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.EqualValues(t, 4, count)

	mr.FastForward(time.Minute + time.Second)
	ok, _, err = limiter.Allow(ctx, "1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisFanout_PublishSubscribe(t *testing.T) {
	_, client := newTestClient(t)
	fanout := redisstate.NewRedisFanout(client, "test:")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan dto.FanoutMessage, 1)
	done := make(chan error, 1)
	go func() {
		done <- fanout.Subscribe(ctx, func(m dto.FanoutMessage) {
			select {
			case received <- m:
			default:
			}
		})
	}()

	msg := dto.FanoutMessage{Node: "a", RoomID: 9, ExcludeConn: "c1", Data: []byte(`{"type":"x"}`)}
	require.Eventually(t, func() bool {
		_ = fanout.Publish(context.Background(), msg)
		select {
		case got := <-received:
			assert.Equal(t, msg.RoomID, got.RoomID)
			assert.Equal(t, "c1", got.ExcludeConn)
			assert.JSONEq(t, `{"type":"x"}`, string(got.Data))
			return true
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}
