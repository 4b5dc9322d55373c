package worker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/service"
	"github.com/ayushanand27/xhire/internal/tasks"
)

type recorderFunc func(ctx context.Context, rec *domain.ActivityRecord) error

func (f recorderFunc) Record(ctx context.Context, rec *domain.ActivityRecord) error { return f(ctx, rec) }

func TestActivityRecordHandler(t *testing.T) {
	rec := domain.ActivityRecord{RoomID: 3, UserID: 4, EventType: domain.ActivityJoined}
	task, err := tasks.NewActivityRecordTask(rec)
	require.NoError(t, err)

	t.Run("records payload", func(t *testing.T) {
		var got domain.ActivityRecord
		h := NewActivityRecordHandler(recorderFunc(func(_ context.Context, r *domain.ActivityRecord) error {
			got = *r
			return nil
		}))
		require.NoError(t, h.ProcessTask(context.Background(), task))
		assert.Equal(t, uint(3), got.RoomID)
		assert.Equal(t, domain.ActivityJoined, got.EventType)
	})

	t.Run("invalid record is not retried", func(t *testing.T) {
		h := NewActivityRecordHandler(recorderFunc(func(context.Context, *domain.ActivityRecord) error {
			return service.ErrValidation
		}))
		err := h.ProcessTask(context.Background(), task)
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("store failure is retried", func(t *testing.T) {
		h := NewActivityRecordHandler(recorderFunc(func(context.Context, *domain.ActivityRecord) error {
			return errors.New("db down")
		}))
		err := h.ProcessTask(context.Background(), task)
		require.Error(t, err)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("garbage payload", func(t *testing.T) {
		h := NewActivityRecordHandler(recorderFunc(func(context.Context, *domain.ActivityRecord) error { return nil }))
		err := h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeActivityRecord, []byte("{")))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})
}

type fakeSweeper struct {
	mu        sync.Mutex
	expired   []uint
	stale     []uint
	retention time.Duration
	purged    []uint
	archived  []uint
	failOn    uint
}

func (s *fakeSweeper) ExpiredRoomIDs(context.Context, int) ([]uint, error) { return s.expired, nil }

func (s *fakeSweeper) StaleRoomIDs(_ context.Context, retention time.Duration, _ int) ([]uint, error) {
	s.retention = retention
	return s.stale, nil
}

func (s *fakeSweeper) PurgeRoom(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.failOn {
		return errors.New("boom")
	}
	s.purged = append(s.purged, id)
	return nil
}

func (s *fakeSweeper) ArchiveRoom(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archived = append(s.archived, id)
	return nil
}

func sorted(ids []uint) []uint {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func TestRoomSweepHandler_Expired(t *testing.T) {
	s := &fakeSweeper{expired: []uint{1, 2, 3, 4, 5}}
	h := NewRoomSweepHandler(s, SweepConfig{Parallelism: 2})

	require.NoError(t, h.ProcessExpired(context.Background(), tasks.NewRoomExpirySweepTask()))
	assert.Equal(t, []uint{1, 2, 3, 4, 5}, sorted(s.purged))
}

func TestRoomSweepHandler_ExpiredPartialFailure(t *testing.T) {
	s := &fakeSweeper{expired: []uint{1, 2, 3}, failOn: 2}
	h := NewRoomSweepHandler(s, SweepConfig{})

	err := h.ProcessExpired(context.Background(), tasks.NewRoomExpirySweepTask())

	require.Error(t, err)
	assert.Equal(t, []uint{1, 3}, sorted(s.purged))
}

func TestRoomSweepHandler_Inactive(t *testing.T) {
	s := &fakeSweeper{stale: []uint{9}}
	h := NewRoomSweepHandler(s, SweepConfig{Retention: 48 * time.Hour})

	require.NoError(t, h.ProcessInactive(context.Background(), tasks.NewRoomArchiveTask()))
	assert.Equal(t, []uint{9}, s.archived)
	assert.Equal(t, 48*time.Hour, s.retention)
}

func TestRoomSweepHandler_Empty(t *testing.T) {
	h := NewRoomSweepHandler(&fakeSweeper{}, SweepConfig{})
	assert.NoError(t, h.ProcessExpired(context.Background(), tasks.NewRoomExpirySweepTask()))
}

type deleterFunc func(ctx context.Context, channelID string) error

func (f deleterFunc) DeleteChannel(ctx context.Context, channelID string) error { return f(ctx, channelID) }

func TestChannelCleanupHandler(t *testing.T) {
	task, err := tasks.NewChannelCleanupTask("room-8")
	require.NoError(t, err)

	var deleted string
	h := NewChannelCleanupHandler(deleterFunc(func(_ context.Context, id string) error {
		deleted = id
		return nil
	}))
	require.NoError(t, h.ProcessTask(context.Background(), task))
	assert.Equal(t, "room-8", deleted)

	failing := NewChannelCleanupHandler(deleterFunc(func(context.Context, string) error { return errors.New("provider down") }))
	assert.Error(t, failing.ProcessTask(context.Background(), task))

	empty := asynq.NewTask(tasks.TypeVideoChannelCleanup, []byte(`{}`))
	assert.ErrorIs(t, h.ProcessTask(context.Background(), empty), asynq.SkipRetry)
}
