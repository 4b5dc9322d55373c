package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ayushanand27/xhire/internal/service"
	"github.com/ayushanand27/xhire/internal/tasks"
)

// ActivityRecorder persists an activity entry taken off the queue.
type ActivityRecorder = service.ActivityRecorder

// RoomSweeper is the housekeeping surface of the room service.
type RoomSweeper interface {
	ExpiredRoomIDs(ctx context.Context, limit int) ([]uint, error)
	StaleRoomIDs(ctx context.Context, retention time.Duration, limit int) ([]uint, error)
	PurgeRoom(ctx context.Context, roomID uint) error
	ArchiveRoom(ctx context.Context, roomID uint) error
}

// ChannelDeleter removes a provider channel.
type ChannelDeleter interface {
	DeleteChannel(ctx context.Context, channelID string) error
}

func taskLogger(ctx context.Context, t *asynq.Task) *logrus.Entry {
	taskID, _ := asynq.GetTaskID(ctx)
	queue, _ := asynq.GetQueueName(ctx)
	retry, _ := asynq.GetRetryCount(ctx)
	return logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
		"queue":     queue,
		"retry":     retry,
	})
}

// ActivityRecordHandler writes queued activity records.
type ActivityRecordHandler struct {
	recorder ActivityRecorder
}

func NewActivityRecordHandler(recorder ActivityRecorder) *ActivityRecordHandler {
	if recorder == nil {
		panic("ActivityRecorder cannot be nil for ActivityRecordHandler")
	}
	return &ActivityRecordHandler{recorder: recorder}
}

func (h *ActivityRecordHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := taskLogger(ctx, t)

	var payload tasks.ActivityRecordPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	rec := payload.Record
	if err := h.recorder.Record(ctx, &rec); err != nil {
		if service.KindOf(err) == service.KindInvalidArgument {
			logCtx.WithError(err).Warn("Dropping invalid activity record")
			return fmt.Errorf("record activity: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("record activity for room %d: %w", rec.RoomID, err)
	}
	logCtx.WithFields(logrus.Fields{"room_id": rec.RoomID, "event_type": rec.EventType}).Debug("Activity recorded")
	return nil
}

// SweepConfig bounds one sweep run.
type SweepConfig struct {
	BatchSize   int
	Parallelism int
	// Retention is how long an inactive room is kept before it is archived.
	Retention time.Duration
}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.Parallelism <= 0 {
		c.Parallelism = 4
	}
	if c.Retention <= 0 {
		c.Retention = 30 * 24 * time.Hour
	}
	return c
}

// RoomSweepHandler purges expired rooms and archives long-inactive ones.
type RoomSweepHandler struct {
	rooms RoomSweeper
	cfg   SweepConfig
}

func NewRoomSweepHandler(rooms RoomSweeper, cfg SweepConfig) *RoomSweepHandler {
	if rooms == nil {
		panic("RoomSweeper cannot be nil for RoomSweepHandler")
	}
	return &RoomSweepHandler{rooms: rooms, cfg: cfg.withDefaults()}
}

// ProcessExpired handles room:expiry_sweep.
func (h *RoomSweepHandler) ProcessExpired(ctx context.Context, t *asynq.Task) error {
	ids, err := h.rooms.ExpiredRoomIDs(ctx, h.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("list expired rooms: %w", err)
	}
	return h.apply(ctx, t, ids, "purged", h.rooms.PurgeRoom)
}

// ProcessInactive handles room:archive_inactive.
func (h *RoomSweepHandler) ProcessInactive(ctx context.Context, t *asynq.Task) error {
	ids, err := h.rooms.StaleRoomIDs(ctx, h.cfg.Retention, h.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("list inactive rooms: %w", err)
	}
	return h.apply(ctx, t, ids, "archived", h.rooms.ArchiveRoom)
}

// apply runs fn over ids with bounded parallelism. A failing room does not stop
// the others; the first error is returned so asynq retries the sweep.
func (h *RoomSweepHandler) apply(ctx context.Context, t *asynq.Task, ids []uint, verb string, fn func(context.Context, uint) error) error {
	logCtx := taskLogger(ctx, t)
	if len(ids) == 0 {
		logCtx.Debug("Nothing to sweep")
		return nil
	}

	var g errgroup.Group
	g.SetLimit(h.cfg.Parallelism)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := fn(ctx, id); err != nil {
				logCtx.WithField("room_id", id).WithError(err).Error("Sweep failed for room")
				return fmt.Errorf("room %d: %w", id, err)
			}
			return nil
		})
	}
	err := g.Wait()
	logCtx.WithField("rooms", len(ids)).Infof("Room sweep %s batch", verb)
	return err
}

// ChannelCleanupHandler retries provider channel deletion.
type ChannelCleanupHandler struct {
	video ChannelDeleter
}

func NewChannelCleanupHandler(video ChannelDeleter) *ChannelCleanupHandler {
	if video == nil {
		panic("ChannelDeleter cannot be nil for ChannelCleanupHandler")
	}
	return &ChannelCleanupHandler{video: video}
}

func (h *ChannelCleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.ChannelCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.ChannelID == "" {
		return fmt.Errorf("invalid channel cleanup payload: %w", asynq.SkipRetry)
	}
	if err := h.video.DeleteChannel(ctx, payload.ChannelID); err != nil {
		return fmt.Errorf("delete channel %s: %w", payload.ChannelID, err)
	}
	taskLogger(ctx, t).WithField("channel_id", payload.ChannelID).Info("Provider channel deleted")
	return nil
}
