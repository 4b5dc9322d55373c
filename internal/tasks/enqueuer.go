package tasks

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/ayushanand27/xhire/internal/domain"
)

// TaskEnqueuer is the part of *asynq.Client the enqueuer uses.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Recorder writes an activity record synchronously.
type Recorder interface {
	Record(ctx context.Context, rec *domain.ActivityRecord) error
}

// Enqueuer moves activity recording and provider cleanup off the request path.
type Enqueuer struct {
	client   TaskEnqueuer
	fallback Recorder
}

// NewEnqueuer builds an enqueuer. When enqueueing an activity record fails it is
// written through fallback instead, if one is given.
func NewEnqueuer(client TaskEnqueuer, fallback Recorder) *Enqueuer {
	if client == nil {
		panic("asynq client cannot be nil for Enqueuer")
	}
	return &Enqueuer{client: client, fallback: fallback}
}

// Record queues rec for the worker.
func (e *Enqueuer) Record(ctx context.Context, rec *domain.ActivityRecord) error {
	task, err := NewActivityRecordTask(*rec)
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		if e.fallback == nil {
			return fmt.Errorf("tasks: enqueue %s: %w", TypeActivityRecord, err)
		}
		logrus.WithField("room_id", rec.RoomID).WithError(err).Warn("Activity enqueue failed, recording inline")
		return e.fallback.Record(ctx, rec)
	}
	return nil
}

// ScheduleChannelCleanup queues a retried deletion of a provider channel.
func (e *Enqueuer) ScheduleChannelCleanup(ctx context.Context, channelID string) error {
	task, err := NewChannelCleanupTask(channelID)
	if err != nil {
		return err
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("tasks: enqueue %s: %w", TypeVideoChannelCleanup, err)
	}
	logrus.WithFields(logrus.Fields{"channel_id": channelID, "task_id": info.ID}).Info("Channel cleanup scheduled")
	return nil
}
