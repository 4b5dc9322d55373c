// Package tasks defines the background task types and enqueues them on asynq.
package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/ayushanand27/xhire/internal/domain"
)

const (
	TypeActivityRecord      = "activity:record"
	TypeRoomExpirySweep     = "room:expiry_sweep"
	TypeRoomArchiveInactive = "room:archive_inactive"
	TypeVideoChannelCleanup = "video:channel_cleanup"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// ActivityRecordPayload carries one activity log entry to the worker.
type ActivityRecordPayload struct {
	Record domain.ActivityRecord `json:"record"`
}

// ChannelCleanupPayload names a provider channel whose deletion must be retried.
type ChannelCleanupPayload struct {
	ChannelID string `json:"channelId"`
}

func NewActivityRecordTask(rec domain.ActivityRecord) (*asynq.Task, error) {
	payload, err := json.Marshal(ActivityRecordPayload{Record: rec})
	if err != nil {
		return nil, fmt.Errorf("tasks: marshal activity record: %w", err)
	}
	return asynq.NewTask(TypeActivityRecord, payload, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

func NewChannelCleanupTask(channelID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ChannelCleanupPayload{ChannelID: channelID})
	if err != nil {
		return nil, fmt.Errorf("tasks: marshal channel cleanup: %w", err)
	}
	return asynq.NewTask(TypeVideoChannelCleanup, payload, asynq.Queue(QueueLow), asynq.MaxRetry(10)), nil
}

// NewRoomExpirySweepTask and NewRoomArchiveTask carry no payload; the worker
// finds its own batch.
func NewRoomExpirySweepTask() *asynq.Task {
	return asynq.NewTask(TypeRoomExpirySweep, nil, asynq.Queue(QueueLow), asynq.MaxRetry(1))
}

func NewRoomArchiveTask() *asynq.Task {
	return asynq.NewTask(TypeRoomArchiveInactive, nil, asynq.Queue(QueueLow), asynq.MaxRetry(1))
}
