package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushanand27/xhire/internal/domain"
)

type fakeClient struct {
	tasks []*asynq.Task
	err   error
}

func (c *fakeClient) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.tasks = append(c.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type()}, nil
}

type fakeRecorder struct {
	recs []domain.ActivityRecord
}

func (r *fakeRecorder) Record(_ context.Context, rec *domain.ActivityRecord) error {
	r.recs = append(r.recs, *rec)
	return nil
}

func TestEnqueuer_Record(t *testing.T) {
	client := &fakeClient{}
	e := NewEnqueuer(client, nil)
	rec := &domain.ActivityRecord{RoomID: 5, UserID: 2, EventType: domain.ActivityJoined, Description: "joined the room"}

	require.NoError(t, e.Record(context.Background(), rec))

	require.Len(t, client.tasks, 1)
	assert.Equal(t, TypeActivityRecord, client.tasks[0].Type())
	var payload ActivityRecordPayload
	require.NoError(t, json.Unmarshal(client.tasks[0].Payload(), &payload))
	assert.Equal(t, uint(5), payload.Record.RoomID)
	assert.Equal(t, domain.ActivityJoined, payload.Record.EventType)
}

func TestEnqueuer_RecordFallsBackInline(t *testing.T) {
	fallback := &fakeRecorder{}
	e := NewEnqueuer(&fakeClient{err: errors.New("redis down")}, fallback)

	err := e.Record(context.Background(), &domain.ActivityRecord{RoomID: 5, EventType: domain.ActivityLeft})

	require.NoError(t, err)
	require.Len(t, fallback.recs, 1)
	assert.Equal(t, domain.ActivityLeft, fallback.recs[0].EventType)
}

func TestEnqueuer_RecordWithoutFallbackFails(t *testing.T) {
	e := NewEnqueuer(&fakeClient{err: errors.New("redis down")}, nil)

	assert.Error(t, e.Record(context.Background(), &domain.ActivityRecord{RoomID: 5}))
}

func TestEnqueuer_ScheduleChannelCleanup(t *testing.T) {
	client := &fakeClient{}
	e := NewEnqueuer(client, nil)

	require.NoError(t, e.ScheduleChannelCleanup(context.Background(), "room-7"))

	require.Len(t, client.tasks, 1)
	assert.Equal(t, TypeVideoChannelCleanup, client.tasks[0].Type())
	assert.JSONEq(t, `{"channelId":"room-7"}`, string(client.tasks[0].Payload()))
}
