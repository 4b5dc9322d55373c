package service

import (
	"context"
	"time"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/policy"
)

// ExecutionService runs room code on the execution provider.
type ExecutionService struct {
	executor CodeExecutor
	rooms    *RoomService
	activity ActivityRecorder
	timeout  time.Duration
}

func NewExecutionService(executor CodeExecutor, rooms *RoomService, activity ActivityRecorder, timeout time.Duration) *ExecutionService {
	if executor == nil {
		panic("CodeExecutor cannot be nil for ExecutionService")
	}
	if rooms == nil {
		panic("RoomService cannot be nil for ExecutionService")
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &ExecutionService{executor: executor, rooms: rooms, activity: activity, timeout: timeout}
}

type ExecuteInput struct {
	Code     string `json:"code" validate:"required,max=524288"`
	Language string `json:"language" validate:"required,notblank,max=32"`
}

// Execute runs the code for a participant holding the execute permission.
func (s *ExecutionService) Execute(ctx context.Context, userID, roomID uint, in ExecuteInput) (*ExecutionResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Actor: room.Participant(userID), Action: policy.ActionExecuteCode}); err != nil {
		return nil, err
	}

	var result *ExecutionResult
	err = callProvider(ctx, s.timeout, "piston", "execute", func(ctx context.Context) error {
		r, err := s.executor.Execute(ctx, ExecutionRequest{Language: in.Language, Code: in.Code})
		if err == nil && r == nil {
			err = ErrProviderUnavailable
		}
		result = r
		return err
	})

	status := "success"
	switch {
	case err != nil:
		status = "failed"
	case result.ExitCode != 0:
		status = "error"
	}
	meta := map[string]any{"language": in.Language, "status": status}
	if result != nil {
		meta["durationMs"] = result.Duration.Milliseconds()
	}
	recordActivity(ctx, s.activity, &domain.ActivityRecord{
		RoomID:      roomID,
		UserID:      userID,
		EventType:   domain.ActivityCodeExecuted,
		Description: "executed " + in.Language + " code",
		Metadata:    meta,
	})

	if err != nil {
		return nil, ErrProviderUnavailable
	}
	return result, nil
}
