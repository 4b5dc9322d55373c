package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/metrics"
)

// ProviderUser is the profile mirrored to the video/chat provider.
type ProviderUser struct {
	ID    string
	Name  string
	Image string
}

// VideoProvider manages the provider-side channel that backs each room's call and chat.
type VideoProvider interface {
	UpsertUser(ctx context.Context, user ProviderUser) error
	CreateChannel(ctx context.Context, channelID, creatorID string, data map[string]any) error
	DeleteChannel(ctx context.Context, channelID string) error
	AddMembers(ctx context.Context, channelID string, userIDs ...string) error
	RemoveMembers(ctx context.Context, channelID string, userIDs ...string) error
	CreateToken(userID string) (string, error)
}

// ExecutionRequest is one code run.
type ExecutionRequest struct {
	Language string
	Code     string
}

// ExecutionResult is the outcome of a code run. Output is never empty.
type ExecutionResult struct {
	Output   string
	Stderr   string
	ExitCode int
	Language string
	Version  string
	Duration time.Duration
}

// CodeExecutor runs untrusted code in a remote sandbox.
type CodeExecutor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}

// ActivityRecorder appends to the activity log, directly or through the task queue.
type ActivityRecorder interface {
	Record(ctx context.Context, rec *domain.ActivityRecord) error
}

// ChannelCleanupScheduler retries provider channel deletion out of band.
type ChannelCleanupScheduler interface {
	ScheduleChannelCleanup(ctx context.Context, channelID string) error
}

// ChannelID is the provider channel id of a room.
func ChannelID(roomID uint) string {
	return fmt.Sprintf("room-%d", roomID)
}

// callProvider bounds a provider call with timeout and records its outcome.
// Caller cancellation is ignored: only the timeout ends the call.
func callProvider(ctx context.Context, timeout time.Duration, provider, op string, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		logrus.WithFields(logrus.Fields{
			"provider":  provider,
			"operation": op,
			"elapsed":   time.Since(start),
		}).WithError(err).Warn("Provider call failed")
	}
	metrics.ProviderCalls.WithLabelValues(provider, op, outcome).Inc()
	return err
}
