package video

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ayushanand27/xhire/internal/service"
)

// NoopProvider stands in when no provider credentials are configured. Channel
// operations succeed without effect; tokens cannot be issued.
type NoopProvider struct{}

var _ service.VideoProvider = NoopProvider{}

func (NoopProvider) UpsertUser(context.Context, service.ProviderUser) error { return nil }

func (NoopProvider) CreateChannel(_ context.Context, channelID, _ string, _ map[string]any) error {
	logrus.WithField("channel_id", channelID).Debug("Video provider disabled; skipping channel creation")
	return nil
}

func (NoopProvider) DeleteChannel(context.Context, string) error { return nil }

func (NoopProvider) AddMembers(context.Context, string, ...string) error { return nil }

func (NoopProvider) RemoveMembers(context.Context, string, ...string) error { return nil }

func (NoopProvider) CreateToken(string) (string, error) {
	return "", fmt.Errorf("%w: video provider is not configured", service.ErrProviderUnavailable)
}
