package video_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushanand27/xhire/internal/infra/video"
	"github.com/ayushanand27/xhire/internal/service"
)

func TestNoopProvider(t *testing.T) {
	p := video.NoopProvider{}
	ctx := context.Background()

	assert.NoError(t, p.CreateChannel(ctx, service.ChannelID(1), "u1", nil))
	assert.NoError(t, p.AddMembers(ctx, service.ChannelID(1), "u2"))
	assert.NoError(t, p.RemoveMembers(ctx, service.ChannelID(1), "u2"))
	assert.NoError(t, p.DeleteChannel(ctx, service.ChannelID(1)))

	_, err := p.CreateToken("u1")
	assert.ErrorIs(t, err, service.ErrProviderUnavailable)
}

func TestNewStreamProvider(t *testing.T) {
	_, err := video.NewStreamProvider("", "")
	assert.Error(t, err)

	p, err := video.NewStreamProvider("key", "secret")
	require.NoError(t, err)

	token, err := p.CreateToken("user_1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}
