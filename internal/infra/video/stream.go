// Package video adapts the video/chat provider to service.VideoProvider.
package video

import (
	"context"
	"errors"
	"fmt"
	"time"

	stream "github.com/GetStream/stream-chat-go/v6"

	"github.com/ayushanand27/xhire/internal/service"
)

const (
	channelType = "messaging"
	tokenTTL    = 24 * time.Hour
)

// StreamProvider backs every room with a Stream channel of the same id.
type StreamProvider struct {
	client *stream.Client
}

// NewStreamProvider builds a provider from API credentials.
func NewStreamProvider(apiKey, apiSecret string) (*StreamProvider, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, errors.New("stream: api key and secret are required")
	}
	client, err := stream.NewClient(apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("stream: create client: %w", err)
	}
	return &StreamProvider{client: client}, nil
}

var _ service.VideoProvider = (*StreamProvider)(nil)

func (p *StreamProvider) UpsertUser(ctx context.Context, user service.ProviderUser) error {
	_, err := p.client.UpsertUser(ctx, &stream.User{ID: user.ID, Name: user.Name, Image: user.Image})
	if err != nil {
		return fmt.Errorf("stream: upsert user %s: %w", user.ID, err)
	}
	return nil
}

func (p *StreamProvider) CreateChannel(ctx context.Context, channelID, creatorID string, data map[string]any) error {
	_, err := p.client.CreateChannel(ctx, channelType, channelID, creatorID, &stream.ChannelRequest{
		Members:   []string{creatorID},
		ExtraData: data,
	})
	if err != nil {
		return fmt.Errorf("stream: create channel %s: %w", channelID, err)
	}
	return nil
}

func (p *StreamProvider) DeleteChannel(ctx context.Context, channelID string) error {
	if _, err := p.client.Channel(channelType, channelID).Delete(ctx); err != nil {
		return fmt.Errorf("stream: delete channel %s: %w", channelID, err)
	}
	return nil
}

func (p *StreamProvider) AddMembers(ctx context.Context, channelID string, userIDs ...string) error {
	if _, err := p.client.Channel(channelType, channelID).AddMembers(ctx, userIDs); err != nil {
		return fmt.Errorf("stream: add members to %s: %w", channelID, err)
	}
	return nil
}

func (p *StreamProvider) RemoveMembers(ctx context.Context, channelID string, userIDs ...string) error {
	if _, err := p.client.Channel(channelType, channelID).RemoveMembers(ctx, userIDs, nil); err != nil {
		return fmt.Errorf("stream: remove members from %s: %w", channelID, err)
	}
	return nil
}

func (p *StreamProvider) CreateToken(userID string) (string, error) {
	token, err := p.client.CreateToken(userID, time.Now().Add(tokenTTL))
	if err != nil {
		return "", fmt.Errorf("stream: create token for %s: %w", userID, err)
	}
	return token, nil
}
