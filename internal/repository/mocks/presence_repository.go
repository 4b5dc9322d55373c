package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type PresenceRepository struct {
	mock.Mock
}

func (m *PresenceRepository) Attach(ctx context.Context, roomID, userID uint, connID string) (int64, error) {
	args := m.Called(ctx, roomID, userID, connID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *PresenceRepository) Heartbeat(ctx context.Context, roomID, userID uint, connID string) error {
	args := m.Called(ctx, roomID, userID, connID)
	return args.Error(0)
}

func (m *PresenceRepository) Detach(ctx context.Context, roomID, userID uint, connID string) (int64, error) {
	args := m.Called(ctx, roomID, userID, connID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *PresenceRepository) Count(ctx context.Context, roomID, userID uint) (int64, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Get(0).(int64), args.Error(1)
}
