package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/repository"
)

type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Append(ctx context.Context, rec *domain.ActivityRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *ActivityRepository) ListByRoom(ctx context.Context, roomID uint, eventType domain.ActivityType, page repository.Page) ([]domain.ActivityRecord, int64, error) {
	args := m.Called(ctx, roomID, eventType, page)
	recs, _ := args.Get(0).([]domain.ActivityRecord)
	return recs, args.Get(1).(int64), args.Error(2)
}

func (m *ActivityRepository) ListByUser(ctx context.Context, userID uint, page repository.Page) ([]domain.ActivityRecord, int64, error) {
	args := m.Called(ctx, userID, page)
	recs, _ := args.Get(0).([]domain.ActivityRecord)
	return recs, args.Get(1).(int64), args.Error(2)
}

func (m *ActivityRepository) Stats(ctx context.Context, roomID uint) (*domain.ActivityStats, error) {
	args := m.Called(ctx, roomID)
	stats, _ := args.Get(0).(*domain.ActivityStats)
	return stats, args.Error(1)
}
