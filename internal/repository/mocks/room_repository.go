package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/repository"
)

type RoomRepository struct {
	mock.Mock
}

func (m *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	return m.Called(ctx, room).Error(0)
}

func (m *RoomRepository) FindByID(ctx context.Context, id uint) (*domain.Room, error) {
	args := m.Called(ctx, id)
	room, _ := args.Get(0).(*domain.Room)
	return room, args.Error(1)
}

func (m *RoomRepository) List(ctx context.Context, filter repository.RoomFilter) ([]domain.Room, int64, error) {
	args := m.Called(ctx, filter)
	rooms, _ := args.Get(0).([]domain.Room)
	return rooms, args.Get(1).(int64), args.Error(2)
}

func (m *RoomRepository) Update(ctx context.Context, room *domain.Room) error {
	return m.Called(ctx, room).Error(0)
}

func (m *RoomRepository) UpdateSharedCode(ctx context.Context, roomID uint, code domain.SharedCode) error {
	return m.Called(ctx, roomID, code).Error(0)
}

func (m *RoomRepository) UpdateStatus(ctx context.Context, roomID uint, status domain.RoomStatus) error {
	return m.Called(ctx, roomID, status).Error(0)
}

func (m *RoomRepository) UpdateRecording(ctx context.Context, roomID uint, rec domain.Recording) error {
	return m.Called(ctx, roomID, rec).Error(0)
}

func (m *RoomRepository) Delete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *RoomRepository) AddParticipant(ctx context.Context, roomID, userID uint, role domain.Role, joinedAt time.Time) (*domain.Participant, bool, error) {
	args := m.Called(ctx, roomID, userID, role, joinedAt)
	p, _ := args.Get(0).(*domain.Participant)
	return p, args.Bool(1), args.Error(2)
}

func (m *RoomRepository) RemoveParticipant(ctx context.Context, roomID, userID uint) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *RoomRepository) UpdateParticipant(ctx context.Context, p *domain.Participant) error {
	return m.Called(ctx, p).Error(0)
}

func (m *RoomRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]domain.Room, error) {
	args := m.Called(ctx, now, limit)
	rooms, _ := args.Get(0).([]domain.Room)
	return rooms, args.Error(1)
}

func (m *RoomRepository) FindInactiveBefore(ctx context.Context, before time.Time, limit int) ([]domain.Room, error) {
	args := m.Called(ctx, before, limit)
	rooms, _ := args.Get(0).([]domain.Room)
	return rooms, args.Error(1)
}
