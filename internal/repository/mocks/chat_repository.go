package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/repository"
)

type ChatRepository struct {
	mock.Mock
}

func (m *ChatRepository) Create(ctx context.Context, msg *domain.ChatMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *ChatRepository) FindByID(ctx context.Context, id uint) (*domain.ChatMessage, error) {
	args := m.Called(ctx, id)
	msg, _ := args.Get(0).(*domain.ChatMessage)
	return msg, args.Error(1)
}

func (m *ChatRepository) ListByRoom(ctx context.Context, roomID uint, page repository.Page) ([]domain.ChatMessage, int64, error) {
	args := m.Called(ctx, roomID, page)
	msgs, _ := args.Get(0).([]domain.ChatMessage)
	return msgs, args.Get(1).(int64), args.Error(2)
}

func (m *ChatRepository) Search(ctx context.Context, roomID uint, query string, limit int) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, roomID, query, limit)
	msgs, _ := args.Get(0).([]domain.ChatMessage)
	return msgs, args.Error(1)
}

func (m *ChatRepository) UpdateText(ctx context.Context, msg *domain.ChatMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *ChatRepository) Delete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *ChatRepository) ToggleReaction(ctx context.Context, r *domain.Reaction) (bool, error) {
	args := m.Called(ctx, r)
	return args.Bool(0), args.Error(1)
}
