package repository

import (
	"context"

	"github.com/ayushanand27/xhire/internal/domain"
)

// ChatRepository stores room chat messages and their reactions.
type ChatRepository interface {
	Create(ctx context.Context, msg *domain.ChatMessage) error
	FindByID(ctx context.Context, id uint) (*domain.ChatMessage, error)
	// ListByRoom returns one page of messages, newest first, and the total count.
	ListByRoom(ctx context.Context, roomID uint, page Page) ([]domain.ChatMessage, int64, error)
	// Search returns up to limit newest messages whose text contains query.
	Search(ctx context.Context, roomID uint, query string, limit int) ([]domain.ChatMessage, error)
	// UpdateText writes message, is_edited and edited_at.
	UpdateText(ctx context.Context, msg *domain.ChatMessage) error
	Delete(ctx context.Context, id uint) error
	// ToggleReaction removes the reaction if the user already left that emoji,
	// otherwise adds it. added reports which happened.
	ToggleReaction(ctx context.Context, r *domain.Reaction) (added bool, err error)
}
