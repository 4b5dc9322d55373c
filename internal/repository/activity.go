package repository

import (
	"context"

	"github.com/ayushanand27/xhire/internal/domain"
)

// ActivityRepository is the append-only activity log.
type ActivityRepository interface {
	Append(ctx context.Context, rec *domain.ActivityRecord) error
	// ListByRoom pages a room's log, newest first. An empty eventType lists all.
	ListByRoom(ctx context.Context, roomID uint, eventType domain.ActivityType, page Page) ([]domain.ActivityRecord, int64, error)
	ListByUser(ctx context.Context, userID uint, page Page) ([]domain.ActivityRecord, int64, error)
	Stats(ctx context.Context, roomID uint) (*domain.ActivityStats, error)
}
