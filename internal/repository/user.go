package repository

import (
	"context"

	"github.com/ayushanand27/xhire/internal/domain"
)

// UserRepository stores locally provisioned users.
type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.User, error)

	// FindByExternalID looks a user up by identity-provider subject.
	// Returns ErrUserNotFound if no user has been provisioned for it.
	FindByExternalID(ctx context.Context, externalID string) (*domain.User, error)

	// Save inserts or updates. Inserting a second user with the same external id
	// returns ErrDuplicateEntry.
	Save(ctx context.Context, user *domain.User) error
}
