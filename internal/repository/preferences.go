package repository

import (
	"context"

	"github.com/ayushanand27/xhire/internal/domain"
)

// PreferencesRepository stores one UserPreferences row per user.
type PreferencesRepository interface {
	// FindByUserID returns ErrNotFound when the user never stored preferences.
	FindByUserID(ctx context.Context, userID uint) (*domain.UserPreferences, error)

	// Upsert loads the user's preferences, or the defaults when none are stored,
	// passes them to mutate and saves the result in one transaction. An error from
	// mutate aborts the write and is returned unchanged. Defaults reach mutate with
	// a zero ID.
	Upsert(ctx context.Context, userID uint, mutate func(*domain.UserPreferences) error) (*domain.UserPreferences, error)
}
