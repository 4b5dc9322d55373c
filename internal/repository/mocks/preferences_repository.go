package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ayushanand27/xhire/internal/domain"
)

type PreferencesRepository struct {
	mock.Mock
}

func (m *PreferencesRepository) FindByUserID(ctx context.Context, userID uint) (*domain.UserPreferences, error) {
	args := m.Called(ctx, userID)
	prefs, _ := args.Get(0).(*domain.UserPreferences)
	return prefs, args.Error(1)
}

// Upsert runs mutate against the preferences the expectation returns.
func (m *PreferencesRepository) Upsert(ctx context.Context, userID uint, mutate func(*domain.UserPreferences) error) (*domain.UserPreferences, error) {
	args := m.Called(ctx, userID)
	prefs, _ := args.Get(0).(*domain.UserPreferences)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if err := mutate(prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}
