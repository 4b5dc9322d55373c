package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/repository"
)

// GormPreferencesRepository implements repository.PreferencesRepository.
type GormPreferencesRepository struct {
	db *gorm.DB
}

func NewGormPreferencesRepository(db *gorm.DB) *GormPreferencesRepository {
	if db == nil {
		panic("database connection cannot be nil for GormPreferencesRepository")
	}
	return &GormPreferencesRepository{db: db}
}

var _ repository.PreferencesRepository = (*GormPreferencesRepository)(nil)

func (r *GormPreferencesRepository) FindByUserID(ctx context.Context, userID uint) (*domain.UserPreferences, error) {
	var prefs domain.UserPreferences
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&prefs).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find preferences of user %d: %w", userID, err)
	}
	return &prefs, nil
}

func (r *GormPreferencesRepository) Upsert(ctx context.Context, userID uint, mutate func(*domain.UserPreferences) error) (*domain.UserPreferences, error) {
	var saved *domain.UserPreferences
	var mutateErr error
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prefs domain.UserPreferences
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&prefs).Error
		current := &prefs
		if errors.Is(err, gorm.ErrRecordNotFound) {
			current = domain.DefaultUserPreferences(userID)
		} else if err != nil {
			return err
		}
		if mutateErr = mutate(current); mutateErr != nil {
			return mutateErr
		}
		if err := tx.Save(current).Error; err != nil {
			return err
		}
		saved = current
		return nil
	})
	if mutateErr != nil {
		return nil, mutateErr
	}
	if err != nil {
		// Two first-time writes for the same user race on the unique index.
		if isDuplicateEntryError(err) {
			return nil, repository.ErrDuplicateEntry
		}
		return nil, fmt.Errorf("gorm: save preferences of user %d: %w", userID, err)
	}
	return saved, nil
}
