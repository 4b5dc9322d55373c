package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ayushanand27/xhire/internal/domain"
)

// Models lists every persisted entity, in dependency order.
func Models() []any {
	return []any{
		&domain.User{},
		&domain.Room{},
		&domain.Participant{},
		&domain.ChatMessage{},
		&domain.Reaction{},
		&domain.ActivityRecord{},
		&domain.UserPreferences{},
	}
}

// MigrateDB creates or updates the schema for all models.
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		logrus.Errorf("Failed to auto-migrate tables: %v", err)
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}
	logrus.Info("Database migration completed successfully")
	return nil
}
