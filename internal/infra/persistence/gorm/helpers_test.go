package gormpersistence_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/infra/setup"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := setup.InitDB(setup.DBConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, setup.MigrateDB(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newRoom(creatorID uint, max int) *domain.Room {
	cfg := domain.DefaultRoomConfig()
	cfg.MaxParticipants = max
	room := &domain.Room{
		Name:       "Backend interview",
		CreatorID:  creatorID,
		RoomType:   domain.RoomTypeInterview,
		Status:     domain.RoomStatusActive,
		Config:     cfg,
		SharedCode: domain.SharedCode{Language: domain.DefaultCodeLanguage},
	}
	room.SetTags([]string{"go"})
	room.AddParticipant(creatorID, domain.RoleCreator, time.Now())
	return room
}
