package gormpersistence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushanand27/xhire/internal/domain"
	gormpersistence "github.com/ayushanand27/xhire/internal/infra/persistence/gorm"
	"github.com/ayushanand27/xhire/internal/repository"
)

func TestGormPreferencesRepository_UpsertCreatesThenUpdates(t *testing.T) {
	repo := gormpersistence.NewGormPreferencesRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.FindByUserID(ctx, 7)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	var sawID uint = 99
	created, err := repo.Upsert(ctx, 7, func(p *domain.UserPreferences) error {
		sawID = p.ID
		p.AddFavorite(3)
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, sawID, "defaults reach mutate unsaved")
	require.NotZero(t, created.ID)

	off := false
	_, err = repo.Upsert(ctx, 7, func(p *domain.UserPreferences) error {
		assert.Equal(t, created.ID, p.ID)
		domain.PreferencesPatch{Room: &domain.RoomPreferencesPatch{AutoStartCamera: &off}}.Apply(p)
		p.Block(12)
		return nil
	})
	require.NoError(t, err)

	found, err := repo.FindByUserID(ctx, 7)
	require.NoError(t, err)
	assert.False(t, found.Room.AutoStartCamera)
	assert.Equal(t, "dark", found.Code.Theme)
	assert.True(t, found.Privacy.ShowOnlineStatus)
	assert.Equal(t, []uint{3}, found.FavoriteRoomIDs())
	assert.Equal(t, []uint{12}, found.BlockedUserIDs())
}

func TestGormPreferencesRepository_MutateErrorAbortsWrite(t *testing.T) {
	repo := gormpersistence.NewGormPreferencesRepository(newTestDB(t))
	ctx := context.Background()
	boom := errors.New("nothing to remove")

	_, err := repo.Upsert(ctx, 7, func(p *domain.UserPreferences) error { return boom })
	assert.ErrorIs(t, err, boom)

	_, err = repo.FindByUserID(ctx, 7)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
