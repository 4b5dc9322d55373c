package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/repository"
	"github.com/ayushanand27/xhire/internal/repository/mocks"
	"github.com/ayushanand27/xhire/internal/service"
)

type prefsEnv struct {
	*fixture
	prefs *mocks.PreferencesRepository
	svc   *service.PreferencesService
}

func newPrefsEnv() *prefsEnv {
	f := newFixture()
	prefs := new(mocks.PreferencesRepository)
	return &prefsEnv{fixture: f, prefs: prefs, svc: service.NewPreferencesService(prefs, f.rooms, f.users)}
}

func storedPrefs(userID uint) *domain.UserPreferences {
	p := domain.DefaultUserPreferences(userID)
	p.ID = 40
	return p
}

func TestPreferences_GetStoresDefaultsOnFirstRead(t *testing.T) {
	e := newPrefsEnv()
	e.prefs.On("FindByUserID", mock.Anything, uint(2)).Return(nil, repository.ErrNotFound).Once()
	e.prefs.On("Upsert", mock.Anything, uint(2)).Return(domain.DefaultUserPreferences(2), nil).Once()

	prefs, err := e.svc.Get(context.Background(), 2)

	require.NoError(t, err)
	assert.Equal(t, "grid", prefs.Room.DefaultLayout)
	assert.Equal(t, 14, prefs.Code.FontSize)
	assert.Empty(t, prefs.FavoriteRoomIDs())
	e.prefs.AssertExpectations(t)
}

func TestPreferences_UpdateMergesOnlyGivenFields(t *testing.T) {
	e := newPrefsEnv()
	stored := storedPrefs(2)
	e.prefs.On("Upsert", mock.Anything, uint(2)).Return(stored, nil).Once()
	theme, volume := "monokai", 0

	prefs, err := e.svc.Update(context.Background(), 2, domain.PreferencesPatch{
		Room: &domain.RoomPreferencesPatch{DefaultVolume: &volume},
		Code: &domain.CodePreferencesPatch{Theme: &theme},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, prefs.Room.DefaultVolume)
	assert.Equal(t, "monokai", prefs.Code.Theme)
	assert.Equal(t, 14, prefs.Code.FontSize, "untouched field keeps its value")
	assert.True(t, prefs.Room.AutoStartCamera)
}

func TestPreferences_UpdateRejectsOutOfRangeValues(t *testing.T) {
	e := newPrefsEnv()
	size, layout := 64, "mosaic"

	_, err := e.svc.Update(context.Background(), 2, domain.PreferencesPatch{Code: &domain.CodePreferencesPatch{FontSize: &size}})
	assert.ErrorIs(t, err, service.ErrValidation)
	_, err = e.svc.Update(context.Background(), 2, domain.PreferencesPatch{Room: &domain.RoomPreferencesPatch{DefaultLayout: &layout}})
	assert.ErrorIs(t, err, service.ErrValidation)

	e.prefs.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestPreferences_Favorites(t *testing.T) {
	e := newPrefsEnv()
	stored := storedPrefs(2)
	e.rooms.On("FindByID", mock.Anything, uint(5)).Return(newRoom(5, 1, 2), nil)
	e.rooms.On("FindByID", mock.Anything, uint(6)).Return(nil, repository.ErrNotFound)
	e.prefs.On("Upsert", mock.Anything, uint(2)).Return(stored, nil)
	e.prefs.On("FindByUserID", mock.Anything, uint(2)).Return(stored, nil)

	_, err := e.svc.AddFavorite(context.Background(), 2, 6)
	assert.ErrorIs(t, err, service.ErrRoomNotFound)

	for i := 0; i < 2; i++ {
		_, err = e.svc.AddFavorite(context.Background(), 2, 5)
		require.NoError(t, err)
	}
	assert.Equal(t, []uint{5}, stored.FavoriteRoomIDs(), "adding twice keeps one entry")

	// A favourite whose room was deleted later is skipped in the listing.
	stored.AddFavorite(6)
	rooms, err := e.svc.Favorites(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, service.FavoriteRoom{
		ID: 5, Name: "Backend interview", RoomType: domain.RoomTypeInterview,
		MaxParticipants: domain.DefaultMaxParticipants, ParticipantCount: 2,
	}, rooms[0])

	_, err = e.svc.RemoveFavorite(context.Background(), 2, 5)
	require.NoError(t, err)
	assert.Equal(t, []uint{6}, stored.FavoriteRoomIDs())
}

func TestPreferences_RemoveWithoutStoredPreferencesIsNotFound(t *testing.T) {
	e := newPrefsEnv()
	e.prefs.On("Upsert", mock.Anything, uint(2)).Return(domain.DefaultUserPreferences(2), nil)

	_, err := e.svc.RemoveFavorite(context.Background(), 2, 5)
	assert.ErrorIs(t, err, service.ErrPreferencesNotFound)
	_, err = e.svc.Unblock(context.Background(), 2, 3)
	assert.ErrorIs(t, err, service.ErrPreferencesNotFound)
	assert.Equal(t, service.KindNotFound, service.KindOf(err))
}

func TestPreferences_ListsAreEmptyBeforeFirstSave(t *testing.T) {
	e := newPrefsEnv()
	e.prefs.On("FindByUserID", mock.Anything, uint(2)).Return(nil, repository.ErrNotFound)

	rooms, err := e.svc.Favorites(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, rooms)
	users, err := e.svc.BlockedUsers(context.Background(), 2)
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestPreferences_Block(t *testing.T) {
	e := newPrefsEnv()
	stored := storedPrefs(2)
	e.users.On("FindByID", mock.Anything, uint(3)).Return(newUser(3, "carol"), nil)
	e.users.On("FindByID", mock.Anything, uint(9)).Return(nil, repository.ErrNotFound)
	e.prefs.On("Upsert", mock.Anything, uint(2)).Return(stored, nil)
	e.prefs.On("FindByUserID", mock.Anything, uint(2)).Return(stored, nil)

	_, err := e.svc.Block(context.Background(), 2, 2)
	assert.ErrorIs(t, err, service.ErrValidation)
	_, err = e.svc.Block(context.Background(), 2, 9)
	assert.ErrorIs(t, err, service.ErrUserNotFound)

	_, err = e.svc.Block(context.Background(), 2, 3)
	require.NoError(t, err)
	assert.True(t, stored.HasBlocked(3))

	users, err := e.svc.BlockedUsers(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []service.BlockedUser{{ID: 3, Name: "carol", Email: "carol@example.com"}}, users)

	_, err = e.svc.Unblock(context.Background(), 2, 3)
	require.NoError(t, err)
	assert.False(t, stored.HasBlocked(3))
}

func TestPreferences_RetriesLostFirstInsert(t *testing.T) {
	e := newPrefsEnv()
	e.prefs.On("Upsert", mock.Anything, uint(2)).Return(nil, repository.ErrDuplicateEntry).Once()
	e.prefs.On("Upsert", mock.Anything, uint(2)).Return(storedPrefs(2), nil).Once()

	on := true
	prefs, err := e.svc.Update(context.Background(), 2, domain.PreferencesPatch{
		Privacy: &domain.PrivacySettingsPatch{AllowAnalytics: &on},
	})
	require.NoError(t, err)
	assert.True(t, prefs.Privacy.AllowAnalytics)

	e.prefs.On("Upsert", mock.Anything, uint(3)).Return(nil, errors.New("db down")).Once()
	_, err = e.svc.Update(context.Background(), 3, domain.PreferencesPatch{})
	assert.ErrorIs(t, err, service.ErrInternalServer)
	e.prefs.AssertExpectations(t)
}
