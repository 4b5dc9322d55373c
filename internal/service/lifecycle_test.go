package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/repository/mocks"
	"github.com/ayushanand27/xhire/internal/service"
)

func TestLifecycle_SecondTabCloseIsNotALeave(t *testing.T) {
	f := newFixture()
	presence := new(mocks.PresenceRepository)
	lc := service.NewLifecycleService(presence, f.svc)

	presence.On("Attach", mock.Anything, uint(5), uint(2), "tab-1").Return(int64(1), nil).Once()
	presence.On("Attach", mock.Anything, uint(5), uint(2), "tab-2").Return(int64(2), nil).Once()
	presence.On("Detach", mock.Anything, uint(5), uint(2), "tab-2").Return(int64(1), nil).Once()

	_, err := lc.Connect(context.Background(), 5, 2, "tab-1")
	require.NoError(t, err)
	n, err := lc.Connect(context.Background(), 5, 2, "tab-2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	d, err := lc.Disconnect(context.Background(), 5, 2, "tab-2")
	require.NoError(t, err)
	assert.False(t, d.Departed)
	assert.Equal(t, int64(1), d.OpenConnections)
	f.rooms.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	presence.AssertExpectations(t)
}

func TestLifecycle_LastConnectionDeparts(t *testing.T) {
	f := newFixture()
	presence := new(mocks.PresenceRepository)
	lc := service.NewLifecycleService(presence, f.svc)

	presence.On("Detach", mock.Anything, uint(5), uint(1), "conn-1").Return(int64(0), nil).Once()
	f.rooms.On("FindByID", mock.Anything, uint(5)).Return(newRoom(5, 1), nil).Once()
	f.rooms.On("UpdateStatus", mock.Anything, uint(5), domain.RoomStatusInactive).Return(nil).Once()

	d, err := lc.Disconnect(context.Background(), 5, 1, "conn-1")

	require.NoError(t, err)
	assert.True(t, d.Departed)
	assert.True(t, d.Deactivated)
	f.assertExpectations(t)
}

func TestLifecycle_PresenceFailureCountsAsLastConnection(t *testing.T) {
	f := newFixture()
	presence := new(mocks.PresenceRepository)
	lc := service.NewLifecycleService(presence, f.svc)

	presence.On("Detach", mock.Anything, uint(5), uint(2), "conn-2").Return(int64(0), errors.New("redis down")).Once()
	f.rooms.On("FindByID", mock.Anything, uint(5)).Return(newRoom(5, 1, 2), nil).Once()
	f.rooms.On("RemoveParticipant", mock.Anything, uint(5), uint(2)).Return(true, nil).Once()
	f.users.On("FindByID", mock.Anything, uint(2)).Return(newUser(2, "bob"), nil).Once()
	f.video.On("RemoveMembers", mock.Anything, "room-5", []string{"ext-bob"}).Return(nil).Once()

	d, err := lc.Disconnect(context.Background(), 5, 2, "conn-2")

	require.NoError(t, err)
	assert.True(t, d.Removed)
	f.assertExpectations(t)
}

func TestLifecycle_HeartbeatFailureIsInternal(t *testing.T) {
	f := newFixture()
	presence := new(mocks.PresenceRepository)
	lc := service.NewLifecycleService(presence, f.svc)

	presence.On("Heartbeat", mock.Anything, uint(5), uint(2), "conn-2").Return(nil).Once()
	presence.On("Heartbeat", mock.Anything, uint(5), uint(2), "conn-3").Return(errors.New("redis down")).Once()

	require.NoError(t, lc.Heartbeat(context.Background(), 5, 2, "conn-2"))
	err := lc.Heartbeat(context.Background(), 5, 2, "conn-3")
	assert.ErrorIs(t, err, service.ErrInternalServer)
	presence.AssertExpectations(t)
}
