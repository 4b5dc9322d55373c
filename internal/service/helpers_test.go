package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/repository/mocks"
	"github.com/ayushanand27/xhire/internal/service"
)

type videoMock struct {
	mock.Mock
}

func (m *videoMock) UpsertUser(ctx context.Context, user service.ProviderUser) error {
	return m.Called(ctx, user).Error(0)
}

func (m *videoMock) CreateChannel(ctx context.Context, channelID, creatorID string, data map[string]any) error {
	return m.Called(ctx, channelID, creatorID, data).Error(0)
}

func (m *videoMock) DeleteChannel(ctx context.Context, channelID string) error {
	return m.Called(ctx, channelID).Error(0)
}

func (m *videoMock) AddMembers(ctx context.Context, channelID string, userIDs ...string) error {
	return m.Called(ctx, channelID, userIDs).Error(0)
}

func (m *videoMock) RemoveMembers(ctx context.Context, channelID string, userIDs ...string) error {
	return m.Called(ctx, channelID, userIDs).Error(0)
}

func (m *videoMock) CreateToken(userID string) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}

type cleanupMock struct {
	mock.Mock
}

func (m *cleanupMock) ScheduleChannelCleanup(ctx context.Context, channelID string) error {
	return m.Called(ctx, channelID).Error(0)
}

// recorderFake collects activity records.
type recorderFake struct {
	mu   sync.Mutex
	recs []domain.ActivityRecord
	err  error
}

func (r *recorderFake) Record(_ context.Context, rec *domain.ActivityRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, *rec)
	return r.err
}

func (r *recorderFake) types() []domain.ActivityType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ActivityType, 0, len(r.recs))
	for _, rec := range r.recs {
		out = append(out, rec.EventType)
	}
	return out
}

type fixture struct {
	rooms    *mocks.RoomRepository
	users    *mocks.UserRepository
	video    *videoMock
	cleanup  *cleanupMock
	recorder *recorderFake
	svc      *service.RoomService
}

func newFixture() *fixture {
	f := &fixture{
		rooms:    new(mocks.RoomRepository),
		users:    new(mocks.UserRepository),
		video:    new(videoMock),
		cleanup:  new(cleanupMock),
		recorder: &recorderFake{},
	}
	f.svc = service.NewRoomService(f.rooms, f.users, f.video, f.recorder, f.cleanup, service.RoomServiceConfig{
		ProviderTimeout: time.Second,
	})
	return f
}

func (f *fixture) assertExpectations(t mock.TestingT) {
	f.rooms.AssertExpectations(t)
	f.users.AssertExpectations(t)
	f.video.AssertExpectations(t)
	f.cleanup.AssertExpectations(t)
}

// newRoom builds an active room created by creatorID. Every other member joins as a viewer.
func newRoom(id, creatorID uint, others ...uint) *domain.Room {
	room := &domain.Room{
		ID:         id,
		Name:       "Backend interview",
		CreatorID:  creatorID,
		RoomType:   domain.RoomTypeInterview,
		Status:     domain.RoomStatusActive,
		Config:     domain.DefaultRoomConfig(),
		SharedCode: domain.SharedCode{Language: domain.DefaultCodeLanguage},
	}
	joined := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	room.AddParticipant(creatorID, domain.RoleCreator, joined)
	for i, uid := range others {
		room.AddParticipant(uid, domain.RoleViewer, joined.Add(time.Duration(i+1)*time.Minute))
	}
	for i := range room.Participants {
		room.Participants[i].ID = uint(i + 1)
	}
	return room
}

func newUser(id uint, name string) *domain.User {
	return &domain.User{ID: id, ExternalID: "ext-" + name, Name: name, Email: name + "@example.com"}
}
