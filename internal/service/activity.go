package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/policy"
	"github.com/ayushanand27/xhire/internal/repository"
)

// ActivityService reads and appends the per-room activity log.
type ActivityService struct {
	repo     repository.ActivityRepository
	userRepo repository.UserRepository
	rooms    *RoomService
}

func NewActivityService(repo repository.ActivityRepository, userRepo repository.UserRepository, rooms *RoomService) *ActivityService {
	if repo == nil {
		panic("ActivityRepository cannot be nil for ActivityService")
	}
	if userRepo == nil {
		panic("UserRepository cannot be nil for ActivityService")
	}
	return &ActivityService{repo: repo, userRepo: userRepo, rooms: rooms}
}

var _ ActivityRecorder = (*ActivityService)(nil)

// Record appends rec, filling the user name when the caller did not know it.
func (s *ActivityService) Record(ctx context.Context, rec *domain.ActivityRecord) error {
	if !rec.EventType.Valid() {
		return invalid("eventType: activity_type")
	}
	if rec.UserName == "" && rec.UserID != 0 {
		if u, err := s.userRepo.FindByID(ctx, rec.UserID); err == nil {
			rec.UserName = u.DisplayName()
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}
	return s.repo.Append(ctx, rec)
}

// LogActivityInput is a client-submitted activity entry.
type LogActivityInput struct {
	EventType   domain.ActivityType `json:"eventType" validate:"required,activity_type"`
	Description string              `json:"description" validate:"max=512"`
	Metadata    map[string]any      `json:"metadata"`
}

// Log appends a client-reported activity for a participant of the room.
func (s *ActivityService) Log(ctx context.Context, user *domain.User, roomID uint, in LogActivityInput) (*domain.ActivityRecord, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if _, err := s.rooms.RequireMember(ctx, roomID, user.ID); err != nil {
		return nil, err
	}
	rec := &domain.ActivityRecord{
		RoomID:      roomID,
		UserID:      user.ID,
		UserName:    user.DisplayName(),
		EventType:   in.EventType,
		Description: in.Description,
		Metadata:    in.Metadata,
		IPAddress:   clientIPFrom(ctx),
	}
	if err := s.repo.Append(ctx, rec); err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to append activity")
		return nil, ErrInternalServer
	}
	return rec, nil
}

func (s *ActivityService) RoomFeed(ctx context.Context, userID, roomID uint, eventType domain.ActivityType, page repository.Page) ([]domain.ActivityRecord, int64, error) {
	if eventType != "" && !eventType.Valid() {
		return nil, 0, invalid("eventType: activity_type")
	}
	if _, err := s.rooms.RequireMember(ctx, roomID, userID); err != nil {
		return nil, 0, err
	}
	records, total, err := s.repo.ListByRoom(ctx, roomID, eventType, page.Normalize())
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to list room activity")
		return nil, 0, ErrInternalServer
	}
	return records, total, nil
}

// UserFeed lists a user's own activity across rooms. Nobody can read another user's feed.
func (s *ActivityService) UserFeed(ctx context.Context, requesterID, userID uint, page repository.Page) ([]domain.ActivityRecord, int64, error) {
	if requesterID != userID {
		return nil, 0, denied(policy.Action("read-activity"), "You can only view your own activity")
	}
	records, total, err := s.repo.ListByUser(ctx, userID, page.Normalize())
	if err != nil {
		logrus.WithField("user_id", userID).WithError(err).Error("Failed to list user activity")
		return nil, 0, ErrInternalServer
	}
	return records, total, nil
}

func (s *ActivityService) Stats(ctx context.Context, userID, roomID uint) (*domain.ActivityStats, error) {
	if _, err := s.rooms.RequireMember(ctx, roomID, userID); err != nil {
		return nil, err
	}
	stats, err := s.repo.Stats(ctx, roomID)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to compute activity stats")
		return nil, ErrInternalServer
	}
	return stats, nil
}

// recordActivity hands rec to the recorder. The log is best effort: a failure is
// logged and never fails the operation that produced it.
func recordActivity(ctx context.Context, recorder ActivityRecorder, rec *domain.ActivityRecord) {
	if recorder == nil {
		return
	}
	if rec.IPAddress == "" {
		rec.IPAddress = clientIPFrom(ctx)
	}
	if err := recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		logrus.WithFields(logrus.Fields{
			"room_id": rec.RoomID,
			"user_id": rec.UserID,
			"event":   rec.EventType,
		}).WithError(err).Warn("Failed to record activity")
	}
}
