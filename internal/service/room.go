package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/policy"
	"github.com/ayushanand27/xhire/internal/repository"
)

const videoProviderName = "stream"

// RoomServiceConfig tunes RoomService.
type RoomServiceConfig struct {
	// ProviderTimeout bounds each call to the video provider.
	ProviderTimeout time.Duration
	// DefaultMaxParticipants applies when a new room does not set its own capacity.
	DefaultMaxParticipants int
}

// RoomService owns rooms and their rosters. It is the single entry point for
// every room mutation, whether it comes from REST or from a realtime event.
type RoomService struct {
	roomRepo repository.RoomRepository
	userRepo repository.UserRepository
	video    VideoProvider
	activity ActivityRecorder
	cleanup  ChannelCleanupScheduler
	cfg      RoomServiceConfig

	loads singleflight.Group
	now   func() time.Time
}

// NewRoomService wires a RoomService. activity and cleanup may be nil.
func NewRoomService(
	roomRepo repository.RoomRepository,
	userRepo repository.UserRepository,
	video VideoProvider,
	activity ActivityRecorder,
	cleanup ChannelCleanupScheduler,
	cfg RoomServiceConfig,
) *RoomService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	if userRepo == nil {
		panic("UserRepository cannot be nil for RoomService")
	}
	if video == nil {
		panic("VideoProvider cannot be nil for RoomService")
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 10 * time.Second
	}
	if cfg.DefaultMaxParticipants <= 0 {
		cfg.DefaultMaxParticipants = domain.DefaultMaxParticipants
	}
	return &RoomService{
		roomRepo: roomRepo,
		userRepo: userRepo,
		video:    video,
		activity: activity,
		cleanup:  cleanup,
		cfg:      cfg,
		now:      time.Now,
	}
}

// CreateRoomInput is the body of a room creation request.
type CreateRoomInput struct {
	Name        string                  `json:"name" validate:"required,notblank,max=191"`
	Description string                  `json:"description" validate:"max=2000"`
	RoomType    domain.RoomType         `json:"roomType" validate:"omitempty,room_type"`
	IsPublic    bool                    `json:"isPublic"`
	Password    string                  `json:"password" validate:"omitempty,min=4,max=72"`
	Tags        []string                `json:"tags" validate:"max=20,dive,notblank,max=32"`
	Config      *domain.RoomConfigPatch `json:"roomConfig"`
	ExpiresAt   *time.Time              `json:"expiresAt"`
}

// UpdateRoomInput is a partial room update. Password "" removes the lock.
type UpdateRoomInput struct {
	Name        *string                 `json:"name" validate:"omitempty,notblank,max=191"`
	Description *string                 `json:"description" validate:"omitempty,max=2000"`
	RoomType    *domain.RoomType        `json:"roomType" validate:"omitempty,room_type"`
	IsPublic    *bool                   `json:"isPublic"`
	Password    *string                 `json:"password" validate:"omitempty,max=72"`
	Tags        []string                `json:"tags" validate:"omitempty,max=20,dive,notblank,max=32"`
	Config      *domain.RoomConfigPatch `json:"roomConfig"`
	ExpiresAt   *time.Time              `json:"expiresAt"`
}

// ListRoomsInput filters a room listing.
type ListRoomsInput struct {
	Search   string            `form:"search" json:"search" validate:"max=100"`
	RoomType domain.RoomType   `form:"roomType" json:"roomType" validate:"omitempty,room_type"`
	IsPublic *bool             `form:"isPublic" json:"isPublic"`
	Status   domain.RoomStatus `form:"status" json:"status" validate:"omitempty,oneof=active inactive archived"`
	Page     int               `form:"page" json:"page" validate:"gte=0"`
	Limit    int               `form:"limit" json:"limit" validate:"gte=0,lte=100"`
}

// Departure reports what happened when a user left a room.
type Departure struct {
	// Departed is false when the user still has open connections or was not in the room.
	Departed bool
	// Deactivated is set when the creator left an otherwise empty room.
	Deactivated bool
	// Removed is set when the participant row was deleted.
	Removed bool
	// OpenConnections counts the user's connections still attached to the room.
	OpenConnections int64
}

// StreamCredentials lets a participant join the room's provider channel.
type StreamCredentials struct {
	Token     string `json:"token"`
	UserID    string `json:"userId"`
	ChannelID string `json:"channelId"`
}

func (s *RoomService) CreateRoom(ctx context.Context, creator *domain.User, in CreateRoomInput) (*domain.Room, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	now := s.now()
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return nil, invalid("expiresAt: must be in the future")
	}
	logCtx := logrus.WithField("creator_id", creator.ID)

	room := &domain.Room{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		CreatorID:   creator.ID,
		RoomType:    in.RoomType,
		IsPublic:    in.IsPublic,
		Status:      domain.RoomStatusActive,
		Config:      domain.DefaultRoomConfig(),
		SharedCode:  domain.SharedCode{Language: domain.DefaultCodeLanguage},
		ExpiresAt:   in.ExpiresAt,
	}
	if room.RoomType == "" {
		room.RoomType = domain.RoomTypeGeneral
	}
	room.Config.MaxParticipants = s.cfg.DefaultMaxParticipants
	if in.Config != nil {
		in.Config.Apply(&room.Config)
	}
	room.SetTags(in.Tags)
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			logCtx.WithError(err).Error("Failed to hash room password")
			return nil, ErrInternalServer
		}
		h := string(hash)
		room.PasswordHash = &h
	}
	room.AddParticipant(creator.ID, domain.RoleCreator, now)

	if err := s.roomRepo.Create(ctx, room); err != nil {
		logCtx.WithError(err).Error("Failed to save new room")
		return nil, ErrInternalServer
	}
	logCtx = logCtx.WithField("room_id", room.ID)

	channelID := ChannelID(room.ID)
	err := callProvider(ctx, s.cfg.ProviderTimeout, videoProviderName, "create_channel", func(ctx context.Context) error {
		if err := s.video.UpsertUser(ctx, providerUser(creator)); err != nil {
			return err
		}
		return s.video.CreateChannel(ctx, channelID, creator.ProviderID(), map[string]any{
			"name":            room.Name,
			"roomType":        string(room.RoomType),
			"maxParticipants": room.Config.MaxParticipants,
		})
	})
	if err != nil {
		s.compensateCreate(ctx, room.ID, logCtx)
		return nil, ErrProviderUnavailable
	}

	s.record(ctx, room.ID, creator.ID, domain.ActivityJoined, "created the room", nil)
	logCtx.Info("Room created")
	return room, nil
}

// compensateCreate undoes a half-provisioned room.
func (s *RoomService) compensateCreate(ctx context.Context, roomID uint, logCtx *logrus.Entry) {
	if err := s.roomRepo.Delete(context.WithoutCancel(ctx), roomID); err != nil {
		logCtx.WithError(err).Error("Failed to roll back room after provider failure")
	}
	s.deleteChannel(ctx, roomID)
}

func (s *RoomService) deleteChannel(ctx context.Context, roomID uint) {
	channelID := ChannelID(roomID)
	err := callProvider(ctx, s.cfg.ProviderTimeout, videoProviderName, "delete_channel", func(ctx context.Context) error {
		return s.video.DeleteChannel(ctx, channelID)
	})
	if err == nil || s.cleanup == nil {
		return
	}
	if err := s.cleanup.ScheduleChannelCleanup(context.WithoutCancel(ctx), channelID); err != nil {
		logrus.WithField("channel_id", channelID).WithError(err).Error("Failed to schedule channel cleanup")
	}
}

func (s *RoomService) ListRooms(ctx context.Context, userID uint, in ListRoomsInput) ([]domain.Room, int64, repository.Page, error) {
	if err := validateInput(in); err != nil {
		return nil, 0, repository.Page{}, err
	}
	status := in.Status
	if status == "" {
		status = domain.RoomStatusActive
	}
	page := repository.Page{Page: in.Page, Limit: in.Limit}.Normalize()
	rooms, total, err := s.roomRepo.List(ctx, repository.RoomFilter{
		Search:    strings.TrimSpace(in.Search),
		RoomType:  in.RoomType,
		IsPublic:  in.IsPublic,
		VisibleTo: userID,
		Status:    status,
		Page:      page,
	})
	if err != nil {
		logrus.WithField("user_id", userID).WithError(err).Error("Failed to list rooms")
		return nil, 0, page, ErrInternalServer
	}
	return rooms, total, page, nil
}

// GetRoom returns a private copy of the room. Concurrent loads of the same room share
// one query, which is detached from the cancellation of whichever caller started it.
func (s *RoomService) GetRoom(ctx context.Context, roomID uint) (*domain.Room, error) {
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.loads.Do(strconv.FormatUint(uint64(roomID), 10), func() (any, error) {
		return s.loadRoom(shared, roomID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Room).Clone(), nil
}

// loadRoom reads the current stored state. Mutations use it instead of GetRoom so
// they never act on a load that started before a preceding write.
func (s *RoomService) loadRoom(ctx context.Context, roomID uint) (*domain.Room, error) {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to load room")
		return nil, ErrInternalServer
	}
	return room, nil
}

// loadMember loads the room together with the actor's participant record, which is
// nil when the actor is not in the room.
func (s *RoomService) loadMember(ctx context.Context, roomID, userID uint) (*domain.Room, *domain.Participant, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	return room, room.Participant(userID), nil
}

// RequireMember returns the room when userID participates in it.
func (s *RoomService) RequireMember(ctx context.Context, roomID, userID uint) (*domain.Room, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return room, nil
}

// ConnectableRoom checks that userID may open a realtime connection to the room.
func (s *RoomService) ConnectableRoom(ctx context.Context, roomID, userID uint) (*domain.Room, error) {
	room, err := s.RequireMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !room.IsActive() {
		return nil, ErrRoomInactive
	}
	return room, nil
}

func (s *RoomService) JoinRoom(ctx context.Context, user *domain.User, roomID uint, password string) (*domain.Room, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": user.ID})
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	switch {
	case !room.IsActive():
		return nil, ErrRoomInactive
	case room.IsParticipant(user.ID):
		return nil, ErrAlreadyParticipant
	case room.IsLocked() && bcrypt.CompareHashAndPassword([]byte(*room.PasswordHash), []byte(password)) != nil:
		logCtx.Warn("Join rejected: wrong room password")
		return nil, ErrInvalidRoomPassword
	case room.IsFull():
		return nil, ErrRoomFull
	}

	ok, err := s.AddParticipant(ctx, roomID, user.ID, domain.RoleViewer)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race between the checks above and the insert.
		if member, _ := s.IsParticipant(ctx, roomID, user.ID); member {
			return nil, ErrAlreadyParticipant
		}
		return nil, ErrRoomFull
	}

	channelID := ChannelID(roomID)
	err = callProvider(ctx, s.cfg.ProviderTimeout, videoProviderName, "add_members", func(ctx context.Context) error {
		if err := s.video.UpsertUser(ctx, providerUser(user)); err != nil {
			return err
		}
		return s.video.AddMembers(ctx, channelID, user.ProviderID())
	})
	if err != nil {
		if _, rerr := s.roomRepo.RemoveParticipant(context.WithoutCancel(ctx), roomID, user.ID); rerr != nil {
			logCtx.WithError(rerr).Error("Failed to roll back participant after provider failure")
		}
		return nil, ErrProviderUnavailable
	}

	s.record(ctx, roomID, user.ID, domain.ActivityJoined, "joined the room", nil)
	logCtx.Info("User joined room")
	return s.loadRoom(ctx, roomID)
}

// LeaveRoom is an explicit leave over REST.
func (s *RoomService) LeaveRoom(ctx context.Context, userID, roomID uint) (*Departure, error) {
	d, err := s.Depart(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !d.Departed {
		return nil, ErrNotParticipant
	}
	return d, nil
}

// Depart applies the leave rules: a creator alone in the room deactivates it and
// stays on the roster; anyone else is removed. A user who is not in the room is a no-op.
func (s *RoomService) Depart(ctx context.Context, roomID, userID uint) (*Departure, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsParticipant(userID) {
		return &Departure{}, nil
	}

	d := &Departure{Departed: true}
	if room.CreatorAlone(userID) {
		if err := s.roomRepo.UpdateStatus(ctx, roomID, domain.RoomStatusInactive); err != nil {
			logCtx.WithError(err).Error("Failed to deactivate room")
			return nil, ErrInternalServer
		}
		d.Deactivated = true
		logCtx.Info("Creator left an empty room; room deactivated")
	} else {
		removed, err := s.RemoveParticipant(ctx, roomID, userID)
		if err != nil {
			return nil, err
		}
		d.Removed = removed
		s.removeMember(ctx, roomID, userID)
		logCtx.Info("Participant left room")
	}

	s.record(ctx, roomID, userID, domain.ActivityLeft, "left the room", nil)
	return d, nil
}

// removeMember drops the user from the provider channel. Failures are logged only.
func (s *RoomService) removeMember(ctx context.Context, roomID, userID uint) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		logrus.WithField("user_id", userID).WithError(err).Warn("Skipping channel membership removal")
		return
	}
	_ = callProvider(ctx, s.cfg.ProviderTimeout, videoProviderName, "remove_members", func(ctx context.Context) error {
		return s.video.RemoveMembers(ctx, ChannelID(roomID), user.ProviderID())
	})
}

func (s *RoomService) UpdateRoom(ctx context.Context, userID, roomID uint, in UpdateRoomInput) (*domain.Room, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	room, actor, err := s.loadMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Actor: actor, Action: policy.ActionUpdateSettings}); err != nil {
		return nil, err
	}

	if in.Name != nil {
		room.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		room.Description = *in.Description
	}
	if in.RoomType != nil {
		room.RoomType = *in.RoomType
	}
	if in.IsPublic != nil {
		room.IsPublic = *in.IsPublic
	}
	if in.Tags != nil {
		room.SetTags(in.Tags)
	}
	if in.ExpiresAt != nil {
		if !in.ExpiresAt.After(s.now()) {
			return nil, invalid("expiresAt: must be in the future")
		}
		room.ExpiresAt = in.ExpiresAt
	}
	if in.Config != nil {
		in.Config.Apply(&room.Config)
		if room.Config.MaxParticipants < len(room.Participants) {
			return nil, invalid("maxParticipants: below the current participant count (%d)", len(room.Participants))
		}
	}
	if in.Password != nil {
		if *in.Password == "" {
			room.PasswordHash = nil
		} else {
			if len(*in.Password) < 4 {
				return nil, invalid("password: min=4")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, ErrInternalServer
			}
			h := string(hash)
			room.PasswordHash = &h
		}
	}

	if err := s.roomRepo.Update(ctx, room); err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to update room")
		return nil, ErrInternalServer
	}
	return room, nil
}

// DeleteRoom removes the room and tears down its provider channel. A failed teardown
// is retried in the background when a cleanup scheduler is configured.
func (s *RoomService) DeleteRoom(ctx context.Context, userID, roomID uint) error {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsCreator(userID) {
		return denied(policy.ActionUpdateSettings, "Only the room creator can delete the room")
	}
	if err := s.roomRepo.Delete(ctx, roomID); err != nil {
		return mapRepoError(err, ErrRoomNotFound)
	}
	s.deleteChannel(ctx, roomID)
	logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID}).Info("Room deleted")
	return nil
}

// StreamToken issues provider credentials for a participant.
func (s *RoomService) StreamToken(ctx context.Context, user *domain.User, roomID uint) (*StreamCredentials, error) {
	if _, err := s.RequireMember(ctx, roomID, user.ID); err != nil {
		return nil, err
	}
	var token string
	err := callProvider(ctx, s.cfg.ProviderTimeout, videoProviderName, "create_token", func(ctx context.Context) error {
		if err := s.video.UpsertUser(ctx, providerUser(user)); err != nil {
			return err
		}
		t, err := s.video.CreateToken(user.ProviderID())
		token = t
		return err
	})
	if err != nil {
		return nil, ErrProviderUnavailable
	}
	return &StreamCredentials{Token: token, UserID: user.ProviderID(), ChannelID: ChannelID(roomID)}, nil
}

// EditCode overwrites the shared buffer. Concurrent edits are last-write-wins.
func (s *RoomService) EditCode(ctx context.Context, userID, roomID uint, code, language string) (*domain.SharedCode, error) {
	room, actor, err := s.loadMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Actor: actor, Action: policy.ActionEditCode}); err != nil {
		return nil, err
	}
	if !room.Config.CodeEditorEnabled {
		return nil, denied(policy.ActionEditCode, "The code editor is disabled in this room")
	}
	room.UpdateSharedCode(code, language, userID, s.now())
	if err := s.roomRepo.UpdateSharedCode(ctx, roomID, room.SharedCode); err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to persist shared code")
		return nil, ErrInternalServer
	}
	return &room.SharedCode, nil
}

func (s *RoomService) record(ctx context.Context, roomID, userID uint, t domain.ActivityType, desc string, meta map[string]any) {
	recordActivity(ctx, s.activity, &domain.ActivityRecord{
		RoomID:      roomID,
		UserID:      userID,
		EventType:   t,
		Description: desc,
		Metadata:    meta,
	})
}

func providerUser(u *domain.User) ProviderUser {
	return ProviderUser{ID: u.ProviderID(), Name: u.DisplayName(), Image: u.AvatarURL}
}
