package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/repository"
)

// FavoriteRoom is the listing shape of a favourited room.
type FavoriteRoom struct {
	ID               uint            `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	RoomType         domain.RoomType `json:"roomType"`
	MaxParticipants  int             `json:"maxParticipants"`
	ParticipantCount int             `json:"participantCount"`
}

// BlockedUser is the listing shape of a blocked user.
type BlockedUser struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl"`
}

// PreferencesService manages each user's own settings, favourite rooms and
// blocked users. Nobody can read or change another user's preferences.
type PreferencesService struct {
	repo     repository.PreferencesRepository
	roomRepo repository.RoomRepository
	userRepo repository.UserRepository
}

func NewPreferencesService(repo repository.PreferencesRepository, roomRepo repository.RoomRepository, userRepo repository.UserRepository) *PreferencesService {
	if repo == nil {
		panic("PreferencesRepository cannot be nil for PreferencesService")
	}
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for PreferencesService")
	}
	if userRepo == nil {
		panic("UserRepository cannot be nil for PreferencesService")
	}
	return &PreferencesService{repo: repo, roomRepo: roomRepo, userRepo: userRepo}
}

// Get returns the user's preferences, storing the defaults on first access.
func (s *PreferencesService) Get(ctx context.Context, userID uint) (*domain.UserPreferences, error) {
	prefs, err := s.repo.FindByUserID(ctx, userID)
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		logrus.WithField("user_id", userID).WithError(err).Error("Failed to load preferences")
		return nil, ErrInternalServer
	}
	return s.upsert(ctx, userID, func(*domain.UserPreferences) error { return nil })
}

// Update merges patch into the user's preferences.
func (s *PreferencesService) Update(ctx context.Context, userID uint, patch domain.PreferencesPatch) (*domain.UserPreferences, error) {
	if err := validateInput(patch); err != nil {
		return nil, err
	}
	return s.upsert(ctx, userID, func(p *domain.UserPreferences) error {
		patch.Apply(p)
		return nil
	})
}

// AddFavorite favourites an existing room. Adding it twice is a no-op.
func (s *PreferencesService) AddFavorite(ctx context.Context, userID, roomID uint) (*domain.UserPreferences, error) {
	if roomID == 0 {
		return nil, invalid("roomId: required")
	}
	if _, err := s.roomRepo.FindByID(ctx, roomID); err != nil {
		return nil, s.lookupError(err, ErrRoomNotFound, "room_id", roomID)
	}
	return s.upsert(ctx, userID, func(p *domain.UserPreferences) error {
		p.AddFavorite(roomID)
		return nil
	})
}

// RemoveFavorite drops roomID from the favourites of a user who has saved preferences.
func (s *PreferencesService) RemoveFavorite(ctx context.Context, userID, roomID uint) (*domain.UserPreferences, error) {
	return s.upsert(ctx, userID, func(p *domain.UserPreferences) error {
		if p.ID == 0 {
			return ErrPreferencesNotFound
		}
		p.RemoveFavorite(roomID)
		return nil
	})
}

// Favorites lists the favourited rooms that still exist, in the order they were added.
func (s *PreferencesService) Favorites(ctx context.Context, userID uint) ([]FavoriteRoom, error) {
	prefs, err := s.stored(ctx, userID)
	if err != nil || prefs == nil {
		return []FavoriteRoom{}, err
	}
	out := make([]FavoriteRoom, 0, len(prefs.FavoriteRoomIDs()))
	for _, id := range prefs.FavoriteRoomIDs() {
		room, err := s.roomRepo.FindByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, s.lookupError(err, ErrRoomNotFound, "room_id", id)
		}
		out = append(out, FavoriteRoom{
			ID:               room.ID,
			Name:             room.Name,
			Description:      room.Description,
			RoomType:         room.RoomType,
			MaxParticipants:  room.Config.MaxParticipants,
			ParticipantCount: len(room.Participants),
		})
	}
	return out, nil
}

// Block adds an existing user to the block list. Users cannot block themselves.
func (s *PreferencesService) Block(ctx context.Context, userID, targetID uint) (*domain.UserPreferences, error) {
	if targetID == 0 {
		return nil, invalid("userId: required")
	}
	if targetID == userID {
		return nil, invalid("You cannot block yourself")
	}
	if _, err := s.userRepo.FindByID(ctx, targetID); err != nil {
		return nil, s.lookupError(err, ErrUserNotFound, "user_id", targetID)
	}
	return s.upsert(ctx, userID, func(p *domain.UserPreferences) error {
		p.Block(targetID)
		return nil
	})
}

func (s *PreferencesService) Unblock(ctx context.Context, userID, targetID uint) (*domain.UserPreferences, error) {
	return s.upsert(ctx, userID, func(p *domain.UserPreferences) error {
		if p.ID == 0 {
			return ErrPreferencesNotFound
		}
		p.Unblock(targetID)
		return nil
	})
}

// BlockedUsers lists the blocked users that still exist.
func (s *PreferencesService) BlockedUsers(ctx context.Context, userID uint) ([]BlockedUser, error) {
	prefs, err := s.stored(ctx, userID)
	if err != nil || prefs == nil {
		return []BlockedUser{}, err
	}
	out := make([]BlockedUser, 0, len(prefs.BlockedUserIDs()))
	for _, id := range prefs.BlockedUserIDs() {
		u, err := s.userRepo.FindByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, s.lookupError(err, ErrUserNotFound, "user_id", id)
		}
		out = append(out, BlockedUser{ID: u.ID, Name: u.DisplayName(), Email: u.Email, AvatarURL: u.AvatarURL})
	}
	return out, nil
}

// stored returns nil without an error when the user never saved preferences.
func (s *PreferencesService) stored(ctx context.Context, userID uint) (*domain.UserPreferences, error) {
	prefs, err := s.repo.FindByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		logrus.WithField("user_id", userID).WithError(err).Error("Failed to load preferences")
		return nil, ErrInternalServer
	}
	return prefs, nil
}

// upsert retries once when a concurrent first write for the same user won the insert.
func (s *PreferencesService) upsert(ctx context.Context, userID uint, mutate func(*domain.UserPreferences) error) (*domain.UserPreferences, error) {
	prefs, err := s.repo.Upsert(ctx, userID, mutate)
	if errors.Is(err, repository.ErrDuplicateEntry) {
		prefs, err = s.repo.Upsert(ctx, userID, mutate)
	}
	if err != nil {
		if errors.Is(err, ErrPreferencesNotFound) {
			return nil, err
		}
		logrus.WithField("user_id", userID).WithError(err).Error("Failed to save preferences")
		return nil, ErrInternalServer
	}
	return prefs, nil
}

func (s *PreferencesService) lookupError(err error, notFound error, field string, id uint) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	logrus.WithField(field, id).WithError(err).Error("Failed to look up record")
	return ErrInternalServer
}
