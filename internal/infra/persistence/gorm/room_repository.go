package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/repository"
)

// GormRoomRepository implements repository.RoomRepository with row-level writes:
// a participant change touches one participant row, a code edit touches the
// shared-code columns of one room row.
type GormRoomRepository struct {
	db *gorm.DB
}

func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

var _ repository.RoomRepository = (*GormRoomRepository)(nil)

// editableRoomColumns are written by Update.
var editableRoomColumns = []string{
	"name", "description", "room_type", "is_public", "password_hash", "tags", "expires_at",
	"config_max_participants", "config_recording_enabled", "config_chat_enabled",
	"config_screen_share_enabled", "config_code_editor_enabled", "config_whiteboard_enabled",
	"config_allow_membership_change_on_join", "updated_at",
}

var participantColumns = []string{
	"role", "perm_can_edit", "perm_can_execute", "perm_can_screen_share", "perm_can_chat", "perm_can_mute",
	"is_muted", "is_camera_off", "is_screen_sharing",
}

var errParticipantExists = errors.New("participant already exists")

func participantsInJoinOrder(db *gorm.DB) *gorm.DB {
	return db.Order("joined_at ASC, id ASC")
}

func (r *GormRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	if err := r.db.WithContext(ctx).Create(room).Error; err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create room '%s': %w", room.Name, err)
	}
	return nil
}

func (r *GormRoomRepository) FindByID(ctx context.Context, id uint) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).
		Preload("Participants", participantsInJoinOrder).
		First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by id %d: %w", id, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) List(ctx context.Context, filter repository.RoomFilter) ([]domain.Room, int64, error) {
	db := r.db.WithContext(ctx)
	q := db.Model(&domain.Room{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.RoomType != "" {
		q = q.Where("room_type = ?", filter.RoomType)
	}
	if filter.IsPublic != nil {
		q = q.Where("is_public = ?", *filter.IsPublic)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("name LIKE ? OR description LIKE ?", like, like)
	}
	if filter.VisibleTo != 0 {
		memberOf := db.Model(&domain.Participant{}).Select("room_id").Where("user_id = ?", filter.VisibleTo)
		q = q.Where("is_public = ? OR id IN (?)", true, memberOf)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("gorm: count rooms: %w", err)
	}

	page := filter.Page.Normalize()
	var rooms []domain.Room
	err := q.Preload("Participants", participantsInJoinOrder).
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&rooms).Error
	if err != nil {
		return nil, 0, fmt.Errorf("gorm: list rooms: %w", err)
	}
	return rooms, total, nil
}

func (r *GormRoomRepository) Update(ctx context.Context, room *domain.Room) error {
	room.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Model(room).
		Select(editableRoomColumns).
		Omit(clause.Associations).
		Updates(room).Error
	if err != nil {
		return fmt.Errorf("gorm: update room %d: %w", room.ID, err)
	}
	return nil
}

func (r *GormRoomRepository) updateColumns(ctx context.Context, roomID uint, what string, values map[string]any) error {
	values["updated_at"] = time.Now()
	err := r.db.WithContext(ctx).Model(&domain.Room{}).Where("id = ?", roomID).Updates(values).Error
	if err != nil {
		return fmt.Errorf("gorm: update %s of room %d: %w", what, roomID, err)
	}
	return nil
}

func (r *GormRoomRepository) UpdateSharedCode(ctx context.Context, roomID uint, code domain.SharedCode) error {
	return r.updateColumns(ctx, roomID, "shared code", map[string]any{
		"shared_language":       code.Language,
		"shared_code":           code.Code,
		"shared_last_edited_by": code.LastEditedBy,
		"shared_last_edited_at": code.LastEditedAt,
	})
}

func (r *GormRoomRepository) UpdateStatus(ctx context.Context, roomID uint, status domain.RoomStatus) error {
	return r.updateColumns(ctx, roomID, "status", map[string]any{"status": status})
}

func (r *GormRoomRepository) UpdateRecording(ctx context.Context, roomID uint, rec domain.Recording) error {
	return r.updateColumns(ctx, roomID, "recording", map[string]any{
		"recording_active":     rec.Active,
		"recording_started_at": rec.StartedAt,
		"recording_url":        rec.URL,
	})
}

func (r *GormRoomRepository) Delete(ctx context.Context, id uint) error {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		messageIDs := tx.Model(&domain.ChatMessage{}).Select("id").Where("room_id = ?", id)
		if err := tx.Where("message_id IN (?)", messageIDs).Delete(&domain.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", id).Delete(&domain.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", id).Delete(&domain.Participant{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Room{}, id)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return fmt.Errorf("gorm: delete room %d: %w", id, err)
	}
	if affected == 0 {
		return repository.ErrRoomNotFound
	}
	return nil
}

func (r *GormRoomRepository) AddParticipant(ctx context.Context, roomID, userID uint, role domain.Role, joinedAt time.Time) (*domain.Participant, bool, error) {
	var added *domain.Participant
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room domain.Room
		// Row lock serialises concurrent joins against the capacity check.
		// SQLite ignores the clause; its writer lock gives the same guarantee.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&room, roomID).Error; err != nil {
			return err
		}
		if err := participantsInJoinOrder(tx.Where("room_id = ?", roomID)).Find(&room.Participants).Error; err != nil {
			return err
		}
		p, ok := room.AddParticipant(userID, role, joinedAt)
		if !ok {
			return nil
		}
		if err := tx.Create(p).Error; err != nil {
			if isDuplicateEntryError(err) {
				return errParticipantExists
			}
			return err
		}
		cp := *p
		added = &cp
		return nil
	})
	if err != nil {
		if errors.Is(err, errParticipantExists) {
			return nil, false, nil
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, repository.ErrRoomNotFound
		}
		return nil, false, fmt.Errorf("gorm: add participant %d to room %d: %w", userID, roomID, err)
	}
	return added, added != nil, nil
}

func (r *GormRoomRepository) RemoveParticipant(ctx context.Context, roomID, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&domain.Participant{})
	if res.Error != nil {
		return false, fmt.Errorf("gorm: remove participant %d from room %d: %w", userID, roomID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRoomRepository) UpdateParticipant(ctx context.Context, p *domain.Participant) error {
	if p.ID == 0 {
		return repository.ErrParticipantNotFound
	}
	err := r.db.WithContext(ctx).Model(p).Select(participantColumns).Updates(p).Error
	if err != nil {
		return fmt.Errorf("gorm: update participant %d in room %d: %w", p.UserID, p.RoomID, err)
	}
	return nil
}

func (r *GormRoomRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find expired rooms: %w", err)
	}
	return rooms, nil
}

func (r *GormRoomRepository) FindInactiveBefore(ctx context.Context, before time.Time, limit int) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", domain.RoomStatusInactive, before).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find inactive rooms: %w", err)
	}
	return rooms, nil
}
