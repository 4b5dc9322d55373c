package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/repository"
)

// GormChatRepository implements repository.ChatRepository.
type GormChatRepository struct {
	db *gorm.DB
}

func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	if db == nil {
		panic("database connection cannot be nil for GormChatRepository")
	}
	return &GormChatRepository{db: db}
}

var _ repository.ChatRepository = (*GormChatRepository)(nil)

func (r *GormChatRepository) Create(ctx context.Context, msg *domain.ChatMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("gorm: create chat message in room %d: %w", msg.RoomID, err)
	}
	return nil
}

func (r *GormChatRepository) FindByID(ctx context.Context, id uint) (*domain.ChatMessage, error) {
	var msg domain.ChatMessage
	err := r.db.WithContext(ctx).Preload("Reactions").First(&msg, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrMessageNotFound
		}
		return nil, fmt.Errorf("gorm: find chat message %d: %w", id, err)
	}
	return &msg, nil
}

func (r *GormChatRepository) ListByRoom(ctx context.Context, roomID uint, page repository.Page) ([]domain.ChatMessage, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.ChatMessage{}).Where("room_id = ?", roomID).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("gorm: count chat messages in room %d: %w", roomID, err)
	}

	page = page.Normalize()
	var msgs []domain.ChatMessage
	err := q.Preload("Reactions").
		Order("created_at DESC, id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&msgs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("gorm: list chat messages in room %d: %w", roomID, err)
	}
	return msgs, total, nil
}

func (r *GormChatRepository) Search(ctx context.Context, roomID uint, query string, limit int) ([]domain.ChatMessage, error) {
	var msgs []domain.ChatMessage
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND message LIKE ?", roomID, "%"+query+"%").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: search chat messages in room %d: %w", roomID, err)
	}
	return msgs, nil
}

func (r *GormChatRepository) UpdateText(ctx context.Context, msg *domain.ChatMessage) error {
	err := r.db.WithContext(ctx).Model(msg).
		Select("message", "is_edited", "edited_at", "updated_at").
		Updates(msg).Error
	if err != nil {
		return fmt.Errorf("gorm: update chat message %d: %w", msg.ID, err)
	}
	return nil
}

func (r *GormChatRepository) Delete(ctx context.Context, id uint) error {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&domain.Reaction{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.ChatMessage{}, id)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return fmt.Errorf("gorm: delete chat message %d: %w", id, err)
	}
	if affected == 0 {
		return repository.ErrMessageNotFound
	}
	return nil
}

func (r *GormChatRepository) ToggleReaction(ctx context.Context, reaction *domain.Reaction) (bool, error) {
	added := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("message_id = ? AND user_id = ? AND emoji = ?", reaction.MessageID, reaction.UserID, reaction.Emoji).
			Delete(&domain.Reaction{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		if reaction.CreatedAt.IsZero() {
			reaction.CreatedAt = time.Now()
		}
		if err := tx.Create(reaction).Error; err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		if isDuplicateEntryError(err) {
			// A concurrent toggle inserted the same reaction first.
			return true, nil
		}
		return false, fmt.Errorf("gorm: toggle reaction on message %d: %w", reaction.MessageID, err)
	}
	return added, nil
}
