package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/repository"
)

const recentActivityLimit = 10

// GormActivityRepository implements the append-only repository.ActivityRepository.
type GormActivityRepository struct {
	db *gorm.DB
}

func NewGormActivityRepository(db *gorm.DB) *GormActivityRepository {
	if db == nil {
		panic("database connection cannot be nil for GormActivityRepository")
	}
	return &GormActivityRepository{db: db}
}

var _ repository.ActivityRepository = (*GormActivityRepository)(nil)

func (r *GormActivityRepository) Append(ctx context.Context, rec *domain.ActivityRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("gorm: append activity %s for room %d: %w", rec.EventType, rec.RoomID, err)
	}
	return nil
}

func (r *GormActivityRepository) page(q *gorm.DB, page repository.Page) ([]domain.ActivityRecord, int64, error) {
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page = page.Normalize()
	var recs []domain.ActivityRecord
	err := q.Order("created_at DESC, id DESC").Offset(page.Offset()).Limit(page.Limit).Find(&recs).Error
	return recs, total, err
}

func (r *GormActivityRepository) ListByRoom(ctx context.Context, roomID uint, eventType domain.ActivityType, page repository.Page) ([]domain.ActivityRecord, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.ActivityRecord{}).Where("room_id = ?", roomID)
	if eventType != "" {
		q = q.Where("event_type = ?", eventType)
	}
	recs, total, err := r.page(q, page)
	if err != nil {
		return nil, 0, fmt.Errorf("gorm: list activity for room %d: %w", roomID, err)
	}
	return recs, total, nil
}

func (r *GormActivityRepository) ListByUser(ctx context.Context, userID uint, page repository.Page) ([]domain.ActivityRecord, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.ActivityRecord{}).Where("user_id = ?", userID)
	recs, total, err := r.page(q, page)
	if err != nil {
		return nil, 0, fmt.Errorf("gorm: list activity for user %d: %w", userID, err)
	}
	return recs, total, nil
}

// hourExpr extracts the hour of created_at in the connected dialect.
func hourExpr(dialect string) string {
	switch dialect {
	case "postgres":
		return "CAST(EXTRACT(HOUR FROM created_at) AS INTEGER)"
	case "sqlite":
		return "CAST(strftime('%H', created_at) AS INTEGER)"
	default:
		return "HOUR(created_at)"
	}
}

func (r *GormActivityRepository) Stats(ctx context.Context, roomID uint) (*domain.ActivityStats, error) {
	db := r.db.WithContext(ctx)
	base := db.Model(&domain.ActivityRecord{}).Where("room_id = ?", roomID).Session(&gorm.Session{})
	stats := &domain.ActivityStats{EventBreakdown: []domain.EventCount{}, Recent: []domain.ActivityRecord{}}

	if err := base.Count(&stats.TotalActivities).Error; err != nil {
		return nil, fmt.Errorf("gorm: count activity for room %d: %w", roomID, err)
	}
	if err := base.Distinct("user_id").Count(&stats.UniqueUsers).Error; err != nil {
		return nil, fmt.Errorf("gorm: count activity users for room %d: %w", roomID, err)
	}
	err := base.Select("event_type, COUNT(*) AS count").
		Group("event_type").
		Order("count DESC").
		Scan(&stats.EventBreakdown).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: activity breakdown for room %d: %w", roomID, err)
	}

	var peak []struct {
		Hour  int
		Count int64
	}
	err = base.Select(hourExpr(db.Dialector.Name()) + " AS hour, COUNT(*) AS count").
		Group("hour").
		Order("count DESC").
		Limit(1).
		Scan(&peak).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: activity peak hour for room %d: %w", roomID, err)
	}
	if len(peak) == 1 {
		stats.PeakHour = &domain.HourCount{Hour: fmt.Sprintf("%02d:00", peak[0].Hour), Count: peak[0].Count}
	}

	if err := base.Order("created_at DESC, id DESC").Limit(recentActivityLimit).Find(&stats.Recent).Error; err != nil {
		return nil, fmt.Errorf("gorm: recent activity for room %d: %w", roomID, err)
	}
	return stats, nil
}
