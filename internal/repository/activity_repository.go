package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"recurring-planner/internal/model"
)

// ActivityRepository keeps the planner's activity history.
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Record(ctx context.Context, record *model.ActivityRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

func (r *ActivityRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]model.ActivityRecord, error) {
	var records []model.ActivityRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return records, nil
}

// DeleteBefore purges records created before cutoff.
func (r *ActivityRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff.UTC()).Delete(&model.ActivityRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete old activity: %w", res.Error)
	}
	return res.RowsAffected, nil
}
