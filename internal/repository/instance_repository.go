package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recurring-planner/internal/model"
)

// InstanceRepository stores materialized task instances.
type InstanceRepository struct {
	db *gorm.DB
}

func NewInstanceRepository(db *gorm.DB) *InstanceRepository {
	return &InstanceRepository{db: db}
}

// DatesInRange returns the instance dates already materialized for a task
// in [from, to].
func (r *InstanceRepository) DatesInRange(ctx context.Context, taskID uint, from, to time.Time) ([]time.Time, error) {
	var dates []time.Time
	err := r.db.WithContext(ctx).Model(&model.TaskInstance{}).
		Where("task_id = ? AND instance_date >= ? AND instance_date <= ?", taskID, from, to).
		Order("instance_date ASC").
		Pluck("instance_date", &dates).Error
	if err != nil {
		return nil, fmt.Errorf("list instance dates: %w", err)
	}
	return dates, nil
}

// CreateIfAbsent inserts the instance unless one already exists for the same
// task and date. It reports whether a row was written. A task that no longer
// exists yields gorm.ErrRecordNotFound and nothing is inserted.
func (r *InstanceRepository) CreateIfAbsent(ctx context.Context, instance *model.TaskInstance) (bool, error) {
	var created bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Task{}).Where("id = ?", instance.TaskID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_id"}, {Name: "instance_date"}},
			DoNothing: true,
		}).Create(instance)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("create instance: %w", err)
	}
	return created, nil
}

func (r *InstanceRepository) FindByID(ctx context.Context, userID uint, id string) (*model.TaskInstance, error) {
	var instance model.TaskInstance
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&instance).Error; err != nil {
		return nil, err
	}
	return &instance, nil
}

// ListByUser returns a user's instances dated within [from, to].
func (r *InstanceRepository) ListByUser(ctx context.Context, userID uint, from, to time.Time) ([]model.TaskInstance, error) {
	var instances []model.TaskInstance
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND instance_date >= ? AND instance_date <= ?", userID, from, to).
		Order("instance_date ASC, task_id ASC").
		Find(&instances).Error; err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	return instances, nil
}

// ListByTask returns every instance of a task, oldest first.
func (r *InstanceRepository) ListByTask(ctx context.Context, taskID uint) ([]model.TaskInstance, error) {
	var instances []model.TaskInstance
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("instance_date ASC").Find(&instances).Error; err != nil {
		return nil, fmt.Errorf("list task instances: %w", err)
	}
	return instances, nil
}

// ListUnresolvedBefore returns pending and in-progress instances dated
// before the given day.
func (r *InstanceRepository) ListUnresolvedBefore(ctx context.Context, userID uint, before time.Time) ([]model.TaskInstance, error) {
	var instances []model.TaskInstance
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND instance_date < ? AND status IN ?", userID, before,
			[]model.InstanceStatus{model.InstancePending, model.InstanceInProgress}).
		Order("instance_date ASC").
		Find(&instances).Error; err != nil {
		return nil, fmt.Errorf("list overdue instances: %w", err)
	}
	return instances, nil
}

func (r *InstanceRepository) Save(ctx context.Context, instance *model.TaskInstance) error {
	if err := r.db.WithContext(ctx).Save(instance).Error; err != nil {
		return fmt.Errorf("save instance: %w", err)
	}
	return nil
}

// DeleteResolvedBefore removes instances dated before cutoff whose status is
// one of statuses.
func (r *InstanceRepository) DeleteResolvedBefore(ctx context.Context, cutoff time.Time, statuses []model.InstanceStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("instance_date < ? AND status IN ?", cutoff, statuses).
		Delete(&model.TaskInstance{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete old instances: %w", res.Error)
	}
	return res.RowsAffected, nil
}
