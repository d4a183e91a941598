package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"recurring-planner/internal/model"
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// ListActiveOrRecurring returns open one-off tasks and every recurring task.
func (r *TaskRepository) ListActiveOrRecurring(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND (is_completed = ? OR is_recurring = ?)", userID, false, true).
		Order("due_date NULLS LAST, created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListRecurring returns every recurring task across all users, paused ones
// included.
func (r *TaskRepository) ListRecurring(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("is_recurring = ?", true).Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list recurring tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) MarkCompleted(ctx context.Context, task *model.Task, completedAt time.Time) error {
	task.IsCompleted = true
	task.LastCompletedAt = &completedAt
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return nil
}

// MarkRecurringDone stores the last completion time of a recurring task.
func (r *TaskRepository) MarkRecurringDone(ctx context.Context, taskID uint, completedAt time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", taskID).
		Update("last_completed_at", completedAt).Error; err != nil {
		return fmt.Errorf("mark recurring done: %w", err)
	}
	return nil
}

// SetRecurrenceActive pauses or resumes materialization for a task.
func (r *TaskRepository) SetRecurrenceActive(ctx context.Context, task *model.Task, active bool, at time.Time) error {
	task.RecurrenceActive = active
	if active {
		task.PausedAt = nil
	} else {
		task.PausedAt = &at
	}
	updates := map[string]interface{}{
		"recurrence_active": task.RecurrenceActive,
		"paused_at":         task.PausedAt,
	}
	if err := r.db.WithContext(ctx).Model(task).Updates(updates).Error; err != nil {
		return fmt.Errorf("set recurrence active: %w", err)
	}
	return nil
}

// SaveRecurrence persists the recurrence fields of a task.
func (r *TaskRepository) SaveRecurrence(ctx context.Context, task *model.Task) error {
	updates := map[string]interface{}{
		"is_recurring":      task.IsRecurring,
		"recurrence":        task.Recurrence,
		"recurrence_active": task.RecurrenceActive,
		"due_date":          task.DueDate,
	}
	if err := r.db.WithContext(ctx).Model(task).Updates(updates).Error; err != nil {
		return fmt.Errorf("save recurrence: %w", err)
	}
	return nil
}

// Delete removes a task for the given user together with its instances.
// SQLite foreign keys are off by default, so the cascade is done here.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND id = ?", userID, taskID).Delete(&model.Task{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("task_id = ?", taskID).Delete(&model.TaskInstance{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
