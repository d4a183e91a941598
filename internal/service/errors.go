package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound means the task or instance no longer exists. Batch jobs
	// treat it as a no-op.
	ErrNotFound = errors.New("not found")
	// ErrInvalidStatus rejects an unknown instance status.
	ErrInvalidStatus = errors.New("invalid instance status")
	// ErrNotRecurring is returned for recurrence operations on one-off tasks.
	ErrNotRecurring = errors.New("task is not recurring")
	// ErrRecurringTask is returned when a recurring task is completed as a
	// whole instead of through its instances.
	ErrRecurringTask = errors.New("recurring tasks are completed per instance")
)

// PersistenceError is a storage failure while working on one task. The
// batch run logs it and retries the task on the next cycle.
type PersistenceError struct {
	Op     string
	TaskID uint
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s (task %d): %v", e.Op, e.TaskID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// notFound maps gorm's missing-row error onto ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
