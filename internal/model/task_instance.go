package model

import "time"

// InstanceStatus is the lifecycle state of a task instance.
type InstanceStatus string

const (
	InstancePending    InstanceStatus = "pending"
	InstanceInProgress InstanceStatus = "in_progress"
	InstanceCompleted  InstanceStatus = "completed"
	InstanceSkipped    InstanceStatus = "skipped"
	InstanceCancelled  InstanceStatus = "cancelled"
)

// TerminalStatuses are the resolved states eligible for retention cleanup.
var TerminalStatuses = []InstanceStatus{InstanceCompleted, InstanceSkipped, InstanceCancelled}

func (s InstanceStatus) Valid() bool {
	switch s {
	case InstancePending, InstanceInProgress, InstanceCompleted, InstanceSkipped, InstanceCancelled:
		return true
	}
	return false
}

func (s InstanceStatus) Terminal() bool {
	return s == InstanceCompleted || s == InstanceSkipped || s == InstanceCancelled
}

// TaskInstance is one concrete occurrence of a recurring task.
// (TaskID, InstanceDate) is unique.
type TaskInstance struct {
	ID              string         `gorm:"primaryKey;size:36"`
	TaskID          uint           `gorm:"not null;uniqueIndex:idx_task_instance_date"`
	UserID          uint           `gorm:"index"`
	InstanceDate    time.Time      `gorm:"not null;uniqueIndex:idx_task_instance_date;index"`
	Status          InstanceStatus `gorm:"size:16;not null;index"`
	CompletedAt     *time.Time
	ActualMinutes   *int
	CompletionNotes string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
