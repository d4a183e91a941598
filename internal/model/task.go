package model

import (
	"time"

	"gorm.io/datatypes"

	"recurring-planner/internal/recurrence"
)

// Task represents a single item in the planner. Recurring tasks own the
// instances materialized from their recurrence pattern.
type Task struct {
	ID          uint  `gorm:"primaryKey"`
	UserID      uint  `gorm:"index"`
	CategoryID  *uint `gorm:"index"`
	Title       string
	Description string
	// DueDate is the deadline of a one-off task and the anchor date of a
	// recurring one.
	DueDate          *time.Time
	IsCompleted      bool `gorm:"default:false"`
	IsRecurring      bool `gorm:"index;default:false"`
	RecurrenceActive bool
	Recurrence       datatypes.JSONType[recurrence.Pattern]
	PausedAt         *time.Time
	LastCompletedAt  *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Pattern returns the stored recurrence pattern.
func (t Task) Pattern() recurrence.Pattern {
	return t.Recurrence.Data()
}

// SetPattern replaces the stored recurrence pattern.
func (t *Task) SetPattern(p recurrence.Pattern) {
	t.Recurrence = datatypes.NewJSONType(p)
}

// AnchorDate is the date recurrence counts from: the due date when set,
// otherwise the creation day.
func (t Task) AnchorDate() time.Time {
	if t.DueDate != nil {
		return recurrence.DateOf(*t.DueDate)
	}
	return recurrence.DateOf(t.CreatedAt)
}
