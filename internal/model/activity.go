package model

import "time"

// ActivityKind names what happened in an activity record.
type ActivityKind string

const (
	ActivityMaterialized ActivityKind = "materialized"
	ActivityStatus       ActivityKind = "status"
	ActivityPaused       ActivityKind = "paused"
	ActivityResumed      ActivityKind = "resumed"
	ActivityDeleted      ActivityKind = "deleted"
)

// ActivityRecord is a historical log entry, purged after its own retention.
type ActivityRecord struct {
	ID        uint         `gorm:"primaryKey"`
	UserID    uint         `gorm:"index"`
	TaskID    *uint        `gorm:"index"`
	Kind      ActivityKind `gorm:"size:32"`
	Detail    string
	CreatedAt time.Time `gorm:"index"`
}
