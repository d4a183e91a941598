package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
)

// InstancePurger deletes resolved instances.
type InstancePurger interface {
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time, statuses []model.InstanceStatus) (int64, error)
}

// HistoryPurger deletes old activity records.
type HistoryPurger interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionService runs the two independent cleanup jobs: resolved task
// instances and the activity history.
type RetentionService struct {
	instances InstancePurger
	history   HistoryPurger
	loc       *time.Location
	now       func() time.Time
}

func NewRetentionService(instances InstancePurger, history HistoryPurger, loc *time.Location) *RetentionService {
	if loc == nil {
		loc = time.Local
	}
	return &RetentionService{instances: instances, history: history, loc: loc, now: time.Now}
}

// CleanupOldInstances deletes completed, skipped and cancelled instances
// dated more than retentionDays ago. Pending and in-progress instances are
// kept at any age.
func (s *RetentionService) CleanupOldInstances(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 0 {
		return 0, fmt.Errorf("retention must not be negative, got %d", retentionDays)
	}
	today := recurrence.DateOf(s.now().In(s.loc))
	cutoff := recurrence.AddDays(today, -retentionDays)
	deleted, err := s.instances.DeleteResolvedBefore(ctx, cutoff, model.TerminalStatuses)
	if err != nil {
		return 0, err
	}
	log.Printf("[info] instance cleanup: deleted=%d before=%s", deleted, cutoff.Format(recurrence.DateLayout))
	return deleted, nil
}

// CleanupHistory deletes activity records older than retentionDays.
func (s *RetentionService) CleanupHistory(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 0 {
		return 0, fmt.Errorf("retention must not be negative, got %d", retentionDays)
	}
	cutoff := s.now().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	deleted, err := s.history.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	log.Printf("[info] history cleanup: deleted=%d before=%s", deleted, cutoff.UTC().Format(time.RFC3339))
	return deleted, nil
}
