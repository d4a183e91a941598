package service

import (
	"context"
	"fmt"
	"time"

	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
	"recurring-planner/internal/repository"
)

// StatusUpdate is a user-driven change to one instance.
type StatusUpdate struct {
	Status        model.InstanceStatus
	ActualMinutes *int
	Notes         string
}

// InstanceService exposes task instances to the rest of the application.
type InstanceService struct {
	instanceRepo *repository.InstanceRepository
	taskRepo     *repository.TaskRepository
	activity     ActivityRecorder
	now          func() time.Time
}

func NewInstanceService(instanceRepo *repository.InstanceRepository, taskRepo *repository.TaskRepository, activity ActivityRecorder) *InstanceService {
	return &InstanceService{instanceRepo: instanceRepo, taskRepo: taskRepo, activity: activity, now: time.Now}
}

// ListInstances returns the user's instances dated within [from, to].
func (s *InstanceService) ListInstances(ctx context.Context, user *model.User, from, to time.Time) ([]model.TaskInstance, error) {
	return s.instanceRepo.ListByUser(ctx, user.ID, recurrence.DateOf(from), recurrence.DateOf(to))
}

// ListOverdue returns unresolved instances dated before today.
func (s *InstanceService) ListOverdue(ctx context.Context, user *model.User, today time.Time) ([]model.TaskInstance, error) {
	return s.instanceRepo.ListUnresolvedBefore(ctx, user.ID, recurrence.DateOf(today))
}

// UpdateStatus moves an instance to a new status. CompletedAt is set only
// while the instance is completed.
func (s *InstanceService) UpdateStatus(ctx context.Context, user *model.User, instanceID string, update StatusUpdate) (*model.TaskInstance, error) {
	if !update.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, update.Status)
	}
	if update.ActualMinutes != nil && *update.ActualMinutes < 0 {
		return nil, fmt.Errorf("actual minutes must not be negative")
	}

	instance, err := s.instanceRepo.FindByID(ctx, user.ID, instanceID)
	if err != nil {
		return nil, notFound(err)
	}

	now := s.now().UTC()
	previous := instance.Status
	instance.Status = update.Status
	if update.Status == model.InstanceCompleted {
		if instance.CompletedAt == nil {
			instance.CompletedAt = &now
		}
	} else {
		instance.CompletedAt = nil
	}
	if update.ActualMinutes != nil {
		minutes := *update.ActualMinutes
		instance.ActualMinutes = &minutes
	}
	if update.Notes != "" {
		instance.CompletionNotes = update.Notes
	}

	if err := s.instanceRepo.Save(ctx, instance); err != nil {
		return nil, err
	}
	if update.Status == model.InstanceCompleted && previous != model.InstanceCompleted {
		if err := s.taskRepo.MarkRecurringDone(ctx, instance.TaskID, now); err != nil {
			return nil, err
		}
	}

	recordActivity(ctx, s.activity, user.ID, &instance.TaskID, model.ActivityStatus,
		fmt.Sprintf("%s %s -> %s", instance.InstanceDate.Format(recurrence.DateLayout), previous, update.Status), now)
	return instance, nil
}
