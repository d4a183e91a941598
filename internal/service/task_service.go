package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
	"recurring-planner/internal/repository"
)

// TaskInput represents data required to create a task. A non-nil
// Recurrence makes the task recurring with DueDate as its anchor.
type TaskInput struct {
	Title       string
	Description string
	Category    string
	DueDate     *time.Time
	Recurrence  *recurrence.Pattern
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo       *repository.TaskRepository
	categoryRepo   *repository.CategoryRepository
	activity       ActivityRecorder
	materializer   *Materializer
	initialHorizon int
	now            func() time.Time
}

func NewTaskService(
	taskRepo *repository.TaskRepository,
	categoryRepo *repository.CategoryRepository,
	activity ActivityRecorder,
	materializer *Materializer,
	initialHorizon int,
) *TaskService {
	return &TaskService{
		taskRepo:       taskRepo,
		categoryRepo:   categoryRepo,
		activity:       activity,
		materializer:   materializer,
		initialHorizon: initialHorizon,
		now:            time.Now,
	}
}

// CreateTask stores a task. Recurring tasks are validated up front and
// materialized over the initial horizon; a materialization failure is only
// logged since the scheduled refresh retries it.
func (s *TaskService) CreateTask(ctx context.Context, user *model.User, input TaskInput) (*model.Task, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if input.Recurrence != nil {
		if err := input.Recurrence.Validate(); err != nil {
			return nil, err
		}
	}

	var categoryID *uint
	if input.Category != "" {
		category, err := s.categoryRepo.GetOrCreate(ctx, user.ID, input.Category)
		if err != nil {
			return nil, err
		}
		if category != nil {
			categoryID = &category.ID
		}
	}

	task := model.Task{
		UserID:      user.ID,
		CategoryID:  categoryID,
		Title:       input.Title,
		Description: input.Description,
		DueDate:     input.DueDate,
	}

	if input.Recurrence != nil {
		task.IsRecurring = true
		task.RecurrenceActive = true
		task.SetPattern(*input.Recurrence)
		if task.DueDate == nil {
			today := s.materializer.Today()
			task.DueDate = &today
		}
	}

	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}

	if task.IsRecurring {
		created, err := s.materializer.Materialize(ctx, &task, s.initialHorizon)
		if err != nil {
			log.Printf("[warn] initial materialize task %d: %v", task.ID, err)
		} else {
			log.Printf("[info] task %d materialized %d instance(s)", task.ID, len(created))
		}
	}

	return &task, nil
}

func (s *TaskService) ListActive(ctx context.Context, user *model.User) ([]model.Task, error) {
	return s.taskRepo.ListActiveOrRecurring(ctx, user.ID)
}

func (s *TaskService) GetTask(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, user.ID, taskID)
	if err != nil {
		return nil, notFound(err)
	}
	return task, nil
}

// CompleteTask marks a one-off task as done. Recurring tasks are completed
// through their instances.
func (s *TaskService) CompleteTask(ctx context.Context, user *model.User, taskID uint, completedAt time.Time) (*model.Task, error) {
	task, err := s.GetTask(ctx, user, taskID)
	if err != nil {
		return nil, err
	}
	if task.IsRecurring {
		return nil, ErrRecurringTask
	}
	if err := s.taskRepo.MarkCompleted(ctx, task, completedAt); err != nil {
		return nil, err
	}
	return task, nil
}

// SetRecurrence replaces the task's recurrence rule, or makes it one-off
// when pattern is nil. Instances already materialized are kept.
func (s *TaskService) SetRecurrence(ctx context.Context, user *model.User, taskID uint, pattern *recurrence.Pattern) (*model.Task, error) {
	if pattern != nil {
		if err := pattern.Validate(); err != nil {
			return nil, err
		}
	}
	task, err := s.GetTask(ctx, user, taskID)
	if err != nil {
		return nil, err
	}

	if pattern == nil {
		task.IsRecurring = false
		task.RecurrenceActive = false
		task.SetPattern(recurrence.Pattern{})
	} else {
		if !task.IsRecurring {
			task.RecurrenceActive = true
		}
		task.IsRecurring = true
		task.SetPattern(*pattern)
		if task.DueDate == nil {
			today := s.materializer.Today()
			task.DueDate = &today
		}
	}
	if err := s.taskRepo.SaveRecurrence(ctx, task); err != nil {
		return nil, err
	}

	if task.IsRecurring && task.RecurrenceActive {
		if _, err := s.materializer.Materialize(ctx, task, s.initialHorizon); err != nil {
			log.Printf("[warn] materialize task %d after rule change: %v", task.ID, err)
		}
	}
	return task, nil
}

// PauseRecurringTask stops future materialization. Instances that already
// exist are kept.
func (s *TaskService) PauseRecurringTask(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	task, err := s.GetTask(ctx, user, taskID)
	if err != nil {
		return nil, err
	}
	if !task.IsRecurring {
		return nil, ErrNotRecurring
	}
	if !task.RecurrenceActive {
		return task, nil
	}
	if err := s.taskRepo.SetRecurrenceActive(ctx, task, false, s.now().UTC()); err != nil {
		return nil, err
	}
	recordActivity(ctx, s.activity, user.ID, &task.ID, model.ActivityPaused, "", s.now())
	return task, nil
}

// ResumeRecurringTask re-enables materialization and backfills the horizon
// starting today. Dates that fell inside the pause are not created.
func (s *TaskService) ResumeRecurringTask(ctx context.Context, user *model.User, taskID uint) (*model.Task, []model.TaskInstance, error) {
	task, err := s.GetTask(ctx, user, taskID)
	if err != nil {
		return nil, nil, err
	}
	if !task.IsRecurring {
		return nil, nil, ErrNotRecurring
	}
	if !task.RecurrenceActive {
		if err := s.taskRepo.SetRecurrenceActive(ctx, task, true, s.now().UTC()); err != nil {
			return nil, nil, err
		}
		recordActivity(ctx, s.activity, user.ID, &task.ID, model.ActivityResumed, "", s.now())
	}

	created, err := s.materializer.Materialize(ctx, task, s.initialHorizon)
	if err != nil {
		log.Printf("[warn] materialize resumed task %d: %v", task.ID, err)
	}
	return task, created, nil
}

// DeleteTask removes a task completely, instances included.
func (s *TaskService) DeleteTask(ctx context.Context, user *model.User, taskID uint) error {
	if err := s.taskRepo.Delete(ctx, user.ID, taskID); err != nil {
		return notFound(err)
	}
	recordActivity(ctx, s.activity, user.ID, &taskID, model.ActivityDeleted, "", s.now())
	return nil
}
