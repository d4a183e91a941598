package service

import (
	"context"
	"errors"
	"testing"

	"recurring-planner/internal/model"
)

func TestUpdateStatusTracksCompletion(t *testing.T) {
	env := newTestEnv(t, "2024-01-01")
	ctx := context.Background()

	task, err := env.taskSvc.CreateTask(ctx, env.user, TaskInput{Title: "read", Recurrence: mustPattern(t, "daily")})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	instances, err := env.instanceSvc.ListInstances(ctx, env.user, env.now, env.now)
	if err != nil {
		t.Fatalf("ListInstances: %v", err)
	}
	if len(instances) != 1 {
		t.Fatalf("expected one instance today, got %d", len(instances))
	}

	minutes := 25
	done, err := env.instanceSvc.UpdateStatus(ctx, env.user, instances[0].ID, StatusUpdate{Status: model.InstanceCompleted, ActualMinutes: &minutes, Notes: "chapter 3"})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if done.CompletedAt == nil || done.ActualMinutes == nil || *done.ActualMinutes != 25 || done.CompletionNotes != "chapter 3" {
		t.Fatalf("completion not stored: %+v", done)
	}
	stored, err := env.taskSvc.GetTask(ctx, env.user, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if stored.LastCompletedAt == nil {
		t.Fatal("task completion time not updated")
	}

	reopened, err := env.instanceSvc.UpdateStatus(ctx, env.user, instances[0].ID, StatusUpdate{Status: model.InstancePending})
	if err != nil {
		t.Fatalf("UpdateStatus pending: %v", err)
	}
	if reopened.CompletedAt != nil {
		t.Fatal("CompletedAt must be cleared when leaving completed")
	}
}

func TestUpdateStatusErrors(t *testing.T) {
	env := newTestEnv(t, "2024-01-01")
	ctx := context.Background()

	if _, err := env.instanceSvc.UpdateStatus(ctx, env.user, "missing", StatusUpdate{Status: model.InstanceSkipped}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := env.instanceSvc.UpdateStatus(ctx, env.user, "missing", StatusUpdate{Status: "archived"}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	negative := -5
	if _, err := env.instanceSvc.UpdateStatus(ctx, env.user, "missing", StatusUpdate{Status: model.InstanceCompleted, ActualMinutes: &negative}); err == nil {
		t.Fatal("expected error for negative minutes")
	}
}

func TestListOverdue(t *testing.T) {
	env := newTestEnv(t, "2024-01-01")
	ctx := context.Background()

	if _, err := env.taskSvc.CreateTask(ctx, env.user, TaskInput{Title: "log weight", Recurrence: mustPattern(t, "daily")}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	instances, err := env.instanceSvc.ListInstances(ctx, env.user, day(t, "2024-01-01"), day(t, "2024-01-04"))
	if err != nil {
		t.Fatalf("ListInstances: %v", err)
	}
	if _, err := env.instanceSvc.UpdateStatus(ctx, env.user, instances[0].ID, StatusUpdate{Status: model.InstanceSkipped}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	env.setToday(t, "2024-01-03")
	overdue, err := env.instanceSvc.ListOverdue(ctx, env.user, env.now)
	if err != nil {
		t.Fatalf("ListOverdue: %v", err)
	}
	if len(overdue) != 1 || overdue[0].InstanceDate.Format("2006-01-02") != "2024-01-02" {
		t.Fatalf("unexpected overdue instances: %+v", overdue)
	}
}
