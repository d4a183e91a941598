package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
)

func TestMaterializeIsIdempotent(t *testing.T) {
	env := newTestEnv(t, "2024-01-10")
	ctx := context.Background()

	anchor := day(t, "2024-01-01")
	task := &model.Task{UserID: env.user.ID, Title: "stretch", DueDate: &anchor, IsRecurring: true, RecurrenceActive: true}
	task.SetPattern(*mustPattern(t, "daily/2"))
	if err := env.tasks.Create(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	created, err := env.materialize.Materialize(ctx, task, 6)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("expected 3 instances, got %d", len(created))
	}
	again, err := env.materialize.Materialize(ctx, task, 6)
	if err != nil {
		t.Fatalf("second Materialize: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second run created %d instances", len(again))
	}
	assertStrings(t, env.instanceDates(t, task.ID), "2024-01-11", "2024-01-13", "2024-01-15")
	for _, inst := range created {
		if inst.Status != model.InstancePending || inst.ID == "" {
			t.Fatalf("unexpected instance %+v", inst)
		}
	}
}

func TestMaterializeHonorsCountBeforeWindow(t *testing.T) {
	env := newTestEnv(t, "2024-01-10")
	ctx := context.Background()

	anchor := day(t, "2024-01-08")
	task := &model.Task{UserID: env.user.ID, Title: "course", DueDate: &anchor, IsRecurring: true, RecurrenceActive: true}
	task.SetPattern(*mustPattern(t, "daily count=5"))
	if err := env.tasks.Create(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	if _, err := env.materialize.Materialize(ctx, task, 30); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	assertStrings(t, env.instanceDates(t, task.ID), "2024-01-10", "2024-01-11", "2024-01-12")
}

func TestMaterializeSkipsDeletedTask(t *testing.T) {
	env := newTestEnv(t, "2024-01-10")
	ctx := context.Background()

	anchor := day(t, "2024-01-01")
	task := &model.Task{UserID: env.user.ID, Title: "gone soon", DueDate: &anchor, IsRecurring: true, RecurrenceActive: true}
	task.SetPattern(*mustPattern(t, "daily"))
	if err := env.tasks.Create(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := env.tasks.Delete(ctx, env.user.ID, task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}

	// task still holds the row as it was read before the delete
	created, err := env.materialize.Materialize(ctx, task, 5)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("expected nothing created for a deleted task, got %d", len(created))
	}
	left, err := env.instances.ListByTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("ListByTask: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("orphan instances inserted: %+v", left)
	}
}

func TestMaterializeRejectsNegativeHorizon(t *testing.T) {
	env := newTestEnv(t, "2024-01-10")
	task := &model.Task{ID: 1, IsRecurring: true, RecurrenceActive: true}
	task.SetPattern(*mustPattern(t, "daily"))
	if _, err := env.materialize.Materialize(context.Background(), task, -1); err == nil {
		t.Fatal("expected error for negative horizon")
	}
}

type fakeSource struct {
	tasks []model.Task
}

func (f *fakeSource) ListRecurring(context.Context) ([]model.Task, error) {
	return f.tasks, nil
}

type fakeStore struct {
	failTask  uint
	conflicts bool
	created   map[uint][]string
}

func (f *fakeStore) DatesInRange(_ context.Context, taskID uint, _, _ time.Time) ([]time.Time, error) {
	if taskID == f.failTask {
		return nil, errors.New("disk I/O error")
	}
	return nil, nil
}

func (f *fakeStore) CreateIfAbsent(_ context.Context, instance *model.TaskInstance) (bool, error) {
	if f.conflicts {
		return false, nil
	}
	if f.created == nil {
		f.created = make(map[uint][]string)
	}
	f.created[instance.TaskID] = append(f.created[instance.TaskID], instance.InstanceDate.Format(recurrence.DateLayout))
	return true, nil
}

func recurringTask(t *testing.T, id uint, rule string, anchor string, active bool) model.Task {
	t.Helper()
	d := day(t, anchor)
	task := model.Task{ID: id, UserID: 1, DueDate: &d, IsRecurring: true, RecurrenceActive: active}
	task.SetPattern(*mustPattern(t, rule))
	return task
}

func TestGenerateContinuesPastFailingTask(t *testing.T) {
	source := &fakeSource{tasks: []model.Task{
		recurringTask(t, 1, "daily", "2024-01-01", true),
		recurringTask(t, 2, "daily", "2024-01-01", true),
		recurringTask(t, 3, "weekly days=mon", "2024-01-01", true),
		recurringTask(t, 4, "daily", "2024-01-01", false),
	}}
	store := &fakeStore{failTask: 2}
	m := NewMaterializer(source, store, nil, time.UTC)
	m.now = func() time.Time { return day(t, "2024-01-08") }

	summary, err := m.GenerateDailyRecurringTasks(context.Background(), 6)
	if err != nil {
		t.Fatalf("GenerateDailyRecurringTasks: %v", err)
	}
	want := RunSummary{Tasks: 4, Created: 8, Failed: 1, Skipped: 1}
	if summary != want {
		t.Fatalf("summary = %+v, want %+v", summary, want)
	}
	if len(store.created[1]) != 7 {
		t.Fatalf("task 1 got %v", store.created[1])
	}
	assertStrings(t, store.created[3], "2024-01-08")
	if _, ok := store.created[4]; ok {
		t.Fatal("paused task was materialized")
	}
}

func TestGenerateFailureIsPersistenceError(t *testing.T) {
	task := recurringTask(t, 7, "daily", "2024-01-01", true)
	m := NewMaterializer(&fakeSource{}, &fakeStore{failTask: 7}, nil, time.UTC)
	m.now = func() time.Time { return day(t, "2024-01-08") }

	_, err := m.Materialize(context.Background(), &task, 1)
	var perr *PersistenceError
	if !errors.As(err, &perr) || perr.TaskID != 7 {
		t.Fatalf("expected PersistenceError for task 7, got %v", err)
	}
}

func TestConcurrentInsertIsNotAnError(t *testing.T) {
	task := recurringTask(t, 1, "daily", "2024-01-01", true)
	m := NewMaterializer(&fakeSource{}, &fakeStore{conflicts: true}, nil, time.UTC)
	m.now = func() time.Time { return day(t, "2024-01-08") }

	created, err := m.Materialize(context.Background(), &task, 3)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("expected nothing reported as created, got %d", len(created))
	}
}

func TestTodayUsesConfiguredZone(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	m := NewMaterializer(&fakeSource{}, &fakeStore{}, nil, loc)
	m.now = func() time.Time { return time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC) }
	if got := m.Today().Format(recurrence.DateLayout); got != "2024-01-02" {
		t.Fatalf("Today() = %s, want 2024-01-02", got)
	}
}
