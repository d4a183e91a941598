package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
	"recurring-planner/internal/repository"
)

type testEnv struct {
	now         time.Time
	tasks       *repository.TaskRepository
	instances   *repository.InstanceRepository
	activity    *repository.ActivityRepository
	categories  *repository.CategoryRepository
	materialize *Materializer
	taskSvc     *TaskService
	instanceSvc *InstanceService
	user        *model.User
}

func newTestEnv(t *testing.T, today string) *testEnv {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "planner.db"), false)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	env := &testEnv{
		now:        day(t, today).Add(9 * time.Hour),
		tasks:      repository.NewTaskRepository(db),
		instances:  repository.NewInstanceRepository(db),
		activity:   repository.NewActivityRepository(db),
		categories: repository.NewCategoryRepository(db),
	}
	clock := func() time.Time { return env.now }

	env.materialize = NewMaterializer(env.tasks, env.instances, env.activity, time.UTC)
	env.materialize.now = clock
	env.taskSvc = NewTaskService(env.tasks, env.categories, env.activity, env.materialize, 3)
	env.taskSvc.now = clock
	env.instanceSvc = NewInstanceService(env.instances, env.tasks, env.activity)
	env.instanceSvc.now = clock

	user, err := repository.NewUserRepository(db).UpsertFromTelegram(context.Background(), 42, "Ada", "", "ada")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	env.user = user
	return env
}

func (e *testEnv) setToday(t *testing.T, raw string) {
	t.Helper()
	e.now = day(t, raw).Add(9 * time.Hour)
}

func (e *testEnv) instanceDates(t *testing.T, taskID uint) []string {
	t.Helper()
	instances, err := e.instances.ListByTask(context.Background(), taskID)
	if err != nil {
		t.Fatalf("ListByTask: %v", err)
	}
	out := make([]string, len(instances))
	for i, inst := range instances {
		out[i] = inst.InstanceDate.Format(recurrence.DateLayout)
	}
	return out
}

func day(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := recurrence.ParseDate(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return d
}

func mustPattern(t *testing.T, text string) *recurrence.Pattern {
	t.Helper()
	p, err := recurrence.ParseText(text)
	if err != nil {
		t.Fatalf("ParseText(%q): %v", text, err)
	}
	return &p
}

func assertStrings(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
