package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
)

// InstanceStore is the part of instance storage the materializer needs.
type InstanceStore interface {
	DatesInRange(ctx context.Context, taskID uint, from, to time.Time) ([]time.Time, error)
	CreateIfAbsent(ctx context.Context, instance *model.TaskInstance) (bool, error)
}

// RecurringTaskSource lists the tasks a batch run iterates over.
type RecurringTaskSource interface {
	ListRecurring(ctx context.Context) ([]model.Task, error)
}

// ActivityRecorder appends to the activity history.
type ActivityRecorder interface {
	Record(ctx context.Context, record *model.ActivityRecord) error
}

// RunSummary describes one batch materialization run.
type RunSummary struct {
	Tasks   int
	Created int
	Failed  int
	Skipped int
}

// Materializer keeps task instances materialized over a rolling horizon.
// It holds no state between calls: every run diffs the computed dates
// against what storage already has.
type Materializer struct {
	tasks     RecurringTaskSource
	instances InstanceStore
	activity  ActivityRecorder
	loc       *time.Location
	now       func() time.Time
	newID     func() string
}

func NewMaterializer(tasks RecurringTaskSource, instances InstanceStore, activity ActivityRecorder, loc *time.Location) *Materializer {
	if loc == nil {
		loc = time.Local
	}
	return &Materializer{
		tasks:     tasks,
		instances: instances,
		activity:  activity,
		loc:       loc,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Today returns the current calendar date in the planner's time zone.
func (m *Materializer) Today() time.Time {
	return recurrence.DateOf(m.now().In(m.loc))
}

// Materialize creates the missing instances of task for [today, today+horizonDays]
// and returns the ones it created. Existing instances are left untouched.
func (m *Materializer) Materialize(ctx context.Context, task *model.Task, horizonDays int) ([]model.TaskInstance, error) {
	if horizonDays < 0 {
		return nil, fmt.Errorf("horizon must not be negative, got %d", horizonDays)
	}
	if !task.IsRecurring {
		return nil, nil
	}
	rule, err := task.Pattern().Rule()
	if err != nil {
		return nil, err
	}

	windowStart := m.Today()
	windowEnd := recurrence.AddDays(windowStart, horizonDays)
	anchor := task.AnchorDate()

	existing, err := m.instances.DatesInRange(ctx, task.ID, windowStart, windowEnd)
	if err != nil {
		return nil, &PersistenceError{Op: "load instance dates", TaskID: task.ID, Err: err}
	}
	have := make(map[string]struct{}, len(existing))
	for _, d := range existing {
		have[recurrence.DateOf(d).Format(recurrence.DateLayout)] = struct{}{}
	}

	before := 0
	if rule.MaxOccurrences() > 0 {
		before = rule.OccurrencesBefore(anchor, windowStart)
	}

	var created []model.TaskInstance
	for _, d := range rule.DatesInWindow(anchor, windowStart, windowEnd, before) {
		if _, ok := have[d.Format(recurrence.DateLayout)]; ok {
			continue
		}
		instance := model.TaskInstance{
			ID:           m.newID(),
			TaskID:       task.ID,
			UserID:       task.UserID,
			InstanceDate: d,
			Status:       model.InstancePending,
		}
		// A concurrent run may have inserted the same date; that is not an error.
		ok, err := m.instances.CreateIfAbsent(ctx, &instance)
		if notFound(err) == ErrNotFound {
			log.Printf("[info] task %d deleted during materialization, skipping", task.ID)
			return created, nil
		}
		if err != nil {
			return created, &PersistenceError{Op: "create instance", TaskID: task.ID, Err: err}
		}
		if ok {
			created = append(created, instance)
		}
	}

	if len(created) > 0 {
		m.record(ctx, task, model.ActivityMaterialized, fmt.Sprintf("%d instance(s) up to %s", len(created), windowEnd.Format(recurrence.DateLayout)))
	}
	return created, nil
}

// GenerateDailyRecurringTasks materializes every active recurring task. A
// failing task is logged and left for the next run; it never aborts the batch.
func (m *Materializer) GenerateDailyRecurringTasks(ctx context.Context, horizonDays int) (RunSummary, error) {
	var summary RunSummary
	tasks, err := m.tasks.ListRecurring(ctx)
	if err != nil {
		return summary, &PersistenceError{Op: "list recurring tasks", Err: err}
	}

	for i := range tasks {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		task := &tasks[i]
		summary.Tasks++
		if !task.RecurrenceActive {
			summary.Skipped++
			continue
		}
		created, err := m.Materialize(ctx, task, horizonDays)
		summary.Created += len(created)
		if err != nil {
			summary.Failed++
			log.Printf("[warn] materialize task %d: %v", task.ID, err)
		}
	}

	log.Printf("[info] recurring refresh: tasks=%d created=%d failed=%d paused=%d",
		summary.Tasks, summary.Created, summary.Failed, summary.Skipped)
	return summary, nil
}

func (m *Materializer) record(ctx context.Context, task *model.Task, kind model.ActivityKind, detail string) {
	recordActivity(ctx, m.activity, task.UserID, &task.ID, kind, detail, m.now())
}

func recordActivity(ctx context.Context, rec ActivityRecorder, userID uint, taskID *uint, kind model.ActivityKind, detail string, at time.Time) {
	if rec == nil {
		return
	}
	var id *uint
	if taskID != nil {
		v := *taskID
		id = &v
	}
	entry := &model.ActivityRecord{UserID: userID, TaskID: id, Kind: kind, Detail: detail, CreatedAt: at.UTC()}
	if err := rec.Record(ctx, entry); err != nil {
		log.Printf("record activity: %v", err)
	}
}
