package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
	"recurring-planner/internal/repository"
)

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	taskRepo     *repository.TaskRepository
	instanceRepo *repository.InstanceRepository
	categoryRepo *repository.CategoryRepository
}

func NewReminderService(taskRepo *repository.TaskRepository, instanceRepo *repository.InstanceRepository, categoryRepo *repository.CategoryRepository) *ReminderService {
	return &ReminderService{taskRepo: taskRepo, instanceRepo: instanceRepo, categoryRepo: categoryRepo}
}

func (s *ReminderService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	tasks, err := s.taskRepo.ListActiveOrRecurring(ctx, user.ID)
	if err != nil {
		return "", err
	}

	categories, err := s.categoryRepo.ListByUser(ctx, user.ID)
	if err != nil {
		return "", err
	}
	catNames := make(map[uint]string)
	for _, cat := range categories {
		catNames[cat.ID] = cat.Name
	}

	today := recurrence.DateOf(now)
	todays, err := s.instanceRepo.ListByUser(ctx, user.ID, today, today)
	if err != nil {
		return "", err
	}
	overdue, err := s.instanceRepo.ListUnresolvedBefore(ctx, user.ID, today)
	if err != nil {
		return "", err
	}

	byID := make(map[uint]model.Task, len(tasks))
	var pending []model.Task
	for _, task := range tasks {
		byID[task.ID] = task
		if !task.IsRecurring && !task.IsCompleted {
			pending = append(pending, task)
		}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		switch {
		case pending[i].DueDate == nil && pending[j].DueDate == nil:
			return pending[i].CreatedAt.After(pending[j].CreatedAt)
		case pending[i].DueDate == nil:
			return false
		case pending[j].DueDate == nil:
			return true
		default:
			return pending[i].DueDate.Before(*pending[j].DueDate)
		}
	})

	var builder strings.Builder
	builder.WriteString("📋 <b>Ежедневный отчёт</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("02.01.2006")))

	builder.WriteString("🔥 <b>Текущие задачи</b>\n")
	if len(pending) == 0 {
		builder.WriteString("— нет открытых задач\n")
	} else {
		for _, task := range pending {
			builder.WriteString(formatTask(task, catNames, now))
		}
	}

	builder.WriteString("\n♻️ <b>Регулярные задачи на сегодня</b>\n")
	if len(todays) == 0 {
		builder.WriteString("— на сегодня ничего не запланировано\n")
	} else {
		for _, inst := range todays {
			builder.WriteString(formatInstance(inst, byID[inst.TaskID], catNames))
		}
	}

	if len(overdue) > 0 {
		builder.WriteString("\n⚠️ <b>Просроченные повторы</b>\n")
		for _, inst := range overdue {
			builder.WriteString(formatInstance(inst, byID[inst.TaskID], catNames))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func formatTask(task model.Task, catNames map[uint]string, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	if task.DueDate != nil {
		d := task.DueDate.In(now.Location())
		switch {
		case now.After(d):
			icon = "⚠️"
		case d.Sub(now) <= 48*time.Hour:
			icon = "⏳"
		}
	}

	title := html.EscapeString(strings.TrimSpace(task.Title))
	sb.WriteString(fmt.Sprintf("%s %s", icon, title))
	sb.WriteString(categorySuffix(task.CategoryID, catNames))

	if task.DueDate != nil {
		d := task.DueDate.In(now.Location())
		if now.After(d) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ до %s — <b>просрочено</b>", d.Format("2006-01-02")))
		} else {
			daysLeft := int(d.Sub(now).Hours()/24) + 1
			sb.WriteString(fmt.Sprintf("\n   ⏰ до %s · осталось ≈%d дн.", d.Format("2006-01-02"), daysLeft))
		}
	}

	if task.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(strings.TrimSpace(task.Description))))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func formatInstance(inst model.TaskInstance, task model.Task, catNames map[uint]string) string {
	var sb strings.Builder

	title := strings.TrimSpace(task.Title)
	if title == "" {
		title = fmt.Sprintf("#%d", inst.TaskID)
	}
	sb.WriteString(fmt.Sprintf("♻️ %s", html.EscapeString(title)))
	sb.WriteString(categorySuffix(task.CategoryID, catNames))
	sb.WriteString(fmt.Sprintf("\n   📆 %s · %s", inst.InstanceDate.Format("2006-01-02"), StatusLabel(inst.Status)))
	if rule := task.Pattern().String(); rule != "" {
		sb.WriteString(fmt.Sprintf("\n   🔄 <code>%s</code>", html.EscapeString(rule)))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func categorySuffix(categoryID *uint, catNames map[uint]string) string {
	if categoryID == nil {
		return ""
	}
	name, ok := catNames[*categoryID]
	if !ok {
		return ""
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(trimmed))
}

// StatusLabel renders an instance status for chat messages.
func StatusLabel(status model.InstanceStatus) string {
	switch status {
	case model.InstancePending:
		return "⏳ ожидает"
	case model.InstanceInProgress:
		return "🚧 в работе"
	case model.InstanceCompleted:
		return "✅ выполнено"
	case model.InstanceSkipped:
		return "⏭️ пропущено"
	case model.InstanceCancelled:
		return "✖️ отменено"
	default:
		return string(status)
	}
}
