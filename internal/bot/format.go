package bot

import (
	"errors"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
	"recurring-planner/internal/service"
)

const (
	cbDonePrefix     = "done:"
	cbSkipPrefix     = "skip:"
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
	cbPausePrefix    = "pause:"
	cbResumePrefix   = "resume:"
)

const (
	btnSkip          = "⏭️ Пропустить"
	btnConfirm       = "✅ Подтвердить"
	btnCancel        = "↩️ Отмена"
	btnCancelDialog  = "⏪ Отменить ввод"
	noCategory       = "Без категории"
	noCategoryKey    = "__no_category__"
	iconDefault      = "🟢"
	iconDue          = "⏳"
	iconOverdue      = "⚠️"
	iconRecurring    = "♻️"
	iconPaused       = "⏸"
	menuLabelNewTask = "➕ Новая задача"
	menuLabelTasks   = "📋 Задачи"
	menuLabelToday   = "♻️ Сегодня"
	menuLabelHelp    = "ℹ️ Помощь"
)

const helpText = "Команды:\n" +
	"• /newtask — добавить задачу пошагово\n" +
	"• /newtask название | правило | 2025-11-30 | категория — сразу одной строкой\n" +
	"• /tasks — активные и повторяющиеся задачи\n" +
	"• /today — что сделать сегодня, с кнопками «выполнено» и «пропустить»\n" +
	"• /upcoming &lt;дни&gt; — план на ближайшие дни\n" +
	"• /complete &lt;id&gt; — закрыть разовую задачу\n" +
	"• /pause &lt;id&gt;, /resume &lt;id&gt; — приостановить или возобновить повтор\n" +
	"• /rule &lt;id&gt; &lt;правило&gt; — сменить правило повтора (off — сделать разовой)\n" +
	"• /delete &lt;id&gt; — удалить задачу вместе с её днями\n" +
	"• /categories — список категорий\n" +
	"• /report — ежедневный отчёт прямо сейчас\n" +
	"• /cancel — отменить текущий ввод"

const ruleHelpText = "🔁 <b>Правила повтора</b>\n" +
	"<code>daily</code>, <code>daily/2</code> — каждый (второй) день\n" +
	"<code>weekly days=mon,fri</code> — по дням недели\n" +
	"<code>monthly day=31</code> — числа месяца (если дня нет, берём последний)\n" +
	"<code>monthly nth=2:tue</code>, <code>monthly nth=last:fri</code> — n-й день недели\n" +
	"<code>yearly</code> — раз в год от даты задачи\n" +
	"Дополнительно: <code>until=2025-12-31</code>, <code>count=10</code>, <code>except=2025-05-09</code>"

var errEmptyTitle = errors.New("title is required")

// parseNewTaskArgs reads "title | rule | date | category". Everything after
// the title is optional; "-" or "once" leaves the task one-off.
func parseNewTaskArgs(args string) (service.TaskInput, error) {
	parts := strings.Split(args, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	input := service.TaskInput{Title: parts[0]}
	if input.Title == "" {
		return input, errEmptyTitle
	}
	if len(parts) > 1 && !isOneOffRule(parts[1]) {
		pattern, err := recurrence.ParseText(parts[1])
		if err != nil {
			return input, err
		}
		input.Recurrence = &pattern
	}
	if len(parts) > 2 && parts[2] != "" && parts[2] != "-" {
		date, err := recurrence.ParseDate(parts[2])
		if err != nil {
			return input, err
		}
		input.DueDate = &date
	}
	if len(parts) > 3 && parts[3] != "-" {
		input.Category = parts[3]
	}
	return input, nil
}

func isOneOffRule(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "-", "once", "off", "none", "разово", "нет":
		return true
	}
	return false
}

func parseTaskID(data, prefix string) (uint, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(data, prefix))
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if value == 0 {
		return 0, fmt.Errorf("task id must be positive")
	}
	return uint(value), nil
}

// nextOccurrence reports the first date on or after today the task recurs on.
func nextOccurrence(task model.Task, today time.Time) (time.Time, bool) {
	if !task.IsRecurring {
		return time.Time{}, false
	}
	rule, err := task.Pattern().Rule()
	if err != nil {
		return time.Time{}, false
	}
	return rule.Next(task.AnchorDate(), today)
}

// sortTasks orders one-off tasks by due date first, then recurring ones.
func sortTasks(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.IsRecurring != b.IsRecurring {
			return !a.IsRecurring
		}
		if a.DueDate != nil && b.DueDate != nil {
			if !a.DueDate.Equal(*b.DueDate) {
				return a.DueDate.Before(*b.DueDate)
			}
		} else if a.DueDate != nil {
			return true
		} else if b.DueDate != nil {
			return false
		}
		return a.ID < b.ID
	})
}

func formatTask(task model.Task, now time.Time) string {
	var b strings.Builder
	icon := iconDefault
	if task.DueDate != nil {
		d := task.DueDate.In(now.Location())
		if now.After(d) {
			icon = iconOverdue
		} else if d.Sub(now) <= 48*time.Hour {
			icon = iconDue
		}
	}
	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s\n", icon, task.ID, escape(normalizeTitle(task.Title))))
	if task.DueDate != nil {
		d := task.DueDate.In(now.Location())
		if now.After(d) {
			b.WriteString(fmt.Sprintf("   ⏰ Дедлайн: %s — <b>просрочено</b>\n", d.Format("2006-01-02")))
		} else {
			daysLeft := int(d.Sub(now).Hours()/24) + 1
			b.WriteString(fmt.Sprintf("   ⏰ Дедлайн: %s · осталось ≈%d дн.\n", d.Format("2006-01-02"), daysLeft))
		}
	}
	if task.Description != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(task.Description)))
	}
	return b.String()
}

func formatRecurringTask(task model.Task, today time.Time) string {
	var b strings.Builder
	icon := iconRecurring
	if !task.RecurrenceActive {
		icon = iconPaused
	}
	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s\n", icon, task.ID, escape(normalizeTitle(task.Title))))
	b.WriteString(fmt.Sprintf("   🔄 <code>%s</code> с %s\n", escape(task.Pattern().String()), task.AnchorDate().Format(recurrence.DateLayout)))

	switch next, ok := nextOccurrence(task, today); {
	case !task.RecurrenceActive:
		b.WriteString("   ⏸ Повтор приостановлен\n")
	case ok:
		b.WriteString(fmt.Sprintf("   📆 Следующий раз: %s\n", next.Format(recurrence.DateLayout)))
	default:
		b.WriteString("   🏁 Повторов больше не будет\n")
	}
	if task.LastCompletedAt != nil {
		b.WriteString(fmt.Sprintf("   ✅ Последнее выполнение: %s\n", task.LastCompletedAt.In(today.Location()).Format("2006-01-02")))
	}
	return b.String()
}

func formatInstance(inst model.TaskInstance, title string, today time.Time) string {
	icon := iconRecurring
	if !inst.Status.Terminal() && inst.InstanceDate.Before(today) {
		icon = iconOverdue
	}
	if title == "" {
		title = fmt.Sprintf("#%d", inst.TaskID)
	}
	return fmt.Sprintf("%s %s <b>%s</b> · %s\n", icon, inst.InstanceDate.Format("02.01"),
		escape(normalizeTitle(title)), service.StatusLabel(inst.Status))
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func escape(s string) string {
	return html.EscapeString(s)
}

func normalizedCategory(categoryID *uint, catNames map[uint]string) (string, string) {
	if categoryID == nil {
		return noCategoryKey, categoryLabel(noCategory)
	}
	if name, ok := catNames[*categoryID]; ok {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return noCategoryKey, categoryLabel(noCategory)
		}
		return strings.ToLower(trimmed), categoryLabel(trimmed)
	}
	return noCategoryKey, categoryLabel(noCategory)
}

func categoryLabel(name string) string {
	base := strings.TrimSpace(name)
	var icon string
	switch strings.ToLower(base) {
	case "учеба":
		icon = "🎓"
	case "работа":
		icon = "💼"
	case "покупки":
		icon = "🛒"
	case "здоровье":
		icon = "🩺"
	case "личное":
		icon = "🧩"
	case strings.ToLower(noCategory):
		icon = "📁"
	default:
		icon = "🏷️"
	}
	return fmt.Sprintf("%s %s", icon, escape(normalizeTitle(base)))
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "пропустить" || value == "skip"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "подтвердить" || value == "да"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "отмена"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "отменить ввод"
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirm),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelToday),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelTasks),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func categoryKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Учеба"),
			tgbotapi.NewKeyboardButton("Работа"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Покупки"),
			tgbotapi.NewKeyboardButton("Здоровье"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}
