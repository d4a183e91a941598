package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
	"recurring-planner/internal/service"
)

const (
	defaultUpcomingDays = 7
	maxUpcomingDays     = 31
)

func (b *Bot) handleToday(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	today := b.today()

	overdue, err := b.instanceSvc.ListOverdue(ctx, user, today)
	if err != nil {
		return b.sendText(msg.Chat.ID, errorText(err))
	}
	todays, err := b.instanceSvc.ListInstances(ctx, user, today, today)
	if err != nil {
		return b.sendText(msg.Chat.ID, errorText(err))
	}
	return b.sendInstances(ctx, msg.Chat.ID, user, fmt.Sprintf("♻️ <b>На сегодня, %s</b>", today.Format("02.01.2006")), append(overdue, todays...))
}

// handleUpcoming lists instances for the next days: /upcoming 14.
func (b *Bot) handleUpcoming(ctx context.Context, msg *tgbotapi.Message) error {
	days := defaultUpcomingDays
	if raw := strings.TrimSpace(msg.CommandArguments()); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxUpcomingDays {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("Укажи число дней от 1 до %d, например /upcoming 14", maxUpcomingDays))
		}
		days = n
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	from := b.today()
	to := recurrence.AddDays(from, days-1)
	instances, err := b.instanceSvc.ListInstances(ctx, user, from, to)
	if err != nil {
		return b.sendText(msg.Chat.ID, errorText(err))
	}
	title := fmt.Sprintf("📆 <b>Ближайшие %d дн.</b> (%s – %s)", days, from.Format("02.01"), to.Format("02.01"))
	return b.sendInstances(ctx, msg.Chat.ID, user, title, instances)
}

func (b *Bot) sendInstances(ctx context.Context, chatID int64, user *model.User, title string, instances []model.TaskInstance) error {
	if len(instances) == 0 {
		return b.sendText(chatID, title+"\n— ничего не запланировано")
	}

	tasks, err := b.taskSvc.ListActive(ctx, user)
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}
	titles := make(map[uint]string, len(tasks))
	for _, task := range tasks {
		titles[task.ID] = task.Title
	}

	today := b.today()
	var builder strings.Builder
	builder.WriteString(title)
	builder.WriteString("\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, inst := range instances {
		builder.WriteString(formatInstance(inst, titles[inst.TaskID], today))
		if inst.Status.Terminal() {
			continue
		}
		label := fmt.Sprintf("%s %s", inst.InstanceDate.Format("02.01"), shortTitle(titles[inst.TaskID], 16))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ "+label, cbDonePrefix+inst.ID),
			tgbotapi.NewInlineKeyboardButtonData("⏭️", cbSkipPrefix+inst.ID),
		))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	if len(buttons) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	}
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	data := cb.Data
	chatID := cb.Message.Chat.ID
	log.Printf("[info] callback user=%d data=%s", cb.From.ID, data)

	user, err := b.ensureUser(ctx, cb.From)
	if err != nil {
		b.ack(cb, "")
		return err
	}

	switch {
	case strings.HasPrefix(data, cbDonePrefix):
		return b.updateInstance(ctx, cb, user, strings.TrimPrefix(data, cbDonePrefix), model.InstanceCompleted)
	case strings.HasPrefix(data, cbSkipPrefix):
		return b.updateInstance(ctx, cb, user, strings.TrimPrefix(data, cbSkipPrefix), model.InstanceSkipped)
	}

	b.ack(cb, "")
	switch {
	case strings.HasPrefix(data, cbCompletePrefix):
		if taskID, err := parseTaskID(data, cbCompletePrefix); err == nil {
			return b.completeTask(ctx, chatID, user, taskID)
		}
	case strings.HasPrefix(data, cbPausePrefix):
		if taskID, err := parseTaskID(data, cbPausePrefix); err == nil {
			return b.pauseTask(ctx, chatID, user, taskID)
		}
	case strings.HasPrefix(data, cbResumePrefix):
		if taskID, err := parseTaskID(data, cbResumePrefix); err == nil {
			return b.resumeTask(ctx, chatID, user, taskID)
		}
	case strings.HasPrefix(data, cbDeletePrefix):
		if taskID, err := parseTaskID(data, cbDeletePrefix); err == nil {
			return b.askDeleteConfirmation(ctx, chatID, cb.From, taskID)
		}
	}
	return nil
}

func (b *Bot) updateInstance(ctx context.Context, cb *tgbotapi.CallbackQuery, user *model.User, instanceID string, status model.InstanceStatus) error {
	inst, err := b.instanceSvc.UpdateStatus(ctx, user, instanceID, service.StatusUpdate{Status: status})
	if err != nil {
		b.ack(cb, "")
		return b.sendText(cb.Message.Chat.ID, errorText(err))
	}
	b.ack(cb, service.StatusLabel(inst.Status))
	log.Printf("[info] instance %s of task %d -> %s", inst.ID, inst.TaskID, inst.Status)
	return nil
}
