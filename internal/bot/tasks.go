package bot

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
	"recurring-planner/internal/service"
)

// handleNewTask creates a task in one line when arguments are given and
// starts the step-by-step dialog otherwise.
func (b *Bot) handleNewTask(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	if args := strings.TrimSpace(msg.CommandArguments()); args != "" {
		input, err := parseNewTaskArgs(args)
		if err != nil {
			return b.sendText(msg.Chat.ID, errorText(err)+"\n\n"+ruleHelpText)
		}
		return b.finishTaskCreation(ctx, user, input, msg.Chat.ID)
	}

	log.Printf("[info] start new task conversation user=%d", msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Создаём новую задачу.\n<b>Шаг 1:</b> как её назвать?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Название не может быть пустым.", cancelKeyboard())
		}
		state.input.Title = text
		state.stage = stageDescription
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ Добавь короткое описание (или нажми «Пропустить»).", skipKeyboard())
	case stageDescription:
		if !isSkipInput(text) {
			state.input.Description = text
		}
		state.stage = stageCategory
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏷 Выбери категорию или отправь свою (можно «Пропустить»).", categoryKeyboard())
	case stageCategory:
		if !isSkipInput(text) {
			state.input.Category = text
		}
		state.stage = stageDate
		return b.sendWithReplyMarkup(msg.Chat.ID, "📅 Дата задачи в формате <code>2025-11-30</code>. Для повторяющейся задачи это первый день повтора (или «Пропустить»).", skipKeyboard())
	case stageDate:
		if !isSkipInput(text) {
			parsed, err := recurrence.ParseDate(text)
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Не могу распознать дату. Используй формат <code>2025-11-30</code> или «Пропустить».", skipKeyboard())
			}
			state.input.DueDate = &parsed
		}
		state.stage = stageRule
		return b.sendWithReplyMarkup(msg.Chat.ID, "🔁 Как повторять задачу? Например <code>weekly days=mon,fri</code>. «Пропустить», если задача разовая.\n\n"+ruleHelpText, skipKeyboard())
	case stageRule:
		if !isSkipInput(text) {
			pattern, err := recurrence.ParseText(text)
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, errorText(err), skipKeyboard())
			}
			state.input.Recurrence = &pattern
		}
		b.clearConversation(msg.From.ID)
		user, err := b.ensureUser(ctx, msg.From)
		if err != nil {
			return err
		}
		return b.finishTaskCreation(ctx, user, state.input, msg.Chat.ID)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Диалог сброшен. Попробуй ещё раз через /newtask.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, user *model.User, input service.TaskInput, chatID int64) error {
	task, err := b.taskSvc.CreateTask(ctx, user, input)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось сохранить задачу. %s", errorText(err)))
	}

	log.Printf("[info] task created id=%d user=%d recurring=%t", task.ID, user.ID, task.IsRecurring)

	var summary strings.Builder
	summary.WriteString("✅ <b>Задача сохранена</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> %d\n", task.ID))
	summary.WriteString(fmt.Sprintf("• <b>Название:</b> %s\n", escape(normalizeTitle(task.Title))))
	if task.Description != "" {
		summary.WriteString(fmt.Sprintf("• <b>Описание:</b> %s\n", escape(task.Description)))
	}
	if task.IsRecurring {
		summary.WriteString(fmt.Sprintf("• <b>Повтор:</b> <code>%s</code> с %s\n", escape(task.Pattern().String()), task.AnchorDate().Format(recurrence.DateLayout)))
		if next, ok := nextOccurrence(*task, b.today()); ok {
			summary.WriteString(fmt.Sprintf("• <b>Ближайший раз:</b> %s\n", next.Format(recurrence.DateLayout)))
		}
	} else if task.DueDate != nil {
		summary.WriteString(fmt.Sprintf("• <b>Дедлайн:</b> %s\n", task.DueDate.Format(recurrence.DateLayout)))
	}

	return b.sendText(chatID, strings.TrimSpace(summary.String()))
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	log.Printf("[info] list tasks for user=%d", user.ID)
	return b.sendTaskList(ctx, msg.Chat.ID, user)
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, user *model.User) error {
	tasks, err := b.taskSvc.ListActive(ctx, user)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось получить задачи: %s", escape(err.Error())))
	}
	catNames := b.categorySvc.Names(ctx, user)

	type categoryGroup struct {
		Name  string
		Tasks []model.Task
	}

	groups := make(map[string]*categoryGroup)
	order := make([]string, 0, len(tasks))
	for _, task := range tasks {
		key, display := normalizedCategory(task.CategoryID, catNames)
		group, ok := groups[key]
		if !ok {
			group = &categoryGroup{Name: display}
			groups[key] = group
			order = append(order, key)
		}
		group.Tasks = append(group.Tasks, task)
	}

	if len(groups) == 0 {
		return b.sendText(chatID, "У тебя нет активных задач. Добавь новую через /newtask.")
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i] == noCategoryKey {
			return false
		}
		if order[j] == noCategoryKey {
			return true
		}
		return strings.Compare(groups[order[i]].Name, groups[order[j]].Name) < 0
	})

	now := b.now()
	today := recurrence.DateOf(now)
	var builder strings.Builder
	builder.WriteString("📋 <b>Текущие задачи</b>\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, key := range order {
		section := groups[key]
		sortTasks(section.Tasks)

		builder.WriteString(fmt.Sprintf("<b>%s</b>\n", section.Name))
		for _, task := range section.Tasks {
			label := fmt.Sprintf("#%d · %s", task.ID, shortTitle(task.Title, 18))
			var row []tgbotapi.InlineKeyboardButton
			if task.IsRecurring {
				builder.WriteString(formatRecurringTask(task, today))
				if task.RecurrenceActive {
					row = append(row, tgbotapi.NewInlineKeyboardButtonData("⏸ "+label, fmt.Sprintf("%s%d", cbPausePrefix, task.ID)))
				} else {
					row = append(row, tgbotapi.NewInlineKeyboardButtonData("▶️ "+label, fmt.Sprintf("%s%d", cbResumePrefix, task.ID)))
				}
			} else {
				builder.WriteString(formatTask(task, now))
				row = append(row, tgbotapi.NewInlineKeyboardButtonData("✅ "+label, fmt.Sprintf("%s%d", cbCompletePrefix, task.ID)))
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData("🗑", fmt.Sprintf("%s%d", cbDeletePrefix, task.ID)))
			buttons = append(buttons, row)
		}
		builder.WriteByte('\n')
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleComplete(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseTaskID(msg.CommandArguments(), "")
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /complete 12")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.completeTask(ctx, msg.Chat.ID, user, taskID)
}

func (b *Bot) completeTask(ctx context.Context, chatID int64, user *model.User, taskID uint) error {
	task, err := b.taskSvc.CompleteTask(ctx, user, taskID, b.now())
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}
	log.Printf("[info] task completed id=%d user=%d", task.ID, user.ID)
	return b.sendText(chatID, fmt.Sprintf("✅ Задача «%s» выполнена.", escape(normalizeTitle(task.Title))))
}

func (b *Bot) handlePause(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseTaskID(msg.CommandArguments(), "")
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /pause 12")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.pauseTask(ctx, msg.Chat.ID, user, taskID)
}

func (b *Bot) pauseTask(ctx context.Context, chatID int64, user *model.User, taskID uint) error {
	task, err := b.taskSvc.PauseRecurringTask(ctx, user, taskID)
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}
	return b.sendText(chatID, fmt.Sprintf("⏸ Повтор задачи «%s» приостановлен. Уже созданные дни остались на месте.", escape(normalizeTitle(task.Title))))
}

func (b *Bot) handleResume(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseTaskID(msg.CommandArguments(), "")
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /resume 12")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.resumeTask(ctx, msg.Chat.ID, user, taskID)
}

func (b *Bot) resumeTask(ctx context.Context, chatID int64, user *model.User, taskID uint) error {
	task, created, err := b.taskSvc.ResumeRecurringTask(ctx, user, taskID)
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}
	return b.sendText(chatID, fmt.Sprintf("▶️ Повтор задачи «%s» возобновлён, запланировано дней: %d.", escape(normalizeTitle(task.Title)), len(created)))
}

// handleRule replaces the recurrence of a task: /rule 12 weekly days=mon,
// or /rule 12 off to make it one-off.
func (b *Bot) handleRule(ctx context.Context, msg *tgbotapi.Message) error {
	rawID, ruleText, _ := strings.Cut(strings.TrimSpace(msg.CommandArguments()), " ")
	taskID, err := parseTaskID(rawID, "")
	if err != nil || strings.TrimSpace(ruleText) == "" {
		return b.sendText(msg.Chat.ID, "Формат: /rule 12 weekly days=mon,fri или /rule 12 off\n\n"+ruleHelpText)
	}

	var pattern *recurrence.Pattern
	if !isOneOffRule(ruleText) {
		p, err := recurrence.ParseText(ruleText)
		if err != nil {
			return b.sendText(msg.Chat.ID, errorText(err))
		}
		pattern = &p
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	task, err := b.taskSvc.SetRecurrence(ctx, user, taskID, pattern)
	if err != nil {
		return b.sendText(msg.Chat.ID, errorText(err))
	}
	if !task.IsRecurring {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Задача «%s» теперь разовая.", escape(normalizeTitle(task.Title))))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🔄 Новое правило для «%s»: <code>%s</code>", escape(normalizeTitle(task.Title)), escape(task.Pattern().String())))
}

// handleDelete asks for confirmation before removing a task and its days.
func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseTaskID(msg.CommandArguments(), "")
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /delete 12")
	}
	return b.askDeleteConfirmation(ctx, msg.Chat.ID, msg.From, taskID)
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	task, err := b.taskSvc.GetTask(ctx, user, taskID)
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}

	text := fmt.Sprintf("Удалить задачу «%s» (#%d)?", escape(normalizeTitle(task.Title)), task.ID)
	if task.IsRecurring {
		text += "\nВсе её запланированные дни тоже будут удалены."
	}
	b.setConfirmation(from.ID, task.ID)
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, taskID uint) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		user, err := b.ensureUser(ctx, msg.From)
		if err != nil {
			return err
		}
		if err := b.taskSvc.DeleteTask(ctx, user, taskID); err != nil {
			return b.sendText(msg.Chat.ID, errorText(err))
		}
		log.Printf("[info] task deleted id=%d user=%d", taskID, user.ID)
		return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Задача #%d удалена.", taskID))
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Удаление отменено.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Подтверди или отмени удаление задачи.", confirmKeyboard())
	}
}

func (b *Bot) handleCategories(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	categories, err := b.categorySvc.List(ctx, user)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось получить категории: %s", escape(err.Error())))
	}
	if len(categories) == 0 {
		return b.sendText(msg.Chat.ID, "Категории пока пусты. Добавь их при создании задачи.")
	}
	var builder strings.Builder
	builder.WriteString("📂 <b>Категории</b>\n")
	for _, cat := range categories {
		builder.WriteString(fmt.Sprintf("• %s\n", categoryLabel(cat.Name)))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTask):
		return true, b.handleNewTask(ctx, msg)
	case strings.ToLower(menuLabelTasks):
		return true, b.handleListTasks(ctx, msg)
	case strings.ToLower(menuLabelToday):
		return true, b.handleToday(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}
