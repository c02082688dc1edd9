package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"day-organiser/internal/localdate"
	"day-organiser/internal/model"
	"day-organiser/internal/recurrence"
	"day-organiser/internal/service"
)

func (b *Bot) handleToday(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	day := b.session.Today()
	if arg := strings.TrimSpace(msg.CommandArguments()); msg.IsCommand() && arg != "" {
		if !localdate.Valid(arg) {
			return b.sendError(msg.Chat.ID, "show day", service.ErrInvalidDate)
		}
		day = arg
	}
	return b.sendDayView(msg.Chat.ID, day)
}

// sendDayView renders a day with one toggle button per task.
func (b *Bot) sendDayView(chatID int64, day string) error {
	today := b.session.Today()
	active := b.session.ActiveGroup()

	var (
		items  []service.DayItem
		hidden []service.HiddenGroupSummary
		notes  string
	)
	b.session.View(func(tx *service.Tx) {
		items = tx.Queries.DayView(day, today, active)
		hidden = tx.Queries.HiddenGroupSummary(active)
		if d, ok := tx.Tasks.GetDay(day); ok {
			notes = d.Notes
		}
	})

	var text strings.Builder
	text.WriteString(fmt.Sprintf("🗓 <b>%s</b>\n", dayTitle(day, today)))
	if notes != "" {
		text.WriteString(fmt.Sprintf("📝 %s\n", escape(notes)))
	}
	text.WriteByte('\n')
	if len(items) == 0 {
		text.WriteString("Nothing planned. Add something with /newtask.\n")
	}

	var buttons [][]tgbotapi.InlineKeyboardButton
	for i, item := range items {
		text.WriteString(service.FormatDayItem(i+1, item, day))
		label := "✅"
		if item.Done {
			label = "↩️"
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %d · %s", label, i+1, shortTitle(item.Task.Name, 22)), toggleData(item.Task.ID, day)),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+item.Task.ID),
		))
	}
	for _, h := range hidden {
		text.WriteString(fmt.Sprintf("\n🙈 %s: %d open", escape(h.Group.Name), h.Total))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(text.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	if len(buttons) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	}
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	active := b.session.ActiveGroup()

	var tasks []*model.Task
	b.session.View(func(tx *service.Tx) {
		visibility := service.NewGroupVisibility(tx.Data.Groups, active)
		for _, t := range tx.Tasks.GetIncompleteTasks() {
			if !t.IsCyclic() && visibility.Visible(t.GroupID) {
				tasks = append(tasks, t)
			}
		}
	})
	if len(tasks) == 0 {
		return b.sendText(msg.Chat.ID, "No open tasks. Add one with /newtask.")
	}
	return b.sendText(msg.Chat.ID, "📋 <b>Open tasks</b>\n\n"+formatTaskLines(tasks))
}

func (b *Bot) handleRange(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		return b.sendText(msg.Chat.ID, "Usage: /range 2026-02-01 2026-02-07")
	}

	var (
		tasks []*model.Task
		err   error
	)
	b.session.View(func(tx *service.Tx) {
		tasks, err = tx.Tasks.GetTasksInRange(args[0], args[1])
	})
	if err != nil {
		return b.sendError(msg.Chat.ID, "list range", err)
	}
	if len(tasks) == 0 {
		return b.sendText(msg.Chat.ID, "Nothing stored in that range.")
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("📆 <b>%s … %s</b>\n\n%s", args[0], args[1], formatTaskLines(tasks)))
}

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	logrus.WithField("user", msg.From.ID).Info("start new task conversation")
	b.setConversation(msg.From.ID, &conversationState{stage: stageName})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New task.\n<b>Step 1:</b> what should it be called?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageName:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The name cannot be empty.", cancelKeyboard())
		}
		state.input.Name = text
		state.stage = stageDate
		return b.sendWithReplyMarkup(msg.Chat.ID, "📅 Which day? Send <code>2026-02-03</code> or skip for today.", skipKeyboard())
	case stageDate:
		state.date = b.session.Today()
		if !isSkipInput(text) {
			if !localdate.Valid(text) {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Dates look like <code>2026-02-03</code>.", skipKeyboard())
			}
			state.date = text
		}
		state.stage = stageRepeat
		return b.sendWithReplyMarkup(msg.Chat.ID,
			"🔁 Does it repeat? <code>daily</code>, <code>weekly mon,thu</code>, <code>monthly</code>, <code>yearly</code>, <code>every 3</code> or skip.",
			repeatKeyboard())
	case stageRepeat:
		repeat, ok := parseRepeat(text, state.date)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "I could not read that schedule. Try <code>weekly mon,wed</code> or <code>every 2</code>.", repeatKeyboard())
		}
		state.input.Repeat = repeat
		state.stage = stagePriority
		return b.sendWithReplyMarkup(msg.Chat.ID, "⚡ Priority?", priorityKeyboard())
	case stagePriority:
		p, ok := parsePriority(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Pick one of the buttons.", priorityKeyboard())
		}
		state.input.Priority = p
		var groups []*model.Group
		b.session.View(func(tx *service.Tx) { groups = tx.Data.Groups })
		if len(groups) == 0 {
			return b.finishTaskCreation(ctx, msg, state)
		}
		state.stage = stageGroup
		return b.sendWithReplyMarkup(msg.Chat.ID, "📂 Which group?", groupKeyboard(groups))
	case stageGroup:
		if !isSkipInput(text) {
			var g *model.Group
			b.session.View(func(tx *service.Tx) { g = tx.Groups.Resolve(text) })
			if g == nil {
				return b.sendText(msg.Chat.ID, "No such group. Pick a button or skip.")
			}
			state.input.GroupID = g.ID
		}
		return b.finishTaskCreation(ctx, msg, state)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Input reset. Start again with /newtask.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	b.clearConversation(msg.From.ID)

	var task *model.Task
	err := b.session.Mutate(ctx, func(tx *service.Tx) error {
		var err error
		task, err = tx.Tasks.AddTask(state.date, state.input)
		return err
	})
	if err != nil {
		return b.sendError(msg.Chat.ID, "save task", err)
	}

	logrus.WithFields(logrus.Fields{"task": task.ID, "user": msg.From.ID, "cyclic": task.IsCyclic()}).Info("task created")

	var summary strings.Builder
	summary.WriteString("✅ <b>Task saved</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> <code>%s</code>\n", shortID(task.ID)))
	summary.WriteString(fmt.Sprintf("• <b>Name:</b> %s\n", escape(task.Name)))
	summary.WriteString(fmt.Sprintf("• <b>Day:</b> %s\n", task.Date))
	if task.Priority != "" {
		summary.WriteString(fmt.Sprintf("• <b>Priority:</b> %s\n", task.Priority))
	}
	if task.IsCyclic() {
		summary.WriteString(fmt.Sprintf("• <b>Repeats:</b> %s\n", escape(recurrence.Describe(task.Repeat))))
	}
	if err := b.sendText(msg.Chat.ID, strings.TrimSpace(summary.String())); err != nil {
		return err
	}
	return b.sendDayView(msg.Chat.ID, task.Date)
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) error {
	ref, day, err := b.taskArgs(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /done &lt;id&gt; [YYYY-MM-DD]")
	}

	var task *model.Task
	err = b.session.Mutate(ctx, func(tx *service.Tx) error {
		id, err := tx.Tasks.ResolveID(ref)
		if err != nil {
			return err
		}
		done := model.StatusDone
		task, err = tx.Tasks.UpdateTask(day, id, service.TaskPatch{StatusID: &done})
		return err
	})
	if err != nil {
		return b.sendError(msg.Chat.ID, "complete task", err)
	}
	if task.IsCyclic() {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("♻️ «%s» done for %s.", escape(task.Name), day))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ «%s» done.", escape(task.Name)))
}

func (b *Bot) handleUndo(ctx context.Context, msg *tgbotapi.Message) error {
	ref, day, err := b.taskArgs(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /undo &lt;id&gt; [YYYY-MM-DD]")
	}

	var (
		task    *model.Task
		changed bool
	)
	err = b.session.Mutate(ctx, func(tx *service.Tx) error {
		id, err := tx.Tasks.ResolveID(ref)
		if err != nil {
			return err
		}
		task, _, _ = tx.Tasks.FindTask(day, id)
		if task.IsCyclic() {
			changed = tx.Tasks.UndoCycleDone(day, id)
			return nil
		}
		if task.StatusID != model.StatusDone {
			return nil
		}
		active := model.StatusActive
		_, err = tx.Tasks.UpdateTask(day, id, service.TaskPatch{StatusID: &active})
		changed = err == nil
		return err
	})
	if err != nil {
		return b.sendError(msg.Chat.ID, "reopen task", err)
	}
	if !changed {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("«%s» was not done for %s.", escape(task.Name), day))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("↩️ «%s» reopened.", escape(task.Name)))
}

// taskArgs splits "<id> [date]" and defaults the date to today.
func (b *Bot) taskArgs(raw string) (string, string, error) {
	args := strings.Fields(raw)
	switch len(args) {
	case 1:
		return args[0], b.session.Today(), nil
	case 2:
		if !localdate.Valid(args[1]) {
			return "", "", service.ErrInvalidDate
		}
		return args[0], args[1], nil
	default:
		return "", "", errors.New("expected an id and an optional date")
	}
}

func (b *Bot) toggleAndRefresh(ctx context.Context, chatID int64, id, day string) error {
	err := b.session.Mutate(ctx, func(tx *service.Tx) error {
		if !tx.Tasks.ToggleTaskComplete(day, id) {
			return errors.Wrapf(service.ErrTaskNotFound, "toggle %s", id)
		}
		return nil
	})
	if err != nil {
		return b.sendError(chatID, "toggle task", err)
	}
	return b.sendDayView(chatID, day)
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	ref := strings.TrimSpace(msg.CommandArguments())
	if ref == "" {
		return b.sendText(msg.Chat.ID, "Usage: /delete &lt;id&gt;")
	}
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	return b.askDeleteConfirmation(msg.Chat.ID, msg.From.ID, ref)
}

func (b *Bot) askDeleteConfirmation(chatID, userID int64, ref string) error {
	var (
		task   *model.Task
		bucket string
		err    error
	)
	b.session.View(func(tx *service.Tx) {
		var id string
		if id, err = tx.Tasks.ResolveID(ref); err == nil {
			task, bucket, _ = tx.Tasks.FindTask("", id)
		}
	})
	if err != nil {
		return b.sendError(chatID, "find task", err)
	}

	b.setConfirmation(userID, confirmationRequest{taskID: task.ID, date: bucket})
	return b.sendWithReplyMarkup(chatID, fmt.Sprintf("Delete «%s» (%s)?", escape(task.Name), bucket), confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		var removed bool
		err := b.session.Mutate(ctx, func(tx *service.Tx) error {
			removed = tx.Tasks.DeleteTask(req.date, req.taskID)
			return nil
		})
		if err != nil {
			return b.sendError(msg.Chat.ID, "delete task", err)
		}
		if !removed {
			return b.sendText(msg.Chat.ID, "Task was already gone.")
		}
		logrus.WithFields(logrus.Fields{"task": req.taskID, "user": msg.From.ID}).Info("task deleted")
		return b.sendText(msg.Chat.ID, "🗑 Task deleted.")
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Kept it.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Confirm or cancel the delete.", confirmKeyboard())
	}
}

func (b *Bot) handleNotes(ctx context.Context, msg *tgbotapi.Message) error {
	day, notes, _ := strings.Cut(strings.TrimSpace(msg.CommandArguments()), " ")
	if day == "" {
		day = b.session.Today()
	}
	if !localdate.Valid(day) {
		return b.sendError(msg.Chat.ID, "read notes", service.ErrInvalidDate)
	}

	notes = strings.TrimSpace(notes)
	if notes == "" {
		var current string
		b.session.View(func(tx *service.Tx) {
			if d, ok := tx.Tasks.GetDay(day); ok {
				current = d.Notes
			}
		})
		if current == "" {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("No notes for %s.", day))
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("📝 <b>%s</b>\n%s", day, escape(current)))
	}

	err := b.session.Mutate(ctx, func(tx *service.Tx) error {
		return tx.Tasks.SetDayNotes(day, notes)
	})
	if err != nil {
		return b.sendError(msg.Chat.ID, "save notes", err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("📝 Notes for %s saved.", day))
}
