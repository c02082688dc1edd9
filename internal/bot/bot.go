package bot

import (
	"context"
	"html"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"day-organiser/internal/model"
	"day-organiser/internal/repository"
	"day-organiser/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageName
	stageDate
	stageRepeat
	stagePriority
	stageGroup
)

const (
	cbTogglePrefix = "toggle:"
	cbDeletePrefix = "delete:"
)

type conversationState struct {
	stage conversationStage
	date  string
	input service.TaskInput
}

type confirmationRequest struct {
	taskID string
	date   string
}

// Bot is the Telegram front-end of one organiser session.
type Bot struct {
	api           *tgbotapi.BotAPI
	userRepo      *repository.UserRepository
	session       *service.Session
	reminderSvc   *service.ReminderService
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	mu            sync.Mutex
}

func New(token string, userRepo *repository.UserRepository, session *service.Session, reminderSvc *service.ReminderService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "create bot api")
	}

	logrus.Infof("bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:           api,
		userRepo:      userRepo,
		session:       session,
		reminderSvc:   reminderSvc,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	logrus.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				logrus.WithError(err).Warn("handle callback")
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				logrus.WithError(err).Warn("handle message")
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		logrus.WithField("user", msg.From.ID).Infof("command /%s %s", msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if state := b.getConversation(msg.From.ID); state != nil {
		logrus.WithField("user", msg.From.ID).Debugf("conversation step %d", state.stage)
		return b.handleConversation(ctx, msg, state)
	}

	return b.sendText(msg.Chat.ID, "I did not get that. Send /newtask to add a task or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "today":
		return b.handleToday(ctx, msg)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "range":
		return b.handleRange(ctx, msg)
	case "newtask":
		return b.startNewTaskConversation(ctx, msg)
	case "done":
		return b.handleDone(ctx, msg)
	case "undo":
		return b.handleUndo(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "notes":
		return b.handleNotes(ctx, msg)
	case "groups":
		return b.handleGroups(msg)
	case "newgroup":
		return b.handleNewGroup(ctx, msg)
	case "delgroup":
		return b.handleDeleteGroup(ctx, msg)
	case "group":
		return b.handleSelectGroup(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	return b.sendText(msg.Chat.ID, "👋 Hi, "+escape(name)+"!\n<b>I keep your days, recurring chores and groups in order.</b>\n\n"+helpText)
}

const helpText = "Commands:\n" +
	"• /today [YYYY-MM-DD] - what is on a day\n" +
	"• /tasks - open one-off tasks\n" +
	"• /range &lt;from&gt; &lt;to&gt; - tasks stored between two dates\n" +
	"• /newtask - add a task step by step\n" +
	"• /done &lt;id&gt; [date] - complete a task or one occurrence\n" +
	"• /undo &lt;id&gt; [date] - reopen it\n" +
	"• /delete &lt;id&gt; - remove a task\n" +
	"• /notes &lt;date&gt; [text] - read or set day notes\n" +
	"• /groups - group tree\n" +
	"• /newgroup &lt;name&gt; [| parent id] - add a group\n" +
	"• /delgroup &lt;id&gt; - remove a group\n" +
	"• /group &lt;id|all&gt; - choose the active group\n" +
	"• /report - daily summary now\n" +
	"• /cancel - stop the current input"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Help</b>\n"+helpText)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, b.reminderSvc.DailySummary(time.Now()))
}

// SendDailyReports sends the summary to every known chat.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.userRepo.ListAll(ctx)
	if err != nil {
		return err
	}
	text := b.reminderSvc.DailySummary(time.Now())
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		err := b.sendText(user.TelegramID, text)
		if err == nil {
			continue
		}
		log := logrus.WithError(err).WithField("chat", user.TelegramID)
		if !isBlocked(err) {
			log.Warn("send summary")
			continue
		}
		log.Info("chat blocked the bot, forgetting it")
		if err := b.userRepo.Remove(ctx, user.TelegramID); err != nil {
			log.WithError(err).Warn("remove user")
		}
	}
	return nil
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelToday):
		return true, b.handleToday(ctx, msg)
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(ctx, msg)
	case strings.ToLower(menuLabelGroups):
		return true, b.handleGroups(msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		logrus.WithError(err).Debug("callback ack")
	}

	data := cb.Data
	log := logrus.WithFields(logrus.Fields{"user": cb.From.ID, "data": data})
	switch {
	case strings.HasPrefix(data, cbTogglePrefix):
		id, date, ok := parseToggleData(data)
		if !ok {
			return nil
		}
		log.Info("callback toggle")
		return b.toggleAndRefresh(ctx, cb.Message.Chat.ID, id, date)
	case strings.HasPrefix(data, cbDeletePrefix):
		log.Info("callback delete request")
		return b.askDeleteConfirmation(cb.Message.Chat.ID, cb.From.ID, strings.TrimPrefix(data, cbDeletePrefix))
	default:
		return nil
	}
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

// sendError reports a failed operation to the chat and keeps err for the log.
func (b *Bot) sendError(chatID int64, what string, err error) error {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		return b.sendText(chatID, "Task not found.")
	case errors.Is(err, service.ErrGroupNotFound):
		return b.sendText(chatID, "Group not found.")
	case errors.Is(err, service.ErrInvalidDate):
		return b.sendText(chatID, "Dates look like <code>2026-02-03</code>.")
	}
	logrus.WithError(err).Warn(what)
	return b.sendText(chatID, "Could not "+what+": "+escape(err.Error()))
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

// isBlocked reports a 403 from Telegram: the user blocked the bot or left the chat.
func isBlocked(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 403
}

func escape(s string) string {
	return html.EscapeString(s)
}
