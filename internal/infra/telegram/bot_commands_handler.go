// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"habit_reminder_service/internal/app"
	"habit_reminder_service/internal/domain/reminder"
	"habit_reminder_service/internal/domain/schedule"
	domainTelegram "habit_reminder_service/internal/domain/telegram"
	"habit_reminder_service/internal/domain/user"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	msgTryLater     = "Something went wrong on our side. Please try again later."
	msgNotConnected = "This chat is not connected to an account yet. Open Settings in the app and tap \"Connect Telegram\" to get your link."
	usageEvery      = "Usage: /every <minutes> [HH:MM-HH:MM] [weekdays] <title>\nExample: /every 60 09:00-18:00 weekdays Drink water"
	usageOnce       = "Usage: /once <YYYY-MM-DD> <HH:MM> <title>\nExample: /once 2025-03-14 15:30 Call the dentist"
)

var errUsage = errors.New("invalid command arguments")

// accountLinker resolves and links the account behind a chat.
type accountLinker interface {
	LinkTelegram(ctx context.Context, token string, chatID int64, username string) (*user.User, error)
	UserForChat(ctx context.Context, chatID int64) (*user.User, error)
}

// reminderManager is the reminder management used from chat.
type reminderManager interface {
	Create(ctx context.Context, owner *user.User, d app.ReminderDraft) (*reminder.Reminder, error)
	TogglePause(ctx context.Context, userID, reminderID uuid.UUID) (*reminder.Reminder, error)
	PauseFromChat(ctx context.Context, chatID int64, reminderID uuid.UUID) (*reminder.Reminder, error)
	ListForChat(ctx context.Context, chatID int64) (*user.User, []*reminder.Reminder, error)
}

type commandHandlers struct {
	ctx       context.Context
	accounts  accountLinker
	reminders reminderManager
	logger    *logrus.Entry
}

func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	accounts accountLinker,
	reminders reminderManager,
	baseLogger *logrus.Entry,
) {
	h := &commandHandlers{
		ctx:       ctx,
		accounts:  accounts,
		reminders: reminders,
		logger:    baseLogger.WithField("handler_group", "commands"),
	}

	b.Handle("/start", h.start)
	b.Handle("/help", h.help)
	b.Handle("/reminders", h.list)
	b.Handle("/every", h.every)
	b.Handle("/once", h.once)
}

// start links the chat when opened through a connect link (/start <token>).
func (h *commandHandlers) start(c telebot.Context) error {
	chatID := c.Chat().ID
	logCtx := h.logger.WithFields(logrus.Fields{"command": "/start", "chat_id": chatID})
	logCtx.Info("Processing /start command")

	token := strings.TrimSpace(c.Message().Payload)
	if token == "" {
		u, err := h.accounts.UserForChat(h.ctx, chatID)
		switch {
		case err == nil:
			return c.Send(fmt.Sprintf("Welcome back! This chat is connected to %s. Use /reminders to see your reminders.", u.Email))
		case errors.Is(err, user.ErrNotFound):
			return c.Send("Hi! I deliver your RemindWell reminders.\n\n" + msgNotConnected)
		default:
			logCtx.WithError(err).Error("Error resolving user for /start")
			return c.Send(msgTryLater)
		}
	}

	var username string
	if s := c.Sender(); s != nil {
		username = s.Username
	}

	u, err := h.accounts.LinkTelegram(h.ctx, token, chatID, username)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			logCtx.Info("Unknown connect token")
			return c.Send("This connect link is not valid. Generate a new one in Settings.")
		case errors.Is(err, user.ErrConnectTokenExpired):
			logCtx.Info("Expired connect token")
			return c.Send("This connect link has expired. Generate a new one in Settings.")
		case errors.Is(err, user.ErrChatAlreadyLinked):
			logCtx.Warn("Chat already linked to another account")
			return c.Send("This chat is already connected to another account.")
		default:
			logCtx.WithError(err).Error("Failed to link telegram chat")
			return c.Send(msgTryLater)
		}
	}

	logCtx.WithField("user_id", u.ID).Info("Telegram chat linked")
	return c.Send(fmt.Sprintf("✅ Connected! Reminders for %s will arrive in this chat.", u.Email))
}

func (h *commandHandlers) help(c telebot.Context) error {
	var helpText strings.Builder
	helpText.WriteString("Available commands:\n\n")
	helpText.WriteString("/reminders - list your active reminders\n")
	helpText.WriteString("/every <minutes> [HH:MM-HH:MM] [weekdays] <title> - create a recurring reminder\n")
	helpText.WriteString("/once <YYYY-MM-DD> <HH:MM> <title> - create a one-time reminder\n")
	helpText.WriteString("/help - show this message\n\n")
	helpText.WriteString("Tap \"Pause\" under a reminder to stop it until you resume it from /reminders.")
	return c.Send(helpText.String())
}

func (h *commandHandlers) list(c telebot.Context) error {
	chatID := c.Chat().ID
	logCtx := h.logger.WithFields(logrus.Fields{"command": "/reminders", "chat_id": chatID})

	u, list, err := h.reminders.ListForChat(h.ctx, chatID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return c.Send(msgNotConnected)
		}
		logCtx.WithError(err).Error("Failed to list reminders")
		return c.Send(msgTryLater)
	}
	if len(list) == 0 {
		return c.Send("You have no active reminders. Create one with /every or /once.")
	}

	loc, err := schedule.LoadLocation(u.Timezone)
	if err != nil {
		loc = time.UTC
	}

	var response strings.Builder
	markup := &telebot.ReplyMarkup{}
	var rows []telebot.Row
	response.WriteString("Your reminders:\n\n")
	for i, r := range list {
		response.WriteString(fmt.Sprintf("%d. %s\n", i+1, describeReminder(r, loc)))
		if r.IsRecurring() {
			label := fmt.Sprintf("⏸ Pause %d", i+1)
			if r.IsPaused {
				label = fmt.Sprintf("▶ Resume %d", i+1)
			}
			rows = append(rows, markup.Row(markup.Data(label, domainTelegram.CallbackTogglePrefix+r.ID.String())))
		}
	}
	markup.Inline(rows...)

	logCtx.WithField("count", len(list)).Info("Listed reminders")
	return c.Send(response.String(), markup)
}

func (h *commandHandlers) every(c telebot.Context) error {
	chatID := c.Chat().ID
	logCtx := h.logger.WithFields(logrus.Fields{"command": "/every", "chat_id": chatID})

	draft, err := parseEveryArgs(c.Args())
	if err != nil {
		return c.Send(usageEvery)
	}
	u, loc, reply := h.chatUser(chatID, logCtx)
	if reply != "" {
		return c.Send(reply)
	}
	return h.createFor(c, logCtx, u, loc, draft)
}

func (h *commandHandlers) once(c telebot.Context) error {
	chatID := c.Chat().ID
	logCtx := h.logger.WithFields(logrus.Fields{"command": "/once", "chat_id": chatID})

	u, loc, reply := h.chatUser(chatID, logCtx)
	if reply != "" {
		return c.Send(reply)
	}
	draft, err := parseOnceArgs(c.Args(), loc)
	if err != nil {
		return c.Send(usageOnce)
	}
	return h.createFor(c, logCtx, u, loc, draft)
}

// chatUser resolves the account linked to chatID. A non-empty reply means the lookup
// failed and the reply should be sent instead.
func (h *commandHandlers) chatUser(chatID int64, logCtx *logrus.Entry) (*user.User, *time.Location, string) {
	u, err := h.accounts.UserForChat(h.ctx, chatID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil, msgNotConnected
		}
		logCtx.WithError(err).Error("Error resolving user for chat")
		return nil, nil, msgTryLater
	}
	loc, err := schedule.LoadLocation(u.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return u, loc, ""
}

func (h *commandHandlers) createFor(c telebot.Context, logCtx *logrus.Entry, u *user.User, loc *time.Location, draft app.ReminderDraft) error {
	r, err := h.reminders.Create(h.ctx, u, draft)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrScheduledInPast):
			return c.Send("That time is already in the past.")
		case errors.Is(err, reminder.ErrInvalidReminder):
			return c.Send(fmt.Sprintf("Could not create the reminder: %v", err))
		default:
			logCtx.WithError(err).Error("Failed to create reminder")
			return c.Send(msgTryLater)
		}
	}

	logCtx.WithFields(logrus.Fields{"user_id": u.ID, "reminder_id": r.ID}).Info("Reminder created")
	return c.Send(fmt.Sprintf("✅ Created %s\nNext: %s", r.FallbackMessage(), formatLocal(r.NextScheduledAt, loc)))
}

// parseEveryArgs parses: <minutes> [HH:MM-HH:MM] [weekdays] <title...>
func parseEveryArgs(args []string) (app.ReminderDraft, error) {
	if len(args) < 2 {
		return app.ReminderDraft{}, errUsage
	}
	minutes, err := strconv.Atoi(args[0])
	if err != nil {
		return app.ReminderDraft{}, errUsage
	}
	draft := app.ReminderDraft{Kind: reminder.KindRecurring, IntervalMinutes: minutes}

	rest := args[1:]
	for len(rest) > 1 {
		if start, end, ok := strings.Cut(rest[0], "-"); ok && draft.ActiveHoursStart == "" {
			if _, err := schedule.ParseTimeOfDay(start); err == nil {
				if _, err := schedule.ParseTimeOfDay(end); err == nil {
					draft.ActiveHoursStart, draft.ActiveHoursEnd = start, end
					rest = rest[1:]
					continue
				}
			}
		}
		if strings.EqualFold(rest[0], "weekdays") && !draft.SkipWeekends {
			draft.SkipWeekends = true
			rest = rest[1:]
			continue
		}
		break
	}

	draft.Title = strings.Join(rest, " ")
	if strings.TrimSpace(draft.Title) == "" {
		return app.ReminderDraft{}, errUsage
	}
	return draft, nil
}

// parseOnceArgs parses: <YYYY-MM-DD> <HH:MM> <title...> with the time in loc.
func parseOnceArgs(args []string, loc *time.Location) (app.ReminderDraft, error) {
	if len(args) < 3 {
		return app.ReminderDraft{}, errUsage
	}
	at, err := time.ParseInLocation("2006-01-02 15:04", args[0]+" "+args[1], loc)
	if err != nil {
		return app.ReminderDraft{}, errUsage
	}
	return app.ReminderDraft{
		Kind:         reminder.KindOneTime,
		Title:        strings.Join(args[2:], " "),
		ScheduledFor: at,
	}, nil
}

func describeReminder(r *reminder.Reminder, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(r.FallbackMessage())
	if r.IsRecurring() {
		b.WriteString(fmt.Sprintf(" · every %d min", r.IntervalMinutes.Int32))
		if r.ActiveHoursStart.Valid && r.ActiveHoursEnd.Valid {
			b.WriteString(fmt.Sprintf(" · %s-%s", trimSeconds(r.ActiveHoursStart.String), trimSeconds(r.ActiveHoursEnd.String)))
		}
		if r.SkipWeekends {
			b.WriteString(" · weekdays")
		}
		if r.IsPaused {
			b.WriteString(" · paused")
			return b.String()
		}
	}
	b.WriteString(" · next " + formatLocal(r.NextScheduledAt, loc))
	return b.String()
}

func trimSeconds(s string) string {
	if t, err := schedule.ParseTimeOfDay(s); err == nil {
		return t.String()
	}
	return s
}

func formatLocal(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("Mon Jan 2 15:04 MST")
}
