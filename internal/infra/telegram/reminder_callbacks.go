package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"habit_reminder_service/internal/app"
	"habit_reminder_service/internal/domain/reminder"
	domainTelegram "habit_reminder_service/internal/domain/telegram"
	"habit_reminder_service/internal/domain/user"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

type callbackAction int

const (
	actionPause callbackAction = iota + 1
	actionToggle
)

type callbackHandlers struct {
	ctx       context.Context
	accounts  accountLinker
	reminders reminderManager
	logger    *logrus.Entry
}

func RegisterReminderCallbacks(ctx context.Context, b *telebot.Bot, accounts accountLinker, reminders reminderManager, baseLogger *logrus.Entry) {
	h := &callbackHandlers{
		ctx:       ctx,
		accounts:  accounts,
		reminders: reminders,
		logger:    baseLogger.WithField("handler_group", "callbacks"),
	}
	b.Handle(telebot.OnCallback, h.handle)
}

// parseCallbackData extracts the action and reminder id from inline button data.
// telebot prefixes data of buttons built with markup.Data with "\f".
func parseCallbackData(data string) (callbackAction, uuid.UUID, error) {
	data = strings.TrimPrefix(data, "\f")

	var action callbackAction
	var raw string
	switch {
	case strings.HasPrefix(data, domainTelegram.CallbackPausePrefix):
		action, raw = actionPause, strings.TrimPrefix(data, domainTelegram.CallbackPausePrefix)
	case strings.HasPrefix(data, domainTelegram.CallbackTogglePrefix):
		action, raw = actionToggle, strings.TrimPrefix(data, domainTelegram.CallbackTogglePrefix)
	default:
		return 0, uuid.Nil, fmt.Errorf("unknown callback data: %q", data)
	}

	// uuid.Parse also accepts braced and urn forms; button data is always the plain form.
	if len(raw) != 36 {
		return 0, uuid.Nil, fmt.Errorf("invalid reminder id in callback: %q", raw)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return 0, uuid.Nil, fmt.Errorf("invalid reminder id in callback: %w", err)
	}
	return action, id, nil
}

func (h *callbackHandlers) handle(c telebot.Context) error {
	chatID := c.Chat().ID
	action, reminderID, err := parseCallbackData(c.Callback().Data)
	if err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Warn("Unhandled callback")
		return c.Respond(&telebot.CallbackResponse{Text: "Unknown action."})
	}
	logCtx := h.logger.WithFields(logrus.Fields{"chat_id": chatID, "reminder_id": reminderID})

	var r *reminder.Reminder
	switch action {
	case actionPause:
		r, err = h.reminders.PauseFromChat(h.ctx, chatID, reminderID)
	case actionToggle:
		var u *user.User
		u, err = h.accounts.UserForChat(h.ctx, chatID)
		if err == nil {
			r, err = h.reminders.TogglePause(h.ctx, u.ID, reminderID)
		}
	}
	if err != nil {
		return c.Respond(&telebot.CallbackResponse{Text: h.callbackError(logCtx, err)})
	}

	if r.IsPaused {
		logCtx.Info("Reminder paused from chat")
		return c.Respond(&telebot.CallbackResponse{Text: fmt.Sprintf("Paused %s. Resume it from /reminders.", r.FallbackMessage())})
	}
	logCtx.Info("Reminder resumed from chat")
	return c.Respond(&telebot.CallbackResponse{Text: fmt.Sprintf("Resumed %s.", r.FallbackMessage())})
}

func (h *callbackHandlers) callbackError(logCtx *logrus.Entry, err error) string {
	switch {
	case errors.Is(err, user.ErrNotFound):
		return "This chat is not connected to an account."
	case errors.Is(err, reminder.ErrNotFound), errors.Is(err, app.ErrNotReminderOwner):
		logCtx.WithError(err).Warn("Callback for a reminder the chat does not own")
		return "Reminder not found."
	case errors.Is(err, reminder.ErrCannotPauseOneTime):
		return "One-time reminders can't be paused."
	case errors.Is(err, app.ErrReminderArchived):
		return "This reminder is no longer active."
	default:
		logCtx.WithError(err).Error("Failed to process reminder callback")
		return "Something went wrong."
	}
}
