package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"habit_reminder_service/internal/domain/email"
	"habit_reminder_service/internal/domain/reminder"
	domainTelegram "habit_reminder_service/internal/domain/telegram"
	"habit_reminder_service/internal/infra/retry"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

var ErrNoChatIdentity = fmt.Errorf("user has no linked telegram chat")
var ErrChannelNotConfigured = fmt.Errorf("delivery channel is not configured")

// ChannelOutcome is the result of one channel attempt within a dispatch.
type ChannelOutcome string

const (
	OutcomeSent    ChannelOutcome = "sent"
	OutcomeFailed  ChannelOutcome = "failed"
	OutcomeSkipped ChannelOutcome = "skipped"
)

type ChannelResult struct {
	Channel    reminder.Channel
	Outcome    ChannelOutcome
	ExternalID string
	Attempts   int
	Err        error
}

// Dispatcher delivers a composed message over a reminder's configured channels.
type Dispatcher struct {
	chat   domainTelegram.Client // nil when the bot is not configured
	mailer email.Sender          // nil when SMTP is not configured
	logs   reminder.LogRepository
	policy retry.Policy
	logger *logrus.Entry
}

func NewDispatcher(chat domainTelegram.Client, mailer email.Sender, logs reminder.LogRepository, policy retry.Policy, logger *logrus.Entry) *Dispatcher {
	return &Dispatcher{
		chat:   chat,
		mailer: mailer,
		logs:   logs,
		policy: policy,
		logger: logger,
	}
}

// Dispatch attempts every channel of the reminder's method independently and appends one
// log entry per attempted channel. Channel failures are reported in the results only;
// the returned error is non-nil only when log entries could not be stored.
func (d *Dispatcher) Dispatch(ctx context.Context, due *reminder.DueReminder, message string, now time.Time) ([]ChannelResult, error) {
	r := due.Reminder
	channels := r.Method.Channels()
	results := make([]ChannelResult, 0, len(channels))
	var storeErrs []error

	for _, ch := range channels {
		logCtx := d.logger.WithFields(logrus.Fields{
			"reminder_id": r.ID,
			"user_id":     r.UserID,
			"channel":     ch,
		})

		var res ChannelResult
		switch ch {
		case reminder.ChannelChat:
			res = d.sendChat(ctx, due, message)
		case reminder.ChannelEmail:
			res = d.sendEmail(ctx, due, message)
		}

		if res.Outcome == OutcomeSkipped {
			logCtx.WithError(res.Err).Info("Channel skipped")
			results = append(results, res)
			continue
		}

		entry := &reminder.LogEntry{
			ID:         uuid.New(),
			ReminderID: r.ID,
			UserID:     r.UserID,
			Message:    message,
			Channel:    ch,
			SentAt:     now,
			Attempts:   res.Attempts,
		}
		if res.Outcome == OutcomeSent {
			entry.Status = reminder.StatusSent
			entry.ExternalID = sql.NullString{String: res.ExternalID, Valid: res.ExternalID != ""}
			logCtx.WithField("external_id", res.ExternalID).Info("Reminder delivered")
		} else {
			entry.Status = reminder.StatusFailed
			entry.ErrorMessage = sql.NullString{String: res.Err.Error(), Valid: true}
			logCtx.WithError(res.Err).WithField("attempts", res.Attempts).Warn("Reminder delivery failed")
		}

		if err := d.logs.AppendLog(ctx, entry); err != nil {
			storeErrs = append(storeErrs, fmt.Errorf("append %s log entry: %w", ch, err))
		}
		results = append(results, res)
	}

	return results, errors.Join(storeErrs...)
}

func (d *Dispatcher) sendChat(ctx context.Context, due *reminder.DueReminder, message string) ChannelResult {
	res := ChannelResult{Channel: reminder.ChannelChat}
	if !due.Owner.ChatID.Valid {
		res.Outcome = OutcomeSkipped
		res.Err = ErrNoChatIdentity
		return res
	}
	if d.chat == nil {
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("telegram: %w", ErrChannelNotConfigured)
		return res
	}

	text := ChatText(due.Reminder, message)
	opts := &telebot.SendOptions{ParseMode: telebot.ModeHTML}
	if due.Reminder.IsRecurring() {
		opts.ReplyMarkup = pauseMarkup(due.Reminder.ID)
	}

	id, err := retry.DoValue(ctx, d.policy, func(context.Context) (int, error) {
		res.Attempts++
		msgID, err := d.chat.SendMessage(due.Owner.ChatID.Int64, text, opts)
		if errors.Is(err, telebot.ErrBlockedByUser) || errors.Is(err, telebot.ErrChatNotFound) {
			return 0, retry.Permanent(err)
		}
		return msgID, err
	})
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		return res
	}
	res.Outcome = OutcomeSent
	res.ExternalID = strconv.Itoa(id)
	return res
}

func (d *Dispatcher) sendEmail(ctx context.Context, due *reminder.DueReminder, message string) ChannelResult {
	res := ChannelResult{Channel: reminder.ChannelEmail}
	if d.mailer == nil {
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("email: %w", ErrChannelNotConfigured)
		return res
	}

	msg := email.Message{
		To:      due.Owner.Email,
		Subject: due.Reminder.FallbackMessage(),
		Text:    message,
	}
	id, err := retry.DoValue(ctx, d.policy, func(ctx context.Context) (string, error) {
		res.Attempts++
		return d.mailer.Send(ctx, msg)
	})
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		return res
	}
	res.Outcome = OutcomeSent
	res.ExternalID = id
	return res
}

// ChatText prefixes the message with the reminder's emoji unless it already starts with it.
// The result is escaped for Telegram's HTML parse mode.
func ChatText(r *reminder.Reminder, message string) string {
	marker := r.Marker()
	if !strings.HasPrefix(message, marker) {
		message = marker + " " + message
	}
	return html.EscapeString(message)
}

func pauseMarkup(id uuid.UUID) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	btnPause := markup.Data("⏸ Pause", domainTelegram.CallbackPausePrefix+id.String())
	markup.Inline(markup.Row(btnPause))
	return markup
}
