package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"habit_reminder_service/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// sweepAdmin is the operator surface available to the admin chat.
type sweepAdmin interface {
	IsAdmin(senderID int64) bool
	RunSweep(ctx context.Context, performingAdminID int64) (*app.SweepSummary, error)
}

type adminHandlers struct {
	ctx    context.Context
	admin  sweepAdmin
	logger *logrus.Entry
}

// RegisterAdminHandlers registers handlers for admin commands.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, admin sweepAdmin, baseLogger *logrus.Entry) {
	h := &adminHandlers{ctx: ctx, admin: admin, logger: baseLogger}
	b.Handle("/sweep", h.sweep)
}

func (h *adminHandlers) sweep(c telebot.Context) error {
	handlerLogger := h.logger.WithFields(logrus.Fields{
		"handler":   "/sweep",
		"sender_id": c.Sender().ID,
	})
	handlerLogger.Info("Command received")

	if !h.admin.IsAdmin(c.Sender().ID) {
		handlerLogger.Warn("Unauthorized access attempt")
		return c.Send("Error: you are not allowed to run this command.")
	}

	summary, err := h.admin.RunSweep(h.ctx, c.Sender().ID)
	if err != nil {
		if errors.Is(err, app.ErrAdminNotAuthorized) {
			return c.Send("Error: you are not allowed to run this command.")
		}
		handlerLogger.WithError(err).Error("Manual sweep failed")
		return c.Send(fmt.Sprintf("Sweep failed: %s", err.Error()))
	}

	handlerLogger.WithField("total", summary.Total).Info("Manual sweep finished")
	return c.Send(formatSummary(summary))
}

func formatSummary(s *app.SweepSummary) string {
	if s.InProgress {
		return "Another sweep is already running."
	}
	var b strings.Builder
	b.WriteString("Sweep finished\n")
	b.WriteString(fmt.Sprintf("Due: %d\n", s.Total))
	b.WriteString(fmt.Sprintf("Sent: %d\n", s.Processed))
	b.WriteString(fmt.Sprintf("Skipped: %d\n", s.Skipped))
	b.WriteString(fmt.Sprintf("Archived stale: %d\n", s.ArchivedStale))
	b.WriteString(fmt.Sprintf("Failed: %d", s.Failed))
	return b.String()
}
