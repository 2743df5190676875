package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"habit_reminder_service/internal/domain/reminder"
	"habit_reminder_service/internal/domain/schedule"
	"habit_reminder_service/internal/domain/user"

	"github.com/google/uuid"
)

var ErrNotReminderOwner = fmt.Errorf("reminder belongs to another user")
var ErrReminderArchived = fmt.Errorf("reminder is archived")
var ErrScheduledInPast = fmt.Errorf("scheduled time must be in the future")

// ReminderDraft is the user input for a new reminder.
type ReminderDraft struct {
	Kind             reminder.Kind
	Title            string
	Emoji            string
	Tone             reminder.Tone
	Method           reminder.Method
	IntervalMinutes  int
	ActiveHoursStart string
	ActiveHoursEnd   string
	SkipWeekends     bool
	ScheduledFor     time.Time
}

// ReminderService is the user-facing side of reminder management used by the bot.
type ReminderService struct {
	reminders reminder.Repository
	users     user.Repository
	now       func() time.Time
}

func NewReminderService(rr reminder.Repository, ur user.Repository) *ReminderService {
	return &ReminderService{reminders: rr, users: ur, now: time.Now}
}

// Create validates the draft, applies defaults and stores the reminder with its first
// next_scheduled_at.
func (s *ReminderService) Create(ctx context.Context, owner *user.User, d ReminderDraft) (*reminder.Reminder, error) {
	now := s.now().UTC()

	r := &reminder.Reminder{
		ID:       uuid.New(),
		UserID:   owner.ID,
		Kind:     d.Kind,
		Title:    strings.TrimSpace(d.Title),
		Emoji:    strings.TrimSpace(d.Emoji),
		Tone:     d.Tone,
		Method:   d.Method,
		IsActive: true,
	}
	if r.Emoji == "" {
		r.Emoji = reminder.DefaultEmoji
	}
	if r.Tone == "" {
		r.Tone = owner.DefaultTone
		if !r.Tone.Valid() {
			r.Tone = reminder.DefaultTone
		}
	}
	if r.Method == "" {
		r.Method = reminder.MethodTelegram
	}

	switch d.Kind {
	case reminder.KindRecurring:
		r.IntervalMinutes = sql.NullInt32{Int32: int32(d.IntervalMinutes), Valid: true}
		r.SkipWeekends = d.SkipWeekends
		if d.ActiveHoursStart != "" {
			r.ActiveHoursStart = sql.NullString{String: d.ActiveHoursStart, Valid: true}
		}
		if d.ActiveHoursEnd != "" {
			r.ActiveHoursEnd = sql.NullString{String: d.ActiveHoursEnd, Valid: true}
		}
	case reminder.KindOneTime:
		r.ScheduledFor = sql.NullTime{Time: d.ScheduledFor.UTC(), Valid: true}
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	if r.IsRecurring() {
		next, err := schedule.NextRecurring(now, schedule.Recurrence{
			IntervalMinutes: d.IntervalMinutes,
			Timezone:        owner.Timezone,
			ActiveStart:     d.ActiveHoursStart,
			ActiveEnd:       d.ActiveHoursEnd,
			SkipWeekends:    d.SkipWeekends,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", reminder.ErrInvalidReminder, err)
		}
		r.NextScheduledAt = next
	} else {
		if !r.ScheduledFor.Time.After(now) {
			return nil, ErrScheduledInPast
		}
		r.NextScheduledAt = r.ScheduledFor.Time
	}

	if err := s.reminders.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}
	return r, nil
}

// TogglePause flips the paused flag of a recurring reminder owned by userID.
func (s *ReminderService) TogglePause(ctx context.Context, userID, reminderID uuid.UUID) (*reminder.Reminder, error) {
	r, err := s.ownedReminder(ctx, userID, reminderID)
	if err != nil {
		return nil, err
	}
	return s.setPaused(ctx, r, !r.IsPaused)
}

// PauseFromChat pauses a reminder from its inline button. Pausing twice is not an error.
func (s *ReminderService) PauseFromChat(ctx context.Context, chatID int64, reminderID uuid.UUID) (*reminder.Reminder, error) {
	u, err := s.users.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	r, err := s.ownedReminder(ctx, u.ID, reminderID)
	if err != nil {
		return nil, err
	}
	if r.IsPaused {
		return r, nil
	}
	return s.setPaused(ctx, r, true)
}

// ListForChat returns the active reminders of the user linked to chatID.
func (s *ReminderService) ListForChat(ctx context.Context, chatID int64) (*user.User, []*reminder.Reminder, error) {
	u, err := s.users.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	list, err := s.reminders.ListActiveByUser(ctx, u.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return u, list, nil
}

func (s *ReminderService) ownedReminder(ctx context.Context, userID, reminderID uuid.UUID) (*reminder.Reminder, error) {
	r, err := s.reminders.GetByID(ctx, reminderID)
	if err != nil {
		if errors.Is(err, reminder.ErrNotFound) {
			return nil, reminder.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	if r.UserID != userID {
		return nil, ErrNotReminderOwner
	}
	return r, nil
}

func (s *ReminderService) setPaused(ctx context.Context, r *reminder.Reminder, paused bool) (*reminder.Reminder, error) {
	if !r.IsRecurring() {
		return nil, reminder.ErrCannotPauseOneTime
	}
	if r.IsArchived() || !r.IsActive {
		return nil, ErrReminderArchived
	}
	if err := s.reminders.SetPaused(ctx, r.ID, paused); err != nil {
		return nil, fmt.Errorf("failed to update reminder: %w", err)
	}
	r.IsPaused = paused
	return r, nil
}
