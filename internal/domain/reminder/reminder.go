// internal/domain/reminder/reminder.go
package reminder

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"habit_reminder_service/internal/domain/schedule"

	"github.com/google/uuid"
)

// Kind determines which scheduling fields of a Reminder are meaningful.
type Kind string

const (
	KindRecurring Kind = "recurring"
	KindOneTime   Kind = "one_time"
)

// Tone parametrizes the generated message text.
type Tone string

const (
	ToneMotivational Tone = "motivational"
	ToneFriendly     Tone = "friendly"
	ToneDirect       Tone = "direct"
	ToneFunny        Tone = "funny"
)

func (t Tone) Valid() bool {
	switch t {
	case ToneMotivational, ToneFriendly, ToneDirect, ToneFunny:
		return true
	}
	return false
}

// Method is the configured delivery method of a reminder.
type Method string

const (
	MethodTelegram Method = "telegram"
	MethodEmail    Method = "email"
	MethodBoth     Method = "both"
)

// Channel is a single delivery medium. Notification log entries are keyed by channel.
type Channel string

const (
	ChannelChat  Channel = "telegram"
	ChannelEmail Channel = "email"
)

// Channels expands the method into the ordered list of channels to attempt.
func (m Method) Channels() []Channel {
	switch m {
	case MethodTelegram:
		return []Channel{ChannelChat}
	case MethodEmail:
		return []Channel{ChannelEmail}
	case MethodBoth:
		return []Channel{ChannelChat, ChannelEmail}
	}
	return nil
}

func (m Method) Valid() bool {
	return len(m.Channels()) > 0
}

const (
	DefaultEmoji       = "🔔"
	DefaultTone        = ToneFriendly
	MinIntervalMinutes = 15
	MaxIntervalMinutes = 1440
	MaxTitleLength     = 200
)

// Reminder corresponds to the 'reminders' table.
type Reminder struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Kind   Kind
	Title  string
	Emoji  string
	Tone   Tone

	// Recurring only.
	IntervalMinutes  sql.NullInt32
	ActiveHoursStart sql.NullString // "HH:MM" local time of day
	ActiveHoursEnd   sql.NullString
	SkipWeekends     bool

	// One-time only.
	ScheduledFor sql.NullTime

	NextScheduledAt time.Time
	LastSentAt      sql.NullTime

	IsActive   bool
	IsPaused   bool
	ArchivedAt sql.NullTime

	Method    Method
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *Reminder) IsRecurring() bool { return r.Kind == KindRecurring }

// Marker returns the reminder's emoji, falling back to the default bell.
func (r *Reminder) Marker() string {
	if e := strings.TrimSpace(r.Emoji); e != "" {
		return e
	}
	return DefaultEmoji
}

// FallbackMessage is the deterministic text used when no generated text is available.
func (r *Reminder) FallbackMessage() string {
	return r.Marker() + " " + r.Title
}

// IsArchived reports whether the reminder reached its terminal state.
func (r *Reminder) IsArchived() bool { return r.ArchivedAt.Valid }

// Eligible reports whether the reminder may be dispatched at now.
func (r *Reminder) Eligible(now time.Time) bool {
	return r.IsActive && !r.IsPaused && !r.ArchivedAt.Valid && !r.NextScheduledAt.After(now)
}

// DueAt is the instant the staleness grace period is measured from for one-time reminders.
func (r *Reminder) DueAt() time.Time {
	if r.ScheduledFor.Valid {
		return r.ScheduledFor.Time
	}
	return r.NextScheduledAt
}

// Validate checks the structural invariants of a reminder.
func (r *Reminder) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidReminder)
	}
	if utf8.RuneCountInString(r.Title) > MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidReminder, MaxTitleLength)
	}
	if !r.Tone.Valid() {
		return fmt.Errorf("%w: unknown tone %q", ErrInvalidReminder, r.Tone)
	}
	if !r.Method.Valid() {
		return fmt.Errorf("%w: unknown notification method %q", ErrInvalidReminder, r.Method)
	}

	switch r.Kind {
	case KindRecurring:
		if !r.IntervalMinutes.Valid || r.ScheduledFor.Valid {
			return fmt.Errorf("%w: recurring reminder needs an interval and no scheduled time", ErrInvalidReminder)
		}
		if r.IntervalMinutes.Int32 < MinIntervalMinutes || r.IntervalMinutes.Int32 > MaxIntervalMinutes {
			return fmt.Errorf("%w: interval must be between %d and %d minutes", ErrInvalidReminder, MinIntervalMinutes, MaxIntervalMinutes)
		}
		if r.ActiveHoursStart.Valid != r.ActiveHoursEnd.Valid {
			return fmt.Errorf("%w: active hours need both start and end", ErrInvalidReminder)
		}
		if r.ActiveHoursStart.Valid {
			w, err := schedule.ParseWindow(r.ActiveHoursStart.String, r.ActiveHoursEnd.String)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidReminder, err)
			}
			if w.Start == nil || w.End == nil || w.Start.Minutes() >= w.End.Minutes() {
				return fmt.Errorf("%w: active hours must start before they end on the same day", ErrInvalidReminder)
			}
		}
	case KindOneTime:
		if !r.ScheduledFor.Valid || r.IntervalMinutes.Valid {
			return fmt.Errorf("%w: one-time reminder needs a scheduled time and no interval", ErrInvalidReminder)
		}
		if r.IsPaused {
			return ErrCannotPauseOneTime
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidReminder, r.Kind)
	}
	return nil
}
