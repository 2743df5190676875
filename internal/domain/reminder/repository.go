// internal/domain/reminder/repository.go
package reminder

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = fmt.Errorf("reminder not found")
var ErrInvalidReminder = fmt.Errorf("invalid reminder")
var ErrCannotPauseOneTime = fmt.Errorf("one-time reminders cannot be paused")

// ErrClaimLost is returned by the conditional transitions when the reminder no longer
// matches the snapshot it was read with (another sweep or a user edit got there first).
var ErrClaimLost = fmt.Errorf("reminder claim lost")

// Owner is the subset of the owning user's record needed to schedule and deliver.
type Owner struct {
	Timezone    string
	ChatID      sql.NullInt64
	Email       string
	DefaultTone Tone
}

// DueReminder is a reminder joined with its owner, as returned by the due query.
type DueReminder struct {
	Reminder *Reminder
	Owner    Owner
}

// RescheduleCommand advances a recurring reminder. It only applies while the stored
// next_scheduled_at still equals ExpectedNextAt and the reminder is eligible.
type RescheduleCommand struct {
	ID              uuid.UUID
	ExpectedNextAt  time.Time
	NextScheduledAt time.Time
	LastSentAt      time.Time
}

// ArchiveCommand retires a reminder permanently. LastSentAt is left untouched when invalid
// (stale reminders that never fired).
type ArchiveCommand struct {
	ID             uuid.UUID
	ExpectedNextAt time.Time
	ArchivedAt     time.Time
	LastSentAt     sql.NullTime
}

// LogRepository appends notification log entries.
type LogRepository interface {
	AppendLog(ctx context.Context, entry *LogEntry) error
}

// Repository defines the store operations over reminders, notification logs and daily stats.
type Repository interface {
	LogRepository

	// ListDue returns eligible reminders with next_scheduled_at <= now, joined with their owners.
	ListDue(ctx context.Context, now time.Time) ([]*DueReminder, error)
	Reschedule(ctx context.Context, cmd RescheduleCommand) error
	Archive(ctx context.Context, cmd ArchiveCommand) error
	// IncrementDailyStat adds one processed reminder to the (user, date) counter.
	IncrementDailyStat(ctx context.Context, userID uuid.UUID, date time.Time) error

	Create(ctx context.Context, r *Reminder) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reminder, error)
	SetPaused(ctx context.Context, id uuid.UUID, paused bool) error
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*Reminder, error)
}
