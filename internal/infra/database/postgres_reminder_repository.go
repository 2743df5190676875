// internal/infra/database/postgres_reminder_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"habit_reminder_service/internal/domain/reminder"

	"github.com/google/uuid"
)

const reminderColumns = `r.id, r.user_id, r.kind, r.title, r.emoji, r.tone, r.interval_minutes,
       r.active_hours_start, r.active_hours_end, r.skip_weekends, r.scheduled_for,
       r.next_scheduled_at, r.last_sent_at, r.is_active, r.is_paused, r.archived_at,
       r.notification_method, r.created_at, r.updated_at`

type PostgresReminderRepository struct {
	db *sql.DB
}

func NewPostgresReminderRepository(db *sql.DB) *PostgresReminderRepository {
	return &PostgresReminderRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func reminderScanTargets(r *reminder.Reminder) []any {
	return []any{
		&r.ID, &r.UserID, &r.Kind, &r.Title, &r.Emoji, &r.Tone, &r.IntervalMinutes,
		&r.ActiveHoursStart, &r.ActiveHoursEnd, &r.SkipWeekends, &r.ScheduledFor,
		&r.NextScheduledAt, &r.LastSentAt, &r.IsActive, &r.IsPaused, &r.ArchivedAt,
		&r.Method, &r.CreatedAt, &r.UpdatedAt,
	}
}

func scanReminder(s rowScanner) (*reminder.Reminder, error) {
	r := &reminder.Reminder{}
	if err := s.Scan(reminderScanTargets(r)...); err != nil {
		return nil, err
	}
	return r, nil
}

func (repo *PostgresReminderRepository) ListDue(ctx context.Context, now time.Time) ([]*reminder.DueReminder, error) {
	query := `SELECT ` + reminderColumns + `,
       u.timezone, u.telegram_chat_id, u.email, u.default_tone
FROM reminders r
JOIN users u ON u.id = r.user_id
WHERE r.is_active AND NOT r.is_paused AND r.archived_at IS NULL AND r.next_scheduled_at <= $1
ORDER BY r.next_scheduled_at`

	rows, err := repo.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("error querying due reminders: %w", err)
	}
	defer rows.Close()

	due := make([]*reminder.DueReminder, 0)
	for rows.Next() {
		r := &reminder.Reminder{}
		var owner reminder.Owner
		targets := append(reminderScanTargets(r), &owner.Timezone, &owner.ChatID, &owner.Email, &owner.DefaultTone)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("error scanning due reminder row: %w", err)
		}
		due = append(due, &reminder.DueReminder{Reminder: r, Owner: owner})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due reminder rows: %w", err)
	}
	return due, nil
}

// Reschedule is the claim for a recurring occurrence: it only matches while the row still
// carries the next_scheduled_at the sweep read.
func (repo *PostgresReminderRepository) Reschedule(ctx context.Context, cmd reminder.RescheduleCommand) error {
	query := `UPDATE reminders
SET next_scheduled_at = $1, last_sent_at = $2, updated_at = NOW()
WHERE id = $3 AND next_scheduled_at = $4 AND is_active AND NOT is_paused AND archived_at IS NULL`

	res, err := repo.db.ExecContext(ctx, query, cmd.NextScheduledAt, cmd.LastSentAt, cmd.ID, cmd.ExpectedNextAt)
	if err != nil {
		return fmt.Errorf("error rescheduling reminder: %w", err)
	}
	return claimResult(res)
}

func (repo *PostgresReminderRepository) Archive(ctx context.Context, cmd reminder.ArchiveCommand) error {
	query := `UPDATE reminders
SET is_active = FALSE, archived_at = $1, last_sent_at = COALESCE($2, last_sent_at), updated_at = NOW()
WHERE id = $3 AND next_scheduled_at = $4 AND is_active AND NOT is_paused AND archived_at IS NULL`

	res, err := repo.db.ExecContext(ctx, query, cmd.ArchivedAt, cmd.LastSentAt, cmd.ID, cmd.ExpectedNextAt)
	if err != nil {
		return fmt.Errorf("error archiving reminder: %w", err)
	}
	return claimResult(res)
}

func claimResult(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return reminder.ErrClaimLost
	}
	return nil
}

func (repo *PostgresReminderRepository) AppendLog(ctx context.Context, e *reminder.LogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	query := `INSERT INTO notifications (id, reminder_id, user_id, message, method, status, sent_at, external_id, error_message, attempts)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := repo.db.ExecContext(ctx, query,
		e.ID, e.ReminderID, e.UserID, e.Message, e.Channel, e.Status, e.SentAt, e.ExternalID, e.ErrorMessage, e.Attempts)
	if err != nil {
		return fmt.Errorf("error inserting notification log entry: %w", err)
	}
	return nil
}

func (repo *PostgresReminderRepository) IncrementDailyStat(ctx context.Context, userID uuid.UUID, date time.Time) error {
	query := `INSERT INTO daily_stats (user_id, date, reminders_sent)
VALUES ($1, $2, 1)
ON CONFLICT (user_id, date) DO UPDATE SET reminders_sent = daily_stats.reminders_sent + 1`

	if _, err := repo.db.ExecContext(ctx, query, userID, date.Format("2006-01-02")); err != nil {
		return fmt.Errorf("error incrementing daily stat: %w", err)
	}
	return nil
}

func (repo *PostgresReminderRepository) Create(ctx context.Context, r *reminder.Reminder) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	query := `INSERT INTO reminders (id, user_id, kind, title, emoji, tone, interval_minutes, active_hours_start,
       active_hours_end, skip_weekends, scheduled_for, next_scheduled_at, is_active, is_paused, notification_method)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING created_at, updated_at`

	err := repo.db.QueryRowContext(ctx, query,
		r.ID, r.UserID, r.Kind, r.Title, r.Emoji, r.Tone, r.IntervalMinutes, r.ActiveHoursStart,
		r.ActiveHoursEnd, r.SkipWeekends, r.ScheduledFor, r.NextScheduledAt, r.IsActive, r.IsPaused, r.Method,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating reminder: %w", err)
	}
	return nil
}

func (repo *PostgresReminderRepository) GetByID(ctx context.Context, id uuid.UUID) (*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders r WHERE r.id = $1`
	r, err := scanReminder(repo.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, reminder.ErrNotFound
		}
		return nil, fmt.Errorf("error getting reminder by ID: %w", err)
	}
	return r, nil
}

func (repo *PostgresReminderRepository) SetPaused(ctx context.Context, id uuid.UUID, paused bool) error {
	query := `UPDATE reminders SET is_paused = $1, updated_at = NOW() WHERE id = $2 AND kind = 'recurring'`
	res, err := repo.db.ExecContext(ctx, query, paused, id)
	if err != nil {
		return fmt.Errorf("error updating paused flag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return reminder.ErrNotFound
	}
	return nil
}

func (repo *PostgresReminderRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders r
WHERE r.user_id = $1 AND r.is_active AND r.archived_at IS NULL
ORDER BY r.next_scheduled_at`

	rows, err := repo.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying reminders by user: %w", err)
	}
	defer rows.Close()

	list := make([]*reminder.Reminder, 0)
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning reminder row: %w", err)
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminder rows: %w", err)
	}
	return list, nil
}
