// internal/app/sweep_service.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"habit_reminder_service/internal/domain/reminder"
	"habit_reminder_service/internal/domain/schedule"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const DefaultStaleGracePeriod = 24 * time.Hour

// SweepRunner runs one due-reminder sweep. It is what triggers (HTTP, cron, admin command) depend on.
type SweepRunner interface {
	Run(ctx context.Context) (*SweepSummary, error)
}

// SweepSummary is returned to the trigger caller.
type SweepSummary struct {
	Success       bool      `json:"success"`
	Processed     int       `json:"processed"`
	Failed        int       `json:"failed"`
	Skipped       int       `json:"skipped"`
	ArchivedStale int       `json:"archived_stale"`
	Total         int       `json:"total"`
	InProgress    bool      `json:"in_progress"`
	Timestamp     time.Time `json:"timestamp"`
}

// outcome is the state a reminder ended in for one sweep.
type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeSkipped
	outcomeStaleArchived
)

type SweepConfig struct {
	Workers          int
	StaleGracePeriod time.Duration
}

type SweepService struct {
	repo       reminder.Repository
	composer   *MessageComposer
	dispatcher *Dispatcher
	lock       SweepLock
	workers    int
	staleAfter time.Duration
	now        func() time.Time
	logger     *logrus.Entry
}

func NewSweepService(
	repo reminder.Repository,
	composer *MessageComposer,
	dispatcher *Dispatcher,
	lock SweepLock,
	cfg SweepConfig,
	logger *logrus.Entry,
) *SweepService {
	if lock == nil {
		lock = &LocalSweepLock{}
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.StaleGracePeriod <= 0 {
		cfg.StaleGracePeriod = DefaultStaleGracePeriod
	}
	return &SweepService{
		repo:       repo,
		composer:   composer,
		dispatcher: dispatcher,
		lock:       lock,
		workers:    cfg.Workers,
		staleAfter: cfg.StaleGracePeriod,
		now:        time.Now,
		logger:     logger,
	}
}

// Run executes one sweep. It fails only if the lock backend or the due query fails;
// per-reminder errors are counted in the summary.
func (s *SweepService) Run(ctx context.Context) (*SweepSummary, error) {
	release, acquired, err := s.lock.TryAcquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire sweep lock: %w", err)
	}
	now := s.now().UTC()
	if !acquired {
		s.logger.Info("Another sweep is in progress, skipping this invocation")
		return &SweepSummary{Success: true, InProgress: true, Timestamp: now}, nil
	}
	defer release()

	due, err := s.repo.ListDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}

	summary := &SweepSummary{Success: true, Total: len(due), Timestamp: now}
	var mu sync.Mutex
	record := func(o outcome, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err != nil:
			summary.Failed++
		case o == outcomeProcessed:
			summary.Processed++
		case o == outcomeSkipped:
			summary.Skipped++
		case o == outcomeStaleArchived:
			summary.ArchivedStale++
		}
	}

	var g errgroup.Group
	g.SetLimit(s.workers)
	for _, d := range due {
		if ctx.Err() != nil {
			s.logger.WithError(ctx.Err()).Warn("Sweep deadline reached, remaining reminders stay due")
			break
		}
		g.Go(func() error {
			o, err := s.processSafely(ctx, now, d)
			if err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"reminder_id": d.Reminder.ID,
					"user_id":     d.Reminder.UserID,
				}).Error("Failed to process reminder")
			}
			record(o, err)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.WithFields(logrus.Fields{
		"processed":      summary.Processed,
		"failed":         summary.Failed,
		"skipped":        summary.Skipped,
		"archived_stale": summary.ArchivedStale,
		"total":          summary.Total,
	}).Info("Sweep finished")
	return summary, nil
}

// processSafely turns a panic in one reminder's pipeline into an error for that reminder.
func (s *SweepService) processSafely(ctx context.Context, now time.Time, d *reminder.DueReminder) (o outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while processing reminder: %v", p)
		}
	}()
	return s.process(ctx, now, d)
}

func (s *SweepService) process(ctx context.Context, now time.Time, d *reminder.DueReminder) (outcome, error) {
	r := d.Reminder
	logCtx := s.logger.WithFields(logrus.Fields{"reminder_id": r.ID, "kind": r.Kind})

	// The due query already filters these; re-check the snapshot so archived or paused
	// reminders handed back by a lagging read are never sent.
	if !r.Eligible(now) {
		logCtx.Debug("Reminder not eligible, skipping")
		return outcomeSkipped, nil
	}

	var claim func() error
	switch r.Kind {
	case reminder.KindRecurring:
		within, err := schedule.WithinActiveHours(now, d.Owner.Timezone, r.ActiveHoursStart.String, r.ActiveHoursEnd.String)
		if err != nil {
			return outcomeSkipped, fmt.Errorf("check active hours: %w", err)
		}
		if !within {
			logCtx.Debug("Outside active hours, skipping")
			return outcomeSkipped, nil
		}
		if r.SkipWeekends {
			weekend, err := schedule.IsWeekend(now, d.Owner.Timezone)
			if err != nil {
				return outcomeSkipped, fmt.Errorf("check weekend: %w", err)
			}
			if weekend {
				logCtx.Debug("Weekend, skipping")
				return outcomeSkipped, nil
			}
		}

		next, err := schedule.NextRecurring(now, schedule.Recurrence{
			IntervalMinutes: int(r.IntervalMinutes.Int32),
			Timezone:        d.Owner.Timezone,
			ActiveStart:     r.ActiveHoursStart.String,
			ActiveEnd:       r.ActiveHoursEnd.String,
			SkipWeekends:    r.SkipWeekends,
		})
		if err != nil {
			return outcomeSkipped, fmt.Errorf("compute next occurrence: %w", err)
		}
		claim = func() error {
			return s.repo.Reschedule(ctx, reminder.RescheduleCommand{
				ID:              r.ID,
				ExpectedNextAt:  r.NextScheduledAt,
				NextScheduledAt: next,
				LastSentAt:      now,
			})
		}

	case reminder.KindOneTime:
		if now.Sub(r.DueAt()) > s.staleAfter {
			err := s.repo.Archive(ctx, reminder.ArchiveCommand{
				ID:             r.ID,
				ExpectedNextAt: r.NextScheduledAt,
				ArchivedAt:     now,
			})
			if errors.Is(err, reminder.ErrClaimLost) {
				return outcomeSkipped, nil
			}
			if err != nil {
				return outcomeSkipped, fmt.Errorf("archive stale reminder: %w", err)
			}
			logCtx.WithField("scheduled_for", r.DueAt()).Info("Stale one-time reminder archived without sending")
			return outcomeStaleArchived, nil
		}
		claim = func() error {
			return s.repo.Archive(ctx, reminder.ArchiveCommand{
				ID:             r.ID,
				ExpectedNextAt: r.NextScheduledAt,
				ArchivedAt:     now,
				LastSentAt:     sql.NullTime{Time: now, Valid: true},
			})
		}

	default:
		return outcomeSkipped, fmt.Errorf("%w: unknown kind %q", reminder.ErrInvalidReminder, r.Kind)
	}

	// Claim before sending: whoever moves next_scheduled_at (or archives) owns this occurrence.
	if err := claim(); err != nil {
		if errors.Is(err, reminder.ErrClaimLost) {
			logCtx.Info("Reminder claimed by a concurrent sweep, skipping")
			return outcomeSkipped, nil
		}
		return outcomeSkipped, fmt.Errorf("claim reminder: %w", err)
	}

	var last *time.Time
	if r.LastSentAt.Valid {
		last = &r.LastSentAt.Time
	}
	hours, _ := schedule.HoursSince(now, last)
	message := s.composer.Compose(ctx, r, effectiveTone(r, d.Owner), hours)

	if _, err := s.dispatcher.Dispatch(ctx, d, message, now); err != nil {
		return outcomeSkipped, fmt.Errorf("dispatch: %w", err)
	}

	statDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if err := s.repo.IncrementDailyStat(ctx, r.UserID, statDate); err != nil {
		return outcomeSkipped, fmt.Errorf("increment daily stat: %w", err)
	}
	return outcomeProcessed, nil
}
