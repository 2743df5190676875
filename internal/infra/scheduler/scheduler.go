package scheduler

import (
	"context"
	"fmt"
	"time"

	"habit_reminder_service/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SweepScheduler triggers the due-reminder sweep from inside the process, for deployments
// without an external cron calling the HTTP trigger.
type SweepScheduler struct {
	cronEngine *cron.Cron
	sweeper    app.SweepRunner
	logger     *logrus.Entry
	cronSpec   string // e.g. "* * * * *" (every minute)
	jobTimeout time.Duration
}

func NewSweepScheduler(sweeper app.SweepRunner, logger *logrus.Entry, cronSpec string, jobTimeout time.Duration) *SweepScheduler {
	return &SweepScheduler{
		cronEngine: cron.New(cron.WithLocation(time.UTC)),
		sweeper:    sweeper,
		logger:     logger,
		cronSpec:   cronSpec,
		jobTimeout: jobTimeout,
	}
}

func (s *SweepScheduler) Start() error {
	s.logger.Info("Starting sweep scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpec, s.runSweep)
	if err != nil {
		return fmt.Errorf("could not add sweep cron job %q: %w", s.cronSpec, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("spec", s.cronSpec).Info("Sweep scheduler started")
	return nil
}

func (s *SweepScheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	summary, err := s.sweeper.Run(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Error during scheduled sweep")
		return
	}
	if summary.InProgress {
		s.logger.Debug("Scheduled sweep skipped, another sweep holds the lock")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"processed": summary.Processed,
		"failed":    summary.Failed,
		"total":     summary.Total,
	}).Debug("Scheduled sweep completed")
}

func (s *SweepScheduler) Stop() {
	s.logger.Info("Stopping sweep scheduler...")
	ctx := s.cronEngine.Stop() // waits for a running sweep
	<-ctx.Done()
	s.logger.Info("Sweep scheduler gracefully stopped")
}
