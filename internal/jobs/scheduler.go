package jobs

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/atrium-workspace/backend/config"
)

// Scheduler drives the job runner on cron schedules in the billing timezone,
// so "midnight on the first" means midnight where billing happens.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler registers the runner's jobs per the configured schedules.
func NewScheduler(runner *Runner, cfg config.JobsConfig, loc *time.Location, logger *zap.Logger) (*Scheduler, error) {
	c := cron.New(cron.WithLocation(loc))

	if _, err := c.AddFunc(cfg.CreditReset, runner.ResetMonthlyCredits); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc(cfg.CreditReset, runner.EnqueueStatementArchives); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc(cfg.CompleteBookings, runner.CompleteFinishedBookings); err != nil {
		return nil, err
	}

	logger.Info("cron jobs registered",
		zap.String("credit_reset", cfg.CreditReset),
		zap.String("complete_bookings", cfg.CompleteBookings),
		zap.String("timezone", loc.String()))
	return &Scheduler{cron: c, logger: logger}, nil
}

// Start begins the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("cron scheduler stopped")
}
