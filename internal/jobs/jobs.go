// Package jobs holds the scheduled maintenance work: the monthly credit
// reset, completing finished bookings, and kicking off statement archiving.
package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/atrium-workspace/backend/internal/bookings"
	"github.com/atrium-workspace/backend/internal/credits"
	"github.com/atrium-workspace/backend/internal/organizations"
	"github.com/atrium-workspace/backend/pkg/queue"
)

const jobTimeout = 5 * time.Minute

// Runner executes scheduled jobs. Each job is a no-argument func so it plugs
// straight into cron.AddFunc.
type Runner struct {
	credits  *credits.Repository
	bookings *bookings.Repository
	orgRepo  *organizations.Repository
	queue    *queue.Queue
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewRunner creates a job runner. loc is the billing timezone.
func NewRunner(creditsRepo *credits.Repository, bookingsRepo *bookings.Repository, orgRepo *organizations.Repository, q *queue.Queue, loc *time.Location, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		credits:  creditsRepo,
		bookings: bookingsRepo,
		orgRepo:  orgRepo,
		queue:    q,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

// ResetMonthlyCredits zeroes used_credits for every user. Runs at midnight
// billing-local on the first of the month. Overdrafts carried into the new
// month are forgiven; the allotment starts fresh.
func (r *Runner) ResetMonthlyCredits() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := r.credits.ResetAllUsedCredits(ctx)
	if err != nil {
		r.logger.Error("monthly credit reset failed", zap.Error(err))
		return
	}
	r.logger.Info("monthly credit reset done", zap.Int64("users", n))
}

// CompleteFinishedBookings marks confirmed bookings whose end time has passed
// as completed. Runs nightly.
func (r *Runner) CompleteFinishedBookings() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := r.bookings.CompletePastBookings(ctx, r.now())
	if err != nil {
		r.logger.Error("complete past bookings failed", zap.Error(err))
		return
	}
	if n > 0 {
		r.logger.Info("bookings completed", zap.Int64("count", n))
	}
}

// EnqueueStatementArchives enqueues a statement archive job per organization
// for the previous billing-local month. Runs on the first of the month, after
// the credit reset.
func (r *Runner) EnqueueStatementArchives() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	prev := r.now().In(r.loc).AddDate(0, 0, -1) // yesterday is in the closed month
	year, month := prev.Year(), prev.Month()

	orgs, err := r.orgRepo.List(ctx)
	if err != nil {
		r.logger.Error("list organizations for statements", zap.Error(err))
		return
	}
	for _, org := range orgs {
		if err := r.queue.EnqueueStatementArchive(ctx, org.ID, year, int(month)); err != nil {
			r.logger.Error("enqueue statement archive", zap.Error(err), zap.String("org_id", org.ID.String()))
		}
	}
	r.logger.Info("statement archive jobs enqueued",
		zap.Int("orgs", len(orgs)), zap.Int("year", year), zap.Int("month", int(month)))
}
