package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atrium-workspace/backend/internal/models"
	"github.com/atrium-workspace/backend/internal/timeutil"
)

// ErrInvalidPeriod is returned for an out-of-range year or month.
var ErrInvalidPeriod = errors.New("invalid statement period")

// Store loads org-billed activity for a period.
type Store interface {
	OrgOrdersInRange(ctx context.Context, orgID uuid.UUID, start, end time.Time) ([]OrderLineEntry, error)
	OrgBookingsInRange(ctx context.Context, orgID uuid.UUID, start, end time.Time) ([]BookingLineEntry, error)
}

// Statement is one organization's monthly statement. Café charges are money
// (cents) and room charges are credits; the two totals are reported side by
// side and never combined into one figure.
type Statement struct {
	Organization *models.Organization `json:"organization"`
	Year         int                  `json:"year"`
	Month        time.Month           `json:"month"`
	PeriodStart  time.Time            `json:"period_start"`
	PeriodEnd    time.Time            `json:"period_end"`

	Orders           []OrderLineEntry   `json:"orders"`
	Bookings         []BookingLineEntry `json:"bookings"`
	CafeTotalCents   int                `json:"cafe_total_cents"`
	RoomCreditsTotal int                `json:"room_credits_total"`
}

// Aggregator assembles monthly statements in the billing timezone.
type Aggregator struct {
	store Store
	loc   *time.Location
}

// NewAggregator creates a statement aggregator. loc is the billing timezone
// that decides which civil month a transaction falls into.
func NewAggregator(store Store, loc *time.Location) *Aggregator {
	return &Aggregator{store: store, loc: loc}
}

// Build assembles the statement for org and the given civil month. Line items
// are filtered by billing-local month boundaries, so a booking at 23:30 local
// on the last day of the month stays in that month regardless of its UTC date.
func (a *Aggregator) Build(ctx context.Context, org *models.Organization, year int, month time.Month) (*Statement, error) {
	if year < 2000 || year > 2200 || month < time.January || month > time.December {
		return nil, ErrInvalidPeriod
	}
	start, end := timeutil.MonthBounds(year, month, a.loc)

	orders, err := a.store.OrgOrdersInRange(ctx, org.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	bookings, err := a.store.OrgBookingsInRange(ctx, org.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	st := &Statement{
		Organization: org,
		Year:         year,
		Month:        month,
		PeriodStart:  start,
		PeriodEnd:    end,
		Orders:       orders,
		Bookings:     bookings,
	}
	for _, o := range orders {
		st.CafeTotalCents += o.AmountCents
	}
	for _, b := range bookings {
		st.RoomCreditsTotal += b.CreditCost
	}
	return st, nil
}
