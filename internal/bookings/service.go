// Package bookings implements meeting-room reservation: availability,
// conflict-free creation, cancellation.
package bookings

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atrium-workspace/backend/config"
	"github.com/atrium-workspace/backend/internal/billing"
	"github.com/atrium-workspace/backend/internal/credits"
	"github.com/atrium-workspace/backend/internal/models"
	"github.com/atrium-workspace/backend/internal/timeutil"
)

var (
	// ErrInvalidRange is returned for malformed or past time windows.
	ErrInvalidRange = errors.New("invalid booking time range")
	// ErrSlotConflict is returned when the slot overlaps a confirmed booking.
	ErrSlotConflict = errors.New("slot conflicts with an existing booking")
	// ErrInsufficientCredits is returned under the reject overdraft policy.
	ErrInsufficientCredits = errors.New("insufficient credit balance")
	// ErrRoomUnavailable is returned when the room is toggled off.
	ErrRoomUnavailable = errors.New("room is not available for booking")
	// ErrNotFound is returned for a missing room or booking.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when cancelling a non-confirmed booking.
	ErrInvalidTransition = errors.New("booking is not cancellable")
)

// Store persists bookings. CreateConfirmed must be atomic: conflict re-check,
// insert, and credit deduction all commit or all roll back.
type Store interface {
	CreateConfirmed(ctx context.Context, b *models.Booking, deductCredits int) error
	Cancel(ctx context.Context, id uuid.UUID, refundCredits int) (*models.Booking, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListConfirmedForRoom(ctx context.Context, roomID uuid.UUID, from, to time.Time) ([]models.Booking, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Booking, error)
}

// RoomStore loads rooms.
type RoomStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.MeetingRoom, error)
}

// UserStore loads users.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service orchestrates booking creation and cancellation.
type Service struct {
	store  Store
	rooms  RoomStore
	users  UserStore
	policy config.BillingConfig
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a booking service.
func NewService(store Store, rooms RoomStore, users UserStore, policy config.BillingConfig, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		rooms:  rooms,
		users:  users,
		policy: policy,
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}
}

// CreditCost prices a booking: whole billing units (hours, rounded up) times
// the room's hourly rate.
func CreditCost(start, end time.Time, creditCostPerHour int) int {
	hours := int(math.Ceil(end.Sub(start).Hours()))
	return hours * creditCostPerHour
}

// ListAvailableSlots returns hourly slots for the room on the given civil
// date, within the configured booking window. A slot is unavailable when it
// has already started (absolute comparison against now) or overlaps a
// confirmed booking.
func (s *Service) ListAvailableSlots(ctx context.Context, roomID uuid.UUID, date timeutil.CivilDate) ([]models.Slot, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, ErrNotFound
	}

	dayStart, _ := timeutil.DayBounds(date, s.loc)
	windowStart := dayStart.Add(time.Duration(s.policy.SlotWindowStart) * time.Hour)
	windowEnd := dayStart.Add(time.Duration(s.policy.SlotWindowEnd) * time.Hour)

	booked, err := s.store.ListConfirmedForRoom(ctx, roomID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var slots []models.Slot
	for start := windowStart; start.Before(windowEnd); start = start.Add(time.Hour) {
		end := start.Add(time.Hour)
		available := room.IsAvailable && !start.Before(now)
		if available {
			for i := range booked {
				if booked[i].Overlaps(start, end) {
					available = false
					break
				}
			}
		}
		slots = append(slots, models.Slot{Start: start, End: end, Available: available})
	}
	return slots, nil
}

// ListConfirmedForRoomOnDate returns confirmed bookings touching the civil date.
func (s *Service) ListConfirmedForRoomOnDate(ctx context.Context, roomID uuid.UUID, date timeutil.CivilDate) ([]models.Booking, error) {
	from, to := timeutil.DayBounds(date, s.loc)
	return s.store.ListConfirmedForRoom(ctx, roomID, from, to)
}

// ListForUser returns the user's bookings.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Booking, error) {
	return s.store.ListForUser(ctx, userID)
}

// Create books a room for the user. Organization-billed bookings never touch
// the user's credit pool; the organization is invoiced via the monthly
// statement instead.
func (s *Service) Create(ctx context.Context, userID, roomID uuid.UUID, start, end time.Time, billedTo models.BilledTo) (*models.Booking, error) {
	if !end.After(start) {
		return nil, ErrInvalidRange
	}
	if start.Before(s.now()) {
		return nil, ErrInvalidRange
	}

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, ErrNotFound
	}
	if !room.IsAvailable {
		return nil, ErrRoomUnavailable
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrNotFound
	}

	decision, err := billing.Resolve(user, billedTo, billing.KindRoom)
	if err != nil {
		return nil, err
	}

	cost := CreditCost(start, end, room.CreditCostPerHour)

	deduct := 0
	if decision.BilledTo == models.BilledToPersonal {
		if s.policy.Overdraft == config.OverdraftReject && credits.Available(user) < cost {
			return nil, ErrInsufficientCredits
		}
		deduct = cost
	}

	b := &models.Booking{
		UserID:      userID,
		RoomID:      roomID,
		StartTime:   start,
		EndTime:     end,
		CreditsUsed: cost,
		BilledTo:    decision.BilledTo,
		OrgID:       decision.OrgID,
	}
	if err := s.store.CreateConfirmed(ctx, b, deduct); err != nil {
		return nil, err
	}

	if deduct > 0 && credits.Available(user)-deduct < 0 {
		s.logger.Warn("booking pushed balance into overdraft",
			zap.String("user_id", userID.String()),
			zap.Int("balance", credits.Available(user)-deduct))
	}
	return b, nil
}

// Cancel cancels a confirmed booking. The actor must be the booking owner or
// hold the cancel-any capability. Credits are refunded only when the refund
// policy is on and the booking was billed personally.
func (s *Service) Cancel(ctx context.Context, bookingID uuid.UUID, actor *models.User) (*models.Booking, error) {
	b, err := s.store.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != actor.ID && !models.RoleCan(actor.Role, models.CapCancelAny) {
		return nil, billing.ErrUnauthorized
	}

	refund := 0
	if s.policy.RefundOnCancel && b.BilledTo == models.BilledToPersonal {
		refund = b.CreditsUsed
	}
	return s.store.Cancel(ctx, bookingID, refund)
}
