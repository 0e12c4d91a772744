package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state of a room booking.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	// BookingCompleted is a terminal display state set by the nightly job
	// once end_time has passed.
	BookingCompleted BookingStatus = "completed"
)

// Booking represents a meeting-room reservation. StartTime/EndTime are
// absolute instants; the interval is half-open [start, end). OrgID is set
// iff BilledTo is organization, and is always derived from the booking
// user's organization.
type Booking struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"user_id"`
	RoomID      uuid.UUID     `json:"room_id"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	CreditsUsed int           `json:"credits_used"`
	Status      BookingStatus `json:"status"`
	BilledTo    BilledTo      `json:"billed_to"`
	OrgID       *uuid.UUID    `json:"org_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Overlaps reports half-open interval overlap with [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return start.Before(b.EndTime) && end.After(b.StartTime)
}

// Slot is one availability window offered to clients for a room and date.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}
