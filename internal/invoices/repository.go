// Package invoices builds monthly organization statements: every org-billed
// café order and room booking in a civil month, with café money and room
// credits totalled separately.
package invoices

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atrium-workspace/backend/internal/models"
)

// Repository loads org-billed activity for statement generation.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an invoices repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// OrgOrdersInRange returns org-billed café orders created within [start, end),
// excluding cancelled ones, joined with the ordering member's name.
func (r *Repository) OrgOrdersInRange(ctx context.Context, orgID uuid.UUID, start, end time.Time) ([]OrderLineEntry, error) {
	const q = `SELECT o.id, o.created_at, o.total_amount_cents, o.status, u.full_name
		FROM cafe_orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.org_id = $1
		  AND o.billed_to = 'organization'
		  AND o.status <> 'cancelled'
		  AND o.created_at >= $2 AND o.created_at < $3
		ORDER BY o.created_at`
	rows, err := r.pool.Query(ctx, q, orgID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []OrderLineEntry
	for rows.Next() {
		var e OrderLineEntry
		if err := rows.Scan(&e.OrderID, &e.CreatedAt, &e.AmountCents, &e.Status, &e.MemberName); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// OrgBookingsInRange returns org-billed room bookings created within
// [start, end), excluding cancelled ones, joined with room and member names.
// The statement month is the month the booking was made, not the month of the
// slot, so an advance booking bills in the period it was charged.
func (r *Repository) OrgBookingsInRange(ctx context.Context, orgID uuid.UUID, start, end time.Time) ([]BookingLineEntry, error) {
	const q = `SELECT b.id, b.created_at, b.start_time, b.end_time, b.credits_used, b.status, m.name, u.full_name
		FROM room_bookings b
		JOIN meeting_rooms m ON m.id = b.room_id
		JOIN users u ON u.id = b.user_id
		WHERE b.org_id = $1
		  AND b.billed_to = 'organization'
		  AND b.status <> 'cancelled'
		  AND b.created_at >= $2 AND b.created_at < $3
		ORDER BY b.created_at`
	rows, err := r.pool.Query(ctx, q, orgID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []BookingLineEntry
	for rows.Next() {
		var e BookingLineEntry
		if err := rows.Scan(&e.BookingID, &e.CreatedAt, &e.StartTime, &e.EndTime, &e.CreditCost, &e.Status, &e.RoomName, &e.MemberName); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// OrderLineEntry is one café order on a statement.
type OrderLineEntry struct {
	OrderID     uuid.UUID          `json:"order_id"`
	CreatedAt   time.Time          `json:"created_at"`
	AmountCents int                `json:"amount_cents"`
	Status      models.OrderStatus `json:"status"`
	MemberName  string             `json:"member_name"`
}

// BookingLineEntry is one room booking on a statement.
type BookingLineEntry struct {
	BookingID  uuid.UUID            `json:"booking_id"`
	CreatedAt  time.Time            `json:"created_at"`
	StartTime  time.Time            `json:"start_time"`
	EndTime    time.Time            `json:"end_time"`
	CreditCost int                  `json:"credit_cost"`
	Status     models.BookingStatus `json:"status"`
	RoomName   string               `json:"room_name"`
	MemberName string               `json:"member_name"`
}
