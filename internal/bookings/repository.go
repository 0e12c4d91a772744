package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atrium-workspace/backend/internal/credits"
	"github.com/atrium-workspace/backend/internal/models"
)

// Postgres error code for exclusion constraint violations; raised by the
// bookings no-overlap constraint when two transactions race.
const pgExclusionViolation = "23P01"

const bookingColumns = `id, user_id, room_id, start_time, end_time, credits_used,
	status, billed_to, org_id, created_at, updated_at`

// Repository handles booking persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a bookings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(&b.ID, &b.UserID, &b.RoomID, &b.StartTime, &b.EndTime, &b.CreditsUsed,
		&b.Status, &b.BilledTo, &b.OrgID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByID returns a booking by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM room_bookings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// ListConfirmedForRoom returns confirmed bookings for a room overlapping the
// half-open instant range [from, to).
func (r *Repository) ListConfirmedForRoom(ctx context.Context, roomID uuid.UUID, from, to time.Time) ([]models.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM room_bookings
		WHERE room_id = $1 AND status = 'confirmed' AND start_time < $3 AND end_time > $2
		ORDER BY start_time`
	rows, err := r.pool.Query(ctx, q, roomID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *b)
	}
	return list, rows.Err()
}

// ListForUser returns the user's bookings, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM room_bookings WHERE user_id = $1 ORDER BY start_time DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *b)
	}
	return list, rows.Err()
}

// CreateConfirmed inserts a confirmed booking and, when deductCredits > 0,
// debits the booking user's credits in the same transaction. The room row is
// locked first to serialize concurrent creations per room, then confirmed
// bookings are re-checked for overlap; the table's exclusion constraint
// backstops the check, so either path surfaces ErrSlotConflict.
func (r *Repository) CreateConfirmed(ctx context.Context, b *models.Booking, deductCredits int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var roomID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM meeting_rooms WHERE id = $1 FOR UPDATE`, b.RoomID).Scan(&roomID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock room: %w", err)
	}

	var conflicts int
	const overlapQ = `SELECT COUNT(*) FROM room_bookings
		WHERE room_id = $1 AND status = 'confirmed' AND start_time < $3 AND end_time > $2`
	if err := tx.QueryRow(ctx, overlapQ, b.RoomID, b.StartTime, b.EndTime).Scan(&conflicts); err != nil {
		return fmt.Errorf("conflict check: %w", err)
	}
	if conflicts > 0 {
		return ErrSlotConflict
	}

	const insertQ = `INSERT INTO room_bookings (user_id, room_id, start_time, end_time, credits_used, status, billed_to, org_id)
		VALUES ($1, $2, $3, $4, $5, 'confirmed', $6, $7)
		RETURNING id, status, created_at, updated_at`
	err = tx.QueryRow(ctx, insertQ, b.UserID, b.RoomID, b.StartTime, b.EndTime, b.CreditsUsed, string(b.BilledTo), b.OrgID).
		Scan(&b.ID, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
			return ErrSlotConflict
		}
		return fmt.Errorf("insert booking: %w", err)
	}

	if deductCredits > 0 {
		if _, err := credits.AddUsedCredits(ctx, tx, b.UserID, deductCredits); err != nil {
			return fmt.Errorf("deduct credits: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// Cancel marks a confirmed booking cancelled and, when refundCredits > 0,
// refunds the booking user's credits in the same transaction.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID, refundCredits int) (*models.Booking, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `UPDATE room_bookings SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'
		RETURNING ` + bookingColumns
	b, err := scanBooking(tx.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}

	if refundCredits > 0 {
		if _, err := credits.RefundUsedCredits(ctx, tx, b.UserID, refundCredits); err != nil {
			return nil, fmt.Errorf("refund credits: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// CompletePastBookings marks confirmed bookings whose end_time has passed as
// completed. Run by the nightly job; returns affected row count.
func (r *Repository) CompletePastBookings(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE room_bookings SET status = 'completed', updated_at = NOW()
		 WHERE status = 'confirmed' AND end_time <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
