package credits

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx shared by pools and transactions, so
// deductions can ride inside a booking/order transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists credit mutations on the users table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a credits repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AddUsedCredits atomically increments used_credits and returns the new
// available balance. Runs on q, which may be a transaction.
func AddUsedCredits(ctx context.Context, q Querier, userID uuid.UUID, amount int) (balance int, err error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}
	const sql = `UPDATE users SET used_credits = used_credits + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING credits - used_credits`
	err = q.QueryRow(ctx, sql, userID, amount).Scan(&balance)
	return balance, err
}

// RefundUsedCredits atomically decrements used_credits, floored at zero, and
// returns the new available balance.
func RefundUsedCredits(ctx context.Context, q Querier, userID uuid.UUID, amount int) (balance int, err error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}
	const sql = `UPDATE users SET used_credits = GREATEST(used_credits - $2, 0), updated_at = NOW()
		WHERE id = $1
		RETURNING credits - used_credits`
	err = q.QueryRow(ctx, sql, userID, amount).Scan(&balance)
	return balance, err
}

// AddUsedCredits increments used_credits on the repository's own pool
// (outside any transaction).
func (r *Repository) AddUsedCredits(ctx context.Context, userID uuid.UUID, amount int) (int, error) {
	return AddUsedCredits(ctx, r.pool, userID, amount)
}

// RefundUsedCredits on the repository's own pool.
func (r *Repository) RefundUsedCredits(ctx context.Context, userID uuid.UUID, amount int) (int, error) {
	return RefundUsedCredits(ctx, r.pool, userID, amount)
}

// ResetAllUsedCredits zeroes used_credits for every user; run by the monthly
// cron job at the start of each billing cycle. Returns affected row count.
func (r *Repository) ResetAllUsedCredits(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET used_credits = 0, updated_at = NOW() WHERE used_credits <> 0`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
