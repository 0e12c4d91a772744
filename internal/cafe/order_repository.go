package cafe

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atrium-workspace/backend/internal/models"
)

const orderColumns = `id, user_id, total_amount_cents, status, billed_to, org_id,
	payment_status, COALESCE(notes, ''), site, created_at, updated_at`

// OrderRepository handles café order persistence.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository creates an order repository.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func scanOrder(row interface{ Scan(...any) error }) (*models.CafeOrder, error) {
	var o models.CafeOrder
	err := row.Scan(&o.ID, &o.UserID, &o.TotalAmountCents, &o.Status, &o.BilledTo, &o.OrgID,
		&o.PaymentStatus, &o.Notes, &o.Site, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateWithItems inserts the order and its line items in one transaction;
// partial item insertion is never observable.
func (r *OrderRepository) CreateWithItems(ctx context.Context, o *models.CafeOrder) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const orderQ = `INSERT INTO cafe_orders (user_id, total_amount_cents, status, billed_to, org_id, payment_status, notes, site)
		VALUES ($1, $2, 'pending', $3, $4, $5, NULLIF($6, ''), $7)
		RETURNING id, status, created_at, updated_at`
	err = tx.QueryRow(ctx, orderQ, o.UserID, o.TotalAmountCents, string(o.BilledTo), o.OrgID,
		string(o.PaymentStatus), o.Notes, o.Site).
		Scan(&o.ID, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	const itemQ = `INSERT INTO cafe_order_items (order_id, menu_item_id, menu_item_name, quantity, unit_price_cents)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		if err := tx.QueryRow(ctx, itemQ, o.ID, item.MenuItemID, item.MenuItemName, item.Quantity, item.UnitPriceCents).
			Scan(&item.ID); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// GetByID returns an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CafeOrder, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM cafe_orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, o *models.CafeOrder) error {
	const q = `SELECT id, order_id, menu_item_id, menu_item_name, quantity, unit_price_cents
		FROM cafe_order_items WHERE order_id = $1 ORDER BY id`
	rows, err := r.pool.Query(ctx, q, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it models.CafeOrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.MenuItemName, &it.Quantity, &it.UnitPriceCents); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

// ListForUser returns the user's orders, newest first (items omitted).
func (r *OrderRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.CafeOrder, error) {
	const q = `SELECT ` + orderColumns + ` FROM cafe_orders WHERE user_id = $1 ORDER BY created_at DESC`
	return r.queryOrders(ctx, q, userID)
}

// ListActiveForSite returns undelivered, uncancelled orders for a site's
// staff display, oldest first.
func (r *OrderRepository) ListActiveForSite(ctx context.Context, site string) ([]models.CafeOrder, error) {
	const q = `SELECT ` + orderColumns + ` FROM cafe_orders
		WHERE site = $1 AND status IN ('pending', 'preparing', 'ready')
		ORDER BY created_at ASC`
	orders, err := r.queryOrders(ctx, q, site)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *OrderRepository) queryOrders(ctx context.Context, q string, args ...any) ([]models.CafeOrder, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.CafeOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *o)
	}
	return list, rows.Err()
}

// UpdateStatus moves the order from -> to, guarded so a concurrent transition
// cannot be overwritten. Cancelling an org-invoiced order clears its payment
// obligation.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) (*models.CafeOrder, error) {
	const q = `UPDATE cafe_orders SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + orderColumns
	o, err := scanOrder(r.pool.QueryRow(ctx, q, id, string(from), string(to)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}
