package cafe

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atrium-workspace/backend/internal/models"
)

const menuColumns = `id, name, description, category, price_cents, COALESCE(image_url, ''), is_available, site, created_at, updated_at`

// MenuRepository handles café menu persistence.
type MenuRepository struct {
	pool *pgxpool.Pool
}

// NewMenuRepository creates a menu repository.
func NewMenuRepository(pool *pgxpool.Pool) *MenuRepository {
	return &MenuRepository{pool: pool}
}

func scanMenuItem(row interface{ Scan(...any) error }) (*models.MenuItem, error) {
	var m models.MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Category, &m.PriceCents, &m.ImageURL,
		&m.IsAvailable, &m.Site, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a menu item.
func (r *MenuRepository) Create(ctx context.Context, item *models.MenuItem) error {
	const q = `INSERT INTO menu_items (name, description, category, price_cents, is_available, site)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, item.Name, item.Description, item.Category, item.PriceCents, item.IsAvailable, item.Site).
		Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
}

// GetByID returns a menu item by ID.
func (r *MenuRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	return scanMenuItem(r.pool.QueryRow(ctx, `SELECT `+menuColumns+` FROM menu_items WHERE id = $1`, id))
}

// GetByIDs returns the menu items for the given IDs, keyed by ID.
func (r *MenuRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.MenuItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+menuColumns+` FROM menu_items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]*models.MenuItem, len(ids))
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		out[m.ID] = m
	}
	return out, rows.Err()
}

// List returns menu items, optionally filtered by site and availability.
func (r *MenuRepository) List(ctx context.Context, site string, availableOnly bool) ([]models.MenuItem, error) {
	q := `SELECT ` + menuColumns + ` FROM menu_items WHERE ($1 = '' OR site = $1)`
	if availableOnly {
		q += ` AND is_available`
	}
	q += ` ORDER BY category, name`
	rows, err := r.pool.Query(ctx, q, site)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *m)
	}
	return list, rows.Err()
}

// Update applies menu item changes.
func (r *MenuRepository) Update(ctx context.Context, item *models.MenuItem) error {
	const q = `UPDATE menu_items
		SET name = $2, description = $3, category = $4, price_cents = $5, is_available = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, item.ID, item.Name, item.Description, item.Category, item.PriceCents, item.IsAvailable).
		Scan(&item.UpdatedAt)
}

// SetImageURL stores the S3 URL for the item's image.
func (r *MenuRepository) SetImageURL(ctx context.Context, id uuid.UUID, url string) error {
	_, err := r.pool.Exec(ctx, `UPDATE menu_items SET image_url = $2, updated_at = NOW() WHERE id = $1`, id, url)
	return err
}
