package rooms

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atrium-workspace/backend/internal/models"
)

const roomColumns = `id, name, capacity, credit_cost_per_hour, is_available, site, created_at, updated_at`

// Repository handles meeting-room persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a rooms repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanRoom(row interface{ Scan(...any) error }) (*models.MeetingRoom, error) {
	var m models.MeetingRoom
	err := row.Scan(&m.ID, &m.Name, &m.Capacity, &m.CreditCostPerHour, &m.IsAvailable, &m.Site,
		&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a meeting room.
func (r *Repository) Create(ctx context.Context, room *models.MeetingRoom) error {
	const q = `INSERT INTO meeting_rooms (name, capacity, credit_cost_per_hour, is_available, site)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, room.Name, room.Capacity, room.CreditCostPerHour, room.IsAvailable, room.Site).
		Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt)
}

// GetByID returns a room by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.MeetingRoom, error) {
	return scanRoom(r.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM meeting_rooms WHERE id = $1`, id))
}

// List returns rooms, optionally filtered by site.
func (r *Repository) List(ctx context.Context, site string) ([]models.MeetingRoom, error) {
	q := `SELECT ` + roomColumns + ` FROM meeting_rooms ORDER BY site, name`
	args := []any{}
	if site != "" {
		q = `SELECT ` + roomColumns + ` FROM meeting_rooms WHERE site = $1 ORDER BY name`
		args = append(args, site)
	}
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.MeetingRoom
	for rows.Next() {
		m, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *m)
	}
	return list, rows.Err()
}

// Update applies name/capacity/rate/availability changes.
func (r *Repository) Update(ctx context.Context, room *models.MeetingRoom) error {
	const q = `UPDATE meeting_rooms
		SET name = $2, capacity = $3, credit_cost_per_hour = $4, is_available = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, room.ID, room.Name, room.Capacity, room.CreditCostPerHour, room.IsAvailable).
		Scan(&room.UpdatedAt)
}
