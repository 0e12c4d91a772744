package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atrium-workspace/backend/internal/models"
)

const userColumns = `id, email, password_hash, full_name, role, organization_id,
	credits, used_credits, can_charge_cafe_to_org, can_charge_room_to_org, site,
	created_at, updated_at`

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.OrganizationID,
		&u.Credits, &u.UsedCredits, &u.CanChargeCafeToOrg, &u.CanChargeRoomToOrg, &u.Site,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// CreateUserParams holds the fields set at registration.
type CreateUserParams struct {
	Email    string
	Password string // bcrypt hash
	FullName string
	Role     models.Role
	Site     string
	Credits  int
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, p CreateUserParams) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, full_name, role, site, credits)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, p.Email, p.Password, p.FullName, string(p.Role), p.Site, p.Credits))
}

// List returns all users for the admin dashboard.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY full_name, email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u.ToPublic())
	}
	return list, rows.Err()
}

// SetOrganization assigns the user to an organization with the given role.
func (r *Repository) SetOrganization(ctx context.Context, userID, orgID uuid.UUID, role models.Role) error {
	const q = `UPDATE users SET organization_id = $2, role = $3, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, userID, orgID, string(role))
	return err
}

// SetDelegationFlags updates the user's organization billing delegation flags.
func (r *Repository) SetDelegationFlags(ctx context.Context, userID uuid.UUID, cafe, room bool) error {
	const q = `UPDATE users SET can_charge_cafe_to_org = $2, can_charge_room_to_org = $3, updated_at = NOW()
		WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, userID, cafe, room)
	return err
}
