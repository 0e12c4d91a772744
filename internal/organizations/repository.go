// Package organizations manages tenant organizations: membership, billing
// contact details, and per-member delegation flags.
package organizations

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atrium-workspace/backend/internal/models"
)

const orgColumns = `id, name, monthly_credits, billing_email, billing_address, site, created_at, updated_at`

// Repository handles organization persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an organizations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanOrg(row interface{ Scan(...any) error }) (*models.Organization, error) {
	var org models.Organization
	err := row.Scan(&org.ID, &org.Name, &org.MonthlyCredits, &org.BillingEmail,
		&org.BillingAddress, &org.Site, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// Create creates an organization.
func (r *Repository) Create(ctx context.Context, org *models.Organization) error {
	const q = `INSERT INTO organizations (id, name, monthly_credits, billing_email, billing_address, site)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, org.Name, org.MonthlyCredits, org.BillingEmail, org.BillingAddress, org.Site).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
}

// GetByID returns an organization by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	const q = `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1`
	return scanOrg(r.pool.QueryRow(ctx, q, id))
}

// List returns all organizations, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Organization, error) {
	const q = `SELECT ` + orgColumns + ` FROM organizations ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []models.Organization
	for rows.Next() {
		org, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, *org)
	}
	return orgs, rows.Err()
}

// UpdateBilling updates the billing contact and advisory credit pool.
func (r *Repository) UpdateBilling(ctx context.Context, org *models.Organization) error {
	const q = `UPDATE organizations
		SET name = $2, monthly_credits = $3, billing_email = $4, billing_address = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, org.ID, org.Name, org.MonthlyCredits, org.BillingEmail, org.BillingAddress).
		Scan(&org.UpdatedAt)
}

// ListMembers returns the public profiles of an organization's members.
func (r *Repository) ListMembers(ctx context.Context, orgID uuid.UUID) ([]models.UserPublic, error) {
	const q = `SELECT id, email, full_name, role, organization_id, credits, used_credits,
			can_charge_cafe_to_org, can_charge_room_to_org, site, created_at
		FROM users WHERE organization_id = $1 ORDER BY full_name`
	rows, err := r.pool.Query(ctx, q, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.OrganizationID,
			&u.Credits, &u.UsedCredits, &u.CanChargeCafeToOrg, &u.CanChargeRoomToOrg,
			&u.Site, &u.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, u)
	}
	return members, rows.Err()
}
