package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization represents a tenant organization. MonthlyCredits is an advisory
// pool for statements; enforcement happens per user.
type Organization struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	MonthlyCredits int       `json:"monthly_credits"`
	BillingEmail   string    `json:"billing_email"`
	BillingAddress string    `json:"billing_address"`
	Site           string    `json:"site"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BilledTo designates whether a transaction is charged to the acting
// individual or to their organization.
type BilledTo string

const (
	BilledToPersonal     BilledTo = "personal"
	BilledToOrganization BilledTo = "organization"
)

// ValidBilledTo reports whether s is a known billing target.
func ValidBilledTo(s string) bool {
	return BilledTo(s) == BilledToPersonal || BilledTo(s) == BilledToOrganization
}
