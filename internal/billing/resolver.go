// Package billing decides the authoritative billing owner for a transaction.
// The organization ID in a decision is always derived from the acting user's
// row, never from client input, so a booking or order can never be billed to
// an organization the user does not belong to.
package billing

import (
	"errors"

	"github.com/google/uuid"

	"github.com/atrium-workspace/backend/internal/models"
)

// ErrUnauthorized is returned when the user may not bill the requested target.
var ErrUnauthorized = errors.New("not authorized to bill this target")

// Kind is the transaction kind, which selects the delegation flag to check.
type Kind string

const (
	KindCafe Kind = "cafe"
	KindRoom Kind = "room"
)

// Decision is the resolved billing owner. OrgID is non-nil iff BilledTo is
// organization.
type Decision struct {
	BilledTo models.BilledTo
	OrgID    *uuid.UUID
}

// Resolve validates the requested billing target against the acting user and
// returns the authoritative decision.
func Resolve(user *models.User, requested models.BilledTo, kind Kind) (Decision, error) {
	switch requested {
	case models.BilledToPersonal:
		return Decision{BilledTo: models.BilledToPersonal}, nil
	case models.BilledToOrganization:
		if user.OrganizationID == nil {
			return Decision{}, ErrUnauthorized
		}
		switch kind {
		case KindCafe:
			if !user.CanChargeCafeToOrg {
				return Decision{}, ErrUnauthorized
			}
		case KindRoom:
			if !user.CanChargeRoomToOrg {
				return Decision{}, ErrUnauthorized
			}
		default:
			return Decision{}, ErrUnauthorized
		}
		orgID := *user.OrganizationID
		return Decision{BilledTo: models.BilledToOrganization, OrgID: &orgID}, nil
	default:
		return Decision{}, ErrUnauthorized
	}
}
