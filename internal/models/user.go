package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the platform.
type Role string

const (
	RoleMember      Role = "member"       // individual coworking member
	RoleOrgMember   Role = "org_member"   // member belonging to an organization
	RoleOrgAdmin    Role = "org_admin"    // organization administrator
	RoleCafeManager Role = "cafe_manager" // café staff
	RoleAdmin       Role = "admin"        // platform administrator
)

// ValidRole reports whether s is a known role.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleMember, RoleOrgMember, RoleOrgAdmin, RoleCafeManager, RoleAdmin:
		return true
	}
	return false
}

// Capability is a named permission checked by handlers and services.
type Capability string

const (
	CapBookRooms     Capability = "book_rooms"
	CapManageRooms   Capability = "manage_rooms"
	CapManageMenu    Capability = "manage_menu"
	CapAdvanceOrders Capability = "advance_orders"
	CapViewAdmin     Capability = "view_admin"
	CapManageOrg     Capability = "manage_org"
	CapCancelAny     Capability = "cancel_any_booking"
)

// roleCapabilities is the closed role -> capability table. Authorization
// decisions go through RoleCan rather than ad-hoc role comparisons in handlers.
var roleCapabilities = map[Role]map[Capability]bool{
	RoleMember: {
		CapBookRooms: true,
	},
	RoleOrgMember: {
		CapBookRooms: true,
	},
	RoleOrgAdmin: {
		CapBookRooms: true,
		CapManageOrg: true,
	},
	RoleCafeManager: {
		CapBookRooms:     true,
		CapManageMenu:    true,
		CapAdvanceOrders: true,
	},
	RoleAdmin: {
		CapBookRooms:     true,
		CapManageRooms:   true,
		CapManageMenu:    true,
		CapAdvanceOrders: true,
		CapViewAdmin:     true,
		CapManageOrg:     true,
		CapCancelAny:     true,
	},
}

// RoleCan reports whether the role grants the capability.
func RoleCan(role Role, capability Capability) bool {
	return roleCapabilities[role][capability]
}

// User represents a platform user. Credits is the monthly allotment and
// UsedCredits the cumulative consumption within the billing cycle; the
// available balance (Credits - UsedCredits) may go negative under the
// allow-overdraft policy.
type User struct {
	ID                 uuid.UUID  `json:"id"`
	Email              string     `json:"email"`
	Password           string     `json:"-"`
	FullName           string     `json:"full_name"`
	Role               Role       `json:"role"`
	OrganizationID     *uuid.UUID `json:"organization_id,omitempty"`
	Credits            int        `json:"credits"`
	UsedCredits        int        `json:"used_credits"`
	CanChargeCafeToOrg bool       `json:"can_charge_cafe_to_org"`
	CanChargeRoomToOrg bool       `json:"can_charge_room_to_org"`
	Site               string     `json:"site"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID                 uuid.UUID  `json:"id"`
	Email              string     `json:"email"`
	FullName           string     `json:"full_name"`
	Role               Role       `json:"role"`
	OrganizationID     *uuid.UUID `json:"organization_id,omitempty"`
	Credits            int        `json:"credits"`
	UsedCredits        int        `json:"used_credits"`
	CanChargeCafeToOrg bool       `json:"can_charge_cafe_to_org"`
	CanChargeRoomToOrg bool       `json:"can_charge_room_to_org"`
	Site               string     `json:"site"`
	CreatedAt          time.Time  `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:                 u.ID,
		Email:              u.Email,
		FullName:           u.FullName,
		Role:               u.Role,
		OrganizationID:     u.OrganizationID,
		Credits:            u.Credits,
		UsedCredits:        u.UsedCredits,
		CanChargeCafeToOrg: u.CanChargeCafeToOrg,
		CanChargeRoomToOrg: u.CanChargeRoomToOrg,
		Site:               u.Site,
		CreatedAt:          u.CreatedAt,
	}
}
