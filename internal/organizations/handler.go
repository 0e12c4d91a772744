package organizations

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/atrium-workspace/backend/internal/auth"
	"github.com/atrium-workspace/backend/internal/middleware"
	"github.com/atrium-workspace/backend/internal/models"
	"github.com/atrium-workspace/backend/pkg/response"
)

// Handler handles organization HTTP endpoints.
type Handler struct {
	repo     *Repository
	userRepo *auth.Repository
	logger   *zap.Logger
}

// NewHandler creates an organizations handler.
func NewHandler(repo *Repository, userRepo *auth.Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, userRepo: userRepo, logger: logger}
}

// CreateRequest is the body for POST /organizations.
type CreateRequest struct {
	Name           string `json:"name" binding:"required"`
	MonthlyCredits int    `json:"monthly_credits"`
	BillingEmail   string `json:"billing_email" binding:"required,email"`
	BillingAddress string `json:"billing_address"`
	Site           string `json:"site" binding:"required"`
}

// UpdateBillingRequest is the body for PATCH /organizations/:id. Only supplied
// fields change.
type UpdateBillingRequest struct {
	Name           *string `json:"name"`
	MonthlyCredits *int    `json:"monthly_credits"`
	BillingEmail   *string `json:"billing_email"`
	BillingAddress *string `json:"billing_address"`
}

// AddMemberRequest is the body for POST /organizations/:id/members.
type AddMemberRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Role   string    `json:"role"`
}

// DelegationRequest is the body for PATCH /organizations/:id/members/:userID/delegation.
type DelegationRequest struct {
	CanChargeCafeToOrg bool `json:"can_charge_cafe_to_org"`
	CanChargeRoomToOrg bool `json:"can_charge_room_to_org"`
}

// Create handles POST /organizations. The creator becomes the organization's
// administrator.
func (h *Handler) Create(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.MonthlyCredits < 0 {
		response.BadRequest(c, "monthly_credits cannot be negative")
		return
	}

	creator, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.Unauthorized(c, "user not found")
		return
	}
	if creator.OrganizationID != nil {
		response.BadRequest(c, "user already belongs to an organization")
		return
	}

	org := &models.Organization{
		Name:           req.Name,
		MonthlyCredits: req.MonthlyCredits,
		BillingEmail:   req.BillingEmail,
		BillingAddress: req.BillingAddress,
		Site:           req.Site,
	}
	if err := h.repo.Create(c.Request.Context(), org); err != nil {
		response.Internal(c, "failed to create organization")
		return
	}

	if err := h.userRepo.SetOrganization(c.Request.Context(), userID, org.ID, models.RoleOrgAdmin); err != nil {
		h.logger.Error("assign org admin", zap.Error(err), zap.String("org_id", org.ID.String()))
		response.Internal(c, "failed to assign organization admin")
		return
	}
	response.Created(c, org)
}

// Get handles GET /organizations/:id.
func (h *Handler) Get(c *gin.Context) {
	org, ok := h.loadAuthorized(c)
	if !ok {
		return
	}
	response.OK(c, org)
}

// List handles GET /organizations (admin).
func (h *Handler) List(c *gin.Context) {
	orgs, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list organizations")
		return
	}
	response.OK(c, orgs)
}

// UpdateBilling handles PATCH /organizations/:id (org admin of that org, or
// platform admin).
func (h *Handler) UpdateBilling(c *gin.Context) {
	org, ok := h.loadAuthorized(c)
	if !ok {
		return
	}

	var req UpdateBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Name != nil {
		org.Name = *req.Name
	}
	if req.MonthlyCredits != nil {
		if *req.MonthlyCredits < 0 {
			response.BadRequest(c, "monthly_credits cannot be negative")
			return
		}
		org.MonthlyCredits = *req.MonthlyCredits
	}
	if req.BillingEmail != nil {
		org.BillingEmail = *req.BillingEmail
	}
	if req.BillingAddress != nil {
		org.BillingAddress = *req.BillingAddress
	}

	if err := h.repo.UpdateBilling(c.Request.Context(), org); err != nil {
		response.Internal(c, "failed to update organization")
		return
	}
	response.OK(c, org)
}

// ListMembers handles GET /organizations/:id/members.
func (h *Handler) ListMembers(c *gin.Context) {
	org, ok := h.loadAuthorized(c)
	if !ok {
		return
	}
	members, err := h.repo.ListMembers(c.Request.Context(), org.ID)
	if err != nil {
		response.Internal(c, "failed to list members")
		return
	}
	response.OK(c, members)
}

// AddMember handles POST /organizations/:id/members. The added user joins as
// org_member unless org_admin is requested.
func (h *Handler) AddMember(c *gin.Context) {
	org, ok := h.loadAuthorized(c)
	if !ok {
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	role := models.RoleOrgMember
	if req.Role == string(models.RoleOrgAdmin) {
		role = models.RoleOrgAdmin
	} else if req.Role != "" && req.Role != string(models.RoleOrgMember) {
		response.BadRequest(c, "role must be org_member or org_admin")
		return
	}

	member, err := h.userRepo.GetByID(c.Request.Context(), req.UserID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	if member.OrganizationID != nil && *member.OrganizationID != org.ID {
		response.BadRequest(c, "user already belongs to another organization")
		return
	}

	if err := h.userRepo.SetOrganization(c.Request.Context(), member.ID, org.ID, role); err != nil {
		response.Internal(c, "failed to add member")
		return
	}
	member.OrganizationID = &org.ID
	member.Role = role
	response.OK(c, member.ToPublic())
}

// SetDelegation handles PATCH /organizations/:id/members/:userID/delegation.
// Delegation flags decide whether the member may charge café orders or room
// bookings to the organization.
func (h *Handler) SetDelegation(c *gin.Context) {
	org, ok := h.loadAuthorized(c)
	if !ok {
		return
	}
	memberID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	var req DelegationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	member, err := h.userRepo.GetByID(c.Request.Context(), memberID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	if member.OrganizationID == nil || *member.OrganizationID != org.ID {
		response.BadRequest(c, "user is not a member of this organization")
		return
	}

	if err := h.userRepo.SetDelegationFlags(c.Request.Context(), member.ID, req.CanChargeCafeToOrg, req.CanChargeRoomToOrg); err != nil {
		response.Internal(c, "failed to update delegation")
		return
	}
	member.CanChargeCafeToOrg = req.CanChargeCafeToOrg
	member.CanChargeRoomToOrg = req.CanChargeRoomToOrg
	response.OK(c, member.ToPublic())
}

// loadAuthorized parses :id, loads the organization and verifies the caller
// may manage it: either a platform admin, or an org manager of this org.
func (h *Handler) loadAuthorized(c *gin.Context) (*models.Organization, bool) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return nil, false
	}

	org, err := h.repo.GetByID(c.Request.Context(), orgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "organization not found")
			return nil, false
		}
		response.Internal(c, "failed to load organization")
		return nil, false
	}

	role := models.Role(c.GetString(middleware.ContextUserRole))
	if models.RoleCan(role, models.CapViewAdmin) {
		return org, true
	}
	if !models.RoleCan(role, models.CapManageOrg) {
		response.Forbidden(c, "not permitted")
		return nil, false
	}

	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	actor, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil || actor.OrganizationID == nil || *actor.OrganizationID != org.ID {
		response.Forbidden(c, "not a manager of this organization")
		return nil, false
	}
	return org, true
}
