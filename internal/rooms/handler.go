package rooms

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/atrium-workspace/backend/internal/models"
	"github.com/atrium-workspace/backend/pkg/response"
)

// Handler handles meeting-room HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a rooms handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// CreateRoomRequest is the body for POST /rooms.
type CreateRoomRequest struct {
	Name              string `json:"name" binding:"required"`
	Capacity          int    `json:"capacity" binding:"required,min=1"`
	CreditCostPerHour int    `json:"credit_cost_per_hour" binding:"required,min=0"`
	Site              string `json:"site" binding:"required"`
}

// UpdateRoomRequest is the body for PATCH /rooms/:id. Pointers distinguish
// "absent" from zero values.
type UpdateRoomRequest struct {
	Name              *string `json:"name"`
	Capacity          *int    `json:"capacity"`
	CreditCostPerHour *int    `json:"credit_cost_per_hour"`
	IsAvailable       *bool   `json:"is_available"`
}

// List handles GET /rooms?site=.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context(), c.Query("site"))
	if err != nil {
		response.Internal(c, "failed to load rooms")
		return
	}
	response.OK(c, list)
}

// Create handles POST /rooms (admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	room := &models.MeetingRoom{
		Name:              req.Name,
		Capacity:          req.Capacity,
		CreditCostPerHour: req.CreditCostPerHour,
		IsAvailable:       true,
		Site:              req.Site,
	}
	if err := h.repo.Create(c.Request.Context(), room); err != nil {
		response.Internal(c, "failed to create room")
		return
	}
	response.Created(c, room)
}

// Update handles PATCH /rooms/:id (admin).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid room id")
		return
	}
	var req UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	room, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "room not found")
			return
		}
		response.Internal(c, "failed to load room")
		return
	}
	if req.Name != nil {
		room.Name = *req.Name
	}
	if req.Capacity != nil {
		room.Capacity = *req.Capacity
	}
	if req.CreditCostPerHour != nil {
		room.CreditCostPerHour = *req.CreditCostPerHour
	}
	if req.IsAvailable != nil {
		room.IsAvailable = *req.IsAvailable
	}
	if err := h.repo.Update(c.Request.Context(), room); err != nil {
		response.Internal(c, "failed to update room")
		return
	}
	response.OK(c, room)
}
