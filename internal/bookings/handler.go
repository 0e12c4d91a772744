package bookings

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/atrium-workspace/backend/internal/billing"
	"github.com/atrium-workspace/backend/internal/middleware"
	"github.com/atrium-workspace/backend/internal/models"
	"github.com/atrium-workspace/backend/internal/timeutil"
	"github.com/atrium-workspace/backend/pkg/response"
)

// Handler handles booking HTTP endpoints.
type Handler struct {
	svc   *Service
	users UserStore
}

// NewHandler creates a bookings handler.
func NewHandler(svc *Service, users UserStore) *Handler {
	return &Handler{svc: svc, users: users}
}

// CreateBookingRequest is the body for POST /bookings.
type CreateBookingRequest struct {
	RoomID    uuid.UUID `json:"room_id" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	BilledTo  string    `json:"billed_to" binding:"required"`
}

// Create handles POST /bookings.
func (h *Handler) Create(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !models.ValidBilledTo(req.BilledTo) {
		response.BadRequest(c, "billed_to must be personal or organization")
		return
	}

	b, err := h.svc.Create(c.Request.Context(), userID, req.RoomID, req.StartTime, req.EndTime, models.BilledTo(req.BilledTo))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.Created(c, b)
}

// Slots handles GET /rooms/:id/slots?date=YYYY-MM-DD.
func (h *Handler) Slots(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid room id")
		return
	}
	date, err := timeutil.ParseCivilDate(c.Query("date"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	slots, err := h.svc.ListAvailableSlots(c.Request.Context(), roomID, date)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.OK(c, slots)
}

// ListForRoom handles GET /rooms/:id/bookings?date=YYYY-MM-DD.
func (h *Handler) ListForRoom(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid room id")
		return
	}
	date, err := timeutil.ParseCivilDate(c.Query("date"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	list, err := h.svc.ListConfirmedForRoomOnDate(c.Request.Context(), roomID, date)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.OK(c, list)
}

// ListMine handles GET /bookings/mine.
func (h *Handler) ListMine(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.svc.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load bookings")
		return
	}
	response.OK(c, list)
}

// Cancel handles POST /bookings/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	actor, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.Unauthorized(c, "unknown user")
		return
	}
	b, err := h.svc.Cancel(c.Request.Context(), bookingID, actor)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.OK(c, b)
}

// writeBookingError maps service sentinels onto the API error taxonomy.
func writeBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidRange):
		response.BadRequestCode(c, response.CodeInvalidRange, "start must be in the future and before end")
	case errors.Is(err, ErrSlotConflict):
		response.Conflict(c, response.CodeSlotConflict, "the requested slot overlaps an existing booking")
	case errors.Is(err, ErrInsufficientCredits):
		response.BadRequestCode(c, response.CodeInsufficientCredits, "insufficient credit balance for this booking")
	case errors.Is(err, billing.ErrUnauthorized):
		response.Forbidden(c, "you are not allowed to bill this booking as requested")
	case errors.Is(err, ErrRoomUnavailable):
		response.BadRequest(c, "room is not available for booking")
	case errors.Is(err, ErrInvalidTransition):
		response.Conflict(c, response.CodeInvalidTransition, "booking is not in a cancellable state")
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "room or booking not found")
	default:
		response.Internal(c, "booking operation failed")
	}
}
