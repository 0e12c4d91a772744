package cafe

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/atrium-workspace/backend/internal/billing"
	"github.com/atrium-workspace/backend/internal/middleware"
	"github.com/atrium-workspace/backend/internal/models"
	"github.com/atrium-workspace/backend/pkg/response"
)

// OrderHandler handles café order HTTP endpoints.
type OrderHandler struct {
	svc      *Service
	orders   *OrderRepository
	userRepo UserStore
}

// NewOrderHandler creates an order handler.
func NewOrderHandler(svc *Service, orders *OrderRepository, users UserStore) *OrderHandler {
	return &OrderHandler{svc: svc, orders: orders, userRepo: users}
}

// OrderLineRequest is one line item of an order request.
type OrderLineRequest struct {
	MenuItemID uuid.UUID `json:"menu_item_id" binding:"required"`
	Quantity   int       `json:"quantity" binding:"required,gt=0"`
}

// CreateOrderRequest is the body for POST /cafe/orders.
type CreateOrderRequest struct {
	Items    []OrderLineRequest `json:"items" binding:"required,min=1,dive"`
	BilledTo string             `json:"billed_to"`
	Notes    string             `json:"notes"`
}

// UpdateStatusRequest is the body for PATCH /cafe/orders/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Create handles POST /cafe/orders.
func (h *OrderHandler) Create(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	billedTo := models.BilledTo(req.BilledTo)
	if req.BilledTo == "" {
		billedTo = models.BilledToPersonal
	}
	if !models.ValidBilledTo(string(billedTo)) {
		response.BadRequest(c, "billed_to must be personal or organization")
		return
	}

	lines := make([]OrderLine, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, OrderLine{MenuItemID: it.MenuItemID, Quantity: it.Quantity})
	}

	order, err := h.svc.PlaceOrder(c.Request.Context(), userID, lines, billedTo, req.Notes)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	response.Created(c, order)
}

// ListMine handles GET /cafe/orders/mine.
func (h *OrderHandler) ListMine(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	orders, err := h.orders.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to list orders")
		return
	}
	response.OK(c, orders)
}

// ListActive handles GET /cafe/orders/active?site=X (café staff). Returns
// pending, preparing and ready orders for the staff display.
func (h *OrderHandler) ListActive(c *gin.Context) {
	site := c.Query("site")
	if site == "" {
		response.BadRequest(c, "site is required")
		return
	}

	orders, err := h.orders.ListActiveForSite(c.Request.Context(), site)
	if err != nil {
		response.Internal(c, "failed to list active orders")
		return
	}
	response.OK(c, orders)
}

// Get handles GET /cafe/orders/:id. Members may only read their own orders.
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role := models.Role(c.GetString(middleware.ContextUserRole))

	order, err := h.orders.GetByID(c.Request.Context(), orderID)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	if order.UserID != userID && !models.RoleCan(role, models.CapAdvanceOrders) && !models.RoleCan(role, models.CapViewAdmin) {
		response.Forbidden(c, "not your order")
		return
	}
	response.OK(c, order)
}

// UpdateStatus handles PATCH /cafe/orders/:id/status (café staff). Members
// cancel their own pending orders through the same endpoint.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !models.ValidOrderStatus(req.Status) {
		response.BadRequest(c, "unknown status")
		return
	}

	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	actor, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.Unauthorized(c, "user not found")
		return
	}

	to := models.OrderStatus(req.Status)
	var order *models.CafeOrder
	if to == models.OrderCancelled && !models.RoleCan(actor.Role, models.CapAdvanceOrders) {
		order, err = h.svc.CancelOwn(c.Request.Context(), orderID, actor)
	} else {
		order, err = h.svc.AdvanceStatus(c.Request.Context(), orderID, to, actor)
	}
	if err != nil {
		writeOrderError(c, err)
		return
	}
	response.OK(c, order)
}

// writeOrderError maps café errors onto the response taxonomy.
func writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEmptyOrder):
		response.BadRequestCode(c, response.CodeInvalidAmount, "order must contain at least one item with positive quantity")
	case errors.Is(err, ErrItemUnavailable):
		response.BadRequestCode(c, response.CodeInvalidAmount, "menu item not available at your site")
	case errors.Is(err, billing.ErrUnauthorized):
		response.Forbidden(c, "not permitted")
	case errors.Is(err, ErrInvalidTransition):
		response.Conflict(c, response.CodeInvalidTransition, "order status cannot change that way")
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "not found")
	default:
		response.Internal(c, "café order operation failed")
	}
}
