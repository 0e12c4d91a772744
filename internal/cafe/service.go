// Package cafe implements café ordering: menu management, order placement
// with atomic line-item persistence, and the staff-driven status machine.
package cafe

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atrium-workspace/backend/internal/billing"
	"github.com/atrium-workspace/backend/internal/models"
)

var (
	// ErrNotFound is returned for a missing order or menu item.
	ErrNotFound = errors.New("not found")
	// ErrItemUnavailable is returned when an ordered item is off the menu or
	// belongs to another site.
	ErrItemUnavailable = errors.New("menu item not available")
	// ErrEmptyOrder is returned for an order with no valid line items.
	ErrEmptyOrder = errors.New("order has no items")
	// ErrInvalidTransition is returned for a disallowed status change.
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// Topic returns the realtime topic for a site's café staff displays.
func Topic(site string) string {
	return "cafe:" + site
}

// Realtime events delivered to staff displays.
const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
)

// EventPublisher fans an event out to a topic's subscribers. Delivery is
// best-effort; publishing never fails the surrounding operation.
type EventPublisher interface {
	Broadcast(topic, event string, payload interface{})
}

// PushEnqueuer hands an order event to the background push pipeline.
type PushEnqueuer interface {
	EnqueueOrderEvent(ctx context.Context, orderID uuid.UUID, site, event string) error
}

// MenuStore loads menu items for order validation.
type MenuStore interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.MenuItem, error)
}

// OrderStore persists orders.
type OrderStore interface {
	CreateWithItems(ctx context.Context, o *models.CafeOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CafeOrder, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) (*models.CafeOrder, error)
}

// UserStore loads users.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service orchestrates café order placement and status transitions.
type Service struct {
	orders OrderStore
	menu   MenuStore
	users  UserStore
	events EventPublisher
	push   PushEnqueuer
	logger *zap.Logger
}

// NewService creates a café service. events and push may be nil (e.g. in the
// worker binary).
func NewService(orders OrderStore, menu MenuStore, users UserStore, events EventPublisher, push PushEnqueuer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{orders: orders, menu: menu, users: users, events: events, push: push, logger: logger}
}

// OrderLine is one requested line item.
type OrderLine struct {
	MenuItemID uuid.UUID
	Quantity   int
}

// PlaceOrder validates the items against the user's site, computes the total
// as a monetary amount (café orders never touch the credit pool), resolves
// billing, and persists order plus items atomically. Staff notification is
// fire-and-forget.
func (s *Service) PlaceOrder(ctx context.Context, userID uuid.UUID, lines []OrderLine, billedTo models.BilledTo, notes string) (*models.CafeOrder, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrNotFound
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, ErrEmptyOrder
		}
		ids = append(ids, l.MenuItemID)
	}
	items, err := s.menu.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	total := 0
	orderItems := make([]models.CafeOrderItem, 0, len(lines))
	for _, l := range lines {
		item, ok := items[l.MenuItemID]
		if !ok {
			return nil, ErrNotFound
		}
		if !item.IsAvailable || item.Site != user.Site {
			return nil, ErrItemUnavailable
		}
		total += item.PriceCents * l.Quantity
		orderItems = append(orderItems, models.CafeOrderItem{
			MenuItemID:     item.ID,
			MenuItemName:   item.Name,
			Quantity:       l.Quantity,
			UnitPriceCents: item.PriceCents,
		})
	}

	decision, err := billing.Resolve(user, billedTo, billing.KindCafe)
	if err != nil {
		return nil, err
	}

	payment := models.PaymentUnpaid
	if decision.BilledTo == models.BilledToOrganization {
		payment = models.PaymentInvoiced
	}

	order := &models.CafeOrder{
		UserID:           userID,
		TotalAmountCents: total,
		BilledTo:         decision.BilledTo,
		OrgID:            decision.OrgID,
		PaymentStatus:    payment,
		Notes:            notes,
		Site:             user.Site,
		Items:            orderItems,
	}
	if err := s.orders.CreateWithItems(ctx, order); err != nil {
		return nil, err
	}

	s.notify(ctx, order, EventOrderCreated)
	return order, nil
}

// AdvanceStatus moves an order through its status machine. Only actors with
// the advance-orders capability may transition.
func (s *Service) AdvanceStatus(ctx context.Context, orderID uuid.UUID, to models.OrderStatus, actor *models.User) (*models.CafeOrder, error) {
	if !models.RoleCan(actor.Role, models.CapAdvanceOrders) {
		return nil, billing.ErrUnauthorized
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(order.Status, to) {
		return nil, ErrInvalidTransition
	}
	updated, err := s.orders.UpdateStatus(ctx, orderID, order.Status, to)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, updated, EventOrderStatusChanged)
	return updated, nil
}

// CancelOwn lets a member cancel their own order while it has not been
// delivered. Staff cancellations go through AdvanceStatus instead.
func (s *Service) CancelOwn(ctx context.Context, orderID uuid.UUID, actor *models.User) (*models.CafeOrder, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.ID {
		return nil, billing.ErrUnauthorized
	}
	if !models.CanTransition(order.Status, models.OrderCancelled) {
		return nil, ErrInvalidTransition
	}
	updated, err := s.orders.UpdateStatus(ctx, orderID, order.Status, models.OrderCancelled)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, updated, EventOrderStatusChanged)
	return updated, nil
}

// notify delivers the event to staff displays and the push pipeline.
// Failures are logged and never surface to the caller.
func (s *Service) notify(ctx context.Context, order *models.CafeOrder, event string) {
	if s.events != nil {
		s.events.Broadcast(Topic(order.Site), event, order)
	}
	if s.push != nil {
		if err := s.push.EnqueueOrderEvent(ctx, order.ID, order.Site, event); err != nil {
			s.logger.Warn("enqueue order push", zap.Error(err), zap.String("order_id", order.ID.String()))
		}
	}
}
