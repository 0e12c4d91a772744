package cafe

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atrium-workspace/backend/internal/billing"
	"github.com/atrium-workspace/backend/internal/models"
)

type fakeOrderStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*models.CafeOrder
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[uuid.UUID]*models.CafeOrder)}
}

func (f *fakeOrderStore) CreateWithItems(_ context.Context, o *models.CafeOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o.ID = uuid.New()
	o.Status = models.OrderPending
	for i := range o.Items {
		o.Items[i].ID = uuid.New()
		o.Items[i].OrderID = o.ID
	}
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeOrderStore) GetByID(_ context.Context, id uuid.UUID) (*models.CafeOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.OrderStatus) (*models.CafeOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if o.Status != from {
		return nil, ErrInvalidTransition
	}
	o.Status = to
	cp := *o
	return &cp, nil
}

type fakeMenuStore struct {
	items map[uuid.UUID]*models.MenuItem
}

func (f *fakeMenuStore) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.MenuItem, error) {
	out := make(map[uuid.UUID]*models.MenuItem)
	for _, id := range ids {
		if item, ok := f.items[id]; ok {
			cp := *item
			out[id] = &cp
		}
	}
	return out, nil
}

type fakeUserStore struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type broadcastCall struct {
	topic string
	event string
}

type fakeEvents struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (f *fakeEvents) Broadcast(topic, event string, _ interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, broadcastCall{topic: topic, event: event})
}

type fakePush struct {
	mu     sync.Mutex
	events []string
}

func (f *fakePush) EnqueueOrderEvent(_ context.Context, _ uuid.UUID, _, event string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type cafeFixture struct {
	svc    *Service
	orders *fakeOrderStore
	menu   *fakeMenuStore
	users  *fakeUserStore
	events *fakeEvents
	push   *fakePush

	member    *models.User
	orgMember *models.User
	staff     *models.User
	coffee    *models.MenuItem
	sandwich  *models.MenuItem
	offMenu   *models.MenuItem
	remote    *models.MenuItem
}

func newCafeFixture(t *testing.T) *cafeFixture {
	t.Helper()

	orgID := uuid.New()
	f := &cafeFixture{
		orders: newFakeOrderStore(),
		events: &fakeEvents{},
		push:   &fakePush{},
		member: &models.User{
			ID:   uuid.New(),
			Role: models.RoleMember,
			Site: "gulberg",
		},
		orgMember: &models.User{
			ID:                 uuid.New(),
			Role:               models.RoleOrgMember,
			Site:               "gulberg",
			OrganizationID:     &orgID,
			CanChargeCafeToOrg: true,
		},
		staff: &models.User{
			ID:   uuid.New(),
			Role: models.RoleCafeManager,
			Site: "gulberg",
		},
		coffee: &models.MenuItem{
			ID: uuid.New(), Name: "Flat White", PriceCents: 450,
			IsAvailable: true, Site: "gulberg",
		},
		sandwich: &models.MenuItem{
			ID: uuid.New(), Name: "Club Sandwich", PriceCents: 900,
			IsAvailable: true, Site: "gulberg",
		},
		offMenu: &models.MenuItem{
			ID: uuid.New(), Name: "Seasonal Special", PriceCents: 700,
			IsAvailable: false, Site: "gulberg",
		},
		remote: &models.MenuItem{
			ID: uuid.New(), Name: "Espresso", PriceCents: 300,
			IsAvailable: true, Site: "dha",
		},
	}
	f.menu = &fakeMenuStore{items: map[uuid.UUID]*models.MenuItem{
		f.coffee.ID:   f.coffee,
		f.sandwich.ID: f.sandwich,
		f.offMenu.ID:  f.offMenu,
		f.remote.ID:   f.remote,
	}}
	f.users = &fakeUserStore{users: map[uuid.UUID]*models.User{
		f.member.ID:    f.member,
		f.orgMember.ID: f.orgMember,
		f.staff.ID:     f.staff,
	}}
	f.svc = NewService(f.orders, f.menu, f.users, f.events, f.push, zap.NewNop())
	return f
}

func TestPlaceOrderComputesTotal(t *testing.T) {
	f := newCafeFixture(t)

	order, err := f.svc.PlaceOrder(context.Background(), f.member.ID, []OrderLine{
		{MenuItemID: f.coffee.ID, Quantity: 2},
		{MenuItemID: f.sandwich.ID, Quantity: 1},
	}, models.BilledToPersonal, "no sugar")

	require.NoError(t, err)
	assert.Equal(t, 2*450+900, order.TotalAmountCents)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, models.PaymentUnpaid, order.PaymentStatus)
	assert.Equal(t, models.BilledToPersonal, order.BilledTo)
	assert.Nil(t, order.OrgID)
	assert.Equal(t, "gulberg", order.Site)
	require.Len(t, order.Items, 2)
}

func TestPlaceOrderCapturesPriceAtOrderTime(t *testing.T) {
	f := newCafeFixture(t)

	order, err := f.svc.PlaceOrder(context.Background(), f.member.ID, []OrderLine{
		{MenuItemID: f.coffee.ID, Quantity: 1},
	}, models.BilledToPersonal, "")
	require.NoError(t, err)

	// A later menu price change must not rewrite existing orders.
	f.coffee.PriceCents = 9999

	stored, err := f.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 450, stored.TotalAmountCents)
	assert.Equal(t, 450, stored.Items[0].UnitPriceCents)
	assert.Equal(t, "Flat White", stored.Items[0].MenuItemName)
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newCafeFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		lines   []OrderLine
		wantErr error
	}{
		{"no items", nil, ErrEmptyOrder},
		{"zero quantity", []OrderLine{{MenuItemID: f.coffee.ID, Quantity: 0}}, ErrEmptyOrder},
		{"negative quantity", []OrderLine{{MenuItemID: f.coffee.ID, Quantity: -1}}, ErrEmptyOrder},
		{"unknown item", []OrderLine{{MenuItemID: uuid.New(), Quantity: 1}}, ErrNotFound},
		{"item off menu", []OrderLine{{MenuItemID: f.offMenu.ID, Quantity: 1}}, ErrItemUnavailable},
		{"item from another site", []OrderLine{{MenuItemID: f.remote.ID, Quantity: 1}}, ErrItemUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.PlaceOrder(ctx, f.member.ID, tt.lines, models.BilledToPersonal, "")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPlaceOrderOrgBilling(t *testing.T) {
	f := newCafeFixture(t)

	order, err := f.svc.PlaceOrder(context.Background(), f.orgMember.ID, []OrderLine{
		{MenuItemID: f.coffee.ID, Quantity: 1},
	}, models.BilledToOrganization, "")

	require.NoError(t, err)
	assert.Equal(t, models.BilledToOrganization, order.BilledTo)
	require.NotNil(t, order.OrgID)
	assert.Equal(t, *f.orgMember.OrganizationID, *order.OrgID)
	assert.Equal(t, models.PaymentInvoiced, order.PaymentStatus)
}

func TestPlaceOrderOrgBillingWithoutDelegation(t *testing.T) {
	f := newCafeFixture(t)
	// Plain member has no organization at all.
	_, err := f.svc.PlaceOrder(context.Background(), f.member.ID, []OrderLine{
		{MenuItemID: f.coffee.ID, Quantity: 1},
	}, models.BilledToOrganization, "")
	assert.ErrorIs(t, err, billing.ErrUnauthorized)

	// Org member whose café delegation flag was revoked.
	f.orgMember.CanChargeCafeToOrg = false
	_, err = f.svc.PlaceOrder(context.Background(), f.orgMember.ID, []OrderLine{
		{MenuItemID: f.coffee.ID, Quantity: 1},
	}, models.BilledToOrganization, "")
	assert.ErrorIs(t, err, billing.ErrUnauthorized)
}

func TestPlaceOrderNotifiesStaff(t *testing.T) {
	f := newCafeFixture(t)

	_, err := f.svc.PlaceOrder(context.Background(), f.member.ID, []OrderLine{
		{MenuItemID: f.coffee.ID, Quantity: 1},
	}, models.BilledToPersonal, "")
	require.NoError(t, err)

	require.Len(t, f.events.calls, 1)
	assert.Equal(t, "cafe:gulberg", f.events.calls[0].topic)
	assert.Equal(t, EventOrderCreated, f.events.calls[0].event)
	assert.Equal(t, []string{EventOrderCreated}, f.push.events)
}

func placeTestOrder(t *testing.T, f *cafeFixture) *models.CafeOrder {
	t.Helper()
	order, err := f.svc.PlaceOrder(context.Background(), f.member.ID, []OrderLine{
		{MenuItemID: f.coffee.ID, Quantity: 1},
	}, models.BilledToPersonal, "")
	require.NoError(t, err)
	return order
}

func TestAdvanceStatusHappyPath(t *testing.T) {
	f := newCafeFixture(t)
	order := placeTestOrder(t, f)
	ctx := context.Background()

	for _, next := range []models.OrderStatus{
		models.OrderPreparing, models.OrderReady, models.OrderDelivered,
	} {
		updated, err := f.svc.AdvanceStatus(ctx, order.ID, next, f.staff)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	// order_created plus three transitions.
	assert.Len(t, f.events.calls, 4)
	assert.Equal(t, EventOrderStatusChanged, f.events.calls[3].event)
}

func TestAdvanceStatusRejectsIllegalTransitions(t *testing.T) {
	f := newCafeFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		from models.OrderStatus
		to   models.OrderStatus
	}{
		{"pending to ready", models.OrderPending, models.OrderReady},
		{"pending to delivered", models.OrderPending, models.OrderDelivered},
		{"preparing to delivered", models.OrderPreparing, models.OrderDelivered},
		{"delivered to preparing", models.OrderDelivered, models.OrderPreparing},
		{"delivered to cancelled", models.OrderDelivered, models.OrderCancelled},
		{"cancelled to preparing", models.OrderCancelled, models.OrderPreparing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := placeTestOrder(t, f)
			f.orders.mu.Lock()
			f.orders.orders[order.ID].Status = tt.from
			f.orders.mu.Unlock()

			_, err := f.svc.AdvanceStatus(ctx, order.ID, tt.to, f.staff)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestAdvanceStatusRequiresCapability(t *testing.T) {
	f := newCafeFixture(t)
	order := placeTestOrder(t, f)

	_, err := f.svc.AdvanceStatus(context.Background(), order.ID, models.OrderPreparing, f.member)
	assert.ErrorIs(t, err, billing.ErrUnauthorized)
}

func TestAdvanceStatusAdminAllowed(t *testing.T) {
	f := newCafeFixture(t)
	order := placeTestOrder(t, f)
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin, Site: "gulberg"}

	updated, err := f.svc.AdvanceStatus(context.Background(), order.ID, models.OrderPreparing, admin)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPreparing, updated.Status)
}

func TestCancelOwn(t *testing.T) {
	t.Run("owner cancels pending order", func(t *testing.T) {
		f := newCafeFixture(t)
		order := placeTestOrder(t, f)

		updated, err := f.svc.CancelOwn(context.Background(), order.ID, f.member)
		require.NoError(t, err)
		assert.Equal(t, models.OrderCancelled, updated.Status)
	})

	t.Run("stranger cannot cancel", func(t *testing.T) {
		f := newCafeFixture(t)
		order := placeTestOrder(t, f)

		_, err := f.svc.CancelOwn(context.Background(), order.ID, f.orgMember)
		assert.ErrorIs(t, err, billing.ErrUnauthorized)
	})

	t.Run("delivered order cannot be cancelled", func(t *testing.T) {
		f := newCafeFixture(t)
		order := placeTestOrder(t, f)
		f.orders.mu.Lock()
		f.orders.orders[order.ID].Status = models.OrderDelivered
		f.orders.mu.Unlock()

		_, err := f.svc.CancelOwn(context.Background(), order.ID, f.member)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}
