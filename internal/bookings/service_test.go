package bookings

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium-workspace/backend/config"
	"github.com/atrium-workspace/backend/internal/billing"
	"github.com/atrium-workspace/backend/internal/models"
	"github.com/atrium-workspace/backend/internal/timeutil"
)

// fakeStore is an in-memory Store whose CreateConfirmed holds a lock across
// the conflict check and insert, mirroring the transactional guarantee the
// Postgres repository provides with row locking plus the exclusion constraint.
type fakeStore struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*models.Booking
	users    *fakeUsers
}

func newFakeStore(users *fakeUsers) *fakeStore {
	return &fakeStore{bookings: make(map[uuid.UUID]*models.Booking), users: users}
}

func (s *fakeStore) CreateConfirmed(_ context.Context, b *models.Booking, deductCredits int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.bookings {
		if existing.RoomID == b.RoomID && existing.Status == models.BookingConfirmed &&
			existing.Overlaps(b.StartTime, b.EndTime) {
			return ErrSlotConflict
		}
	}
	b.ID = uuid.New()
	b.Status = models.BookingConfirmed
	b.CreatedAt = time.Now()
	copied := *b
	s.bookings[b.ID] = &copied
	if deductCredits > 0 {
		s.users.addUsed(b.UserID, deductCredits)
	}
	return nil
}

func (s *fakeStore) Cancel(_ context.Context, id uuid.UUID, refundCredits int) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.Status != models.BookingConfirmed {
		return nil, ErrInvalidTransition
	}
	b.Status = models.BookingCancelled
	if refundCredits > 0 {
		s.users.addUsed(b.UserID, -refundCredits)
	}
	copied := *b
	return &copied, nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (s *fakeStore) ListConfirmedForRoom(_ context.Context, roomID uuid.UUID, from, to time.Time) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Booking
	for _, b := range s.bookings {
		if b.RoomID == roomID && b.Status == models.BookingConfirmed && b.Overlaps(from, to) {
			list = append(list, *b)
		}
	}
	return list, nil
}

func (s *fakeStore) ListForUser(_ context.Context, userID uuid.UUID) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Booking
	for _, b := range s.bookings {
		if b.UserID == userID {
			list = append(list, *b)
		}
	}
	return list, nil
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{users: make(map[uuid.UUID]*models.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) addUsed(id uuid.UUID, amount int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.UsedCredits += amount
		if u.UsedCredits < 0 {
			u.UsedCredits = 0
		}
	}
}

type fakeRooms struct {
	rooms map[uuid.UUID]*models.MeetingRoom
}

func (f *fakeRooms) GetByID(_ context.Context, id uuid.UUID) (*models.MeetingRoom, error) {
	r, ok := f.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *r
	return &copied, nil
}

type fixture struct {
	svc   *Service
	store *fakeStore
	users *fakeUsers
	room  *models.MeetingRoom
	user  *models.User
	now   time.Time
}

func newFixture(t *testing.T, policy config.BillingConfig) *fixture {
	t.Helper()
	loc, err := timeutil.LoadLocation("Asia/Karachi")
	require.NoError(t, err)
	if policy.SlotWindowStart == 0 && policy.SlotWindowEnd == 0 {
		policy.SlotWindowStart, policy.SlotWindowEnd = 8, 20
	}

	room := &models.MeetingRoom{
		ID: uuid.New(), Name: "Boardroom", Capacity: 8,
		CreditCostPerHour: 5, IsAvailable: true, Site: "clifton",
	}
	user := &models.User{
		ID: uuid.New(), Role: models.RoleMember, Credits: 100, UsedCredits: 0, Site: "clifton",
	}
	users := newFakeUsers(user)
	store := newFakeStore(users)
	svc := NewService(store, &fakeRooms{rooms: map[uuid.UUID]*models.MeetingRoom{room.ID: room}}, users, policy, loc, nil)

	now := time.Date(2024, 6, 10, 9, 0, 0, 0, loc)
	svc.now = func() time.Time { return now }
	return &fixture{svc: svc, store: store, users: users, room: room, user: user, now: now}
}

func TestCreditCost(t *testing.T) {
	base := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		duration time.Duration
		rate     int
		expected int
	}{
		{"one hour", time.Hour, 5, 5},
		{"two hours", 2 * time.Hour, 5, 10},
		{"partial hour rounds up", 90 * time.Minute, 5, 10},
		{"thirty minutes bills a full hour", 30 * time.Minute, 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CreditCost(base, base.Add(tt.duration), tt.rate))
		})
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, config.BillingConfig{Overdraft: config.OverdraftAllow})
	ctx := context.Background()
	start := f.now.Add(2 * time.Hour)

	t.Run("end before start", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.user.ID, f.room.ID, start, start.Add(-time.Hour), models.BilledToPersonal)
		assert.ErrorIs(t, err, ErrInvalidRange)
		assert.Empty(t, f.store.bookings) // nothing persisted
	})

	t.Run("end equals start", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.user.ID, f.room.ID, start, start, models.BilledToPersonal)
		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("start in the past", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.user.ID, f.room.ID, f.now.Add(-time.Hour), f.now.Add(time.Hour), models.BilledToPersonal)
		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("unknown room", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.user.ID, uuid.New(), start, start.Add(time.Hour), models.BilledToPersonal)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("room toggled off", func(t *testing.T) {
		f.room.IsAvailable = false
		defer func() { f.room.IsAvailable = true }()
		_, err := f.svc.Create(ctx, f.user.ID, f.room.ID, start, start.Add(time.Hour), models.BilledToPersonal)
		assert.ErrorIs(t, err, ErrRoomUnavailable)
	})
}

func TestCreatePersonalDeductsCredits(t *testing.T) {
	f := newFixture(t, config.BillingConfig{Overdraft: config.OverdraftAllow})
	start := f.now.Add(2 * time.Hour)

	b, err := f.svc.Create(context.Background(), f.user.ID, f.room.ID, start, start.Add(2*time.Hour), models.BilledToPersonal)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, b.Status)
	assert.Equal(t, 10, b.CreditsUsed)
	assert.Equal(t, models.BilledToPersonal, b.BilledTo)
	assert.Nil(t, b.OrgID)
	assert.Equal(t, 10, f.user.UsedCredits)
}

func TestCreateOrgBilledSkipsCreditPool(t *testing.T) {
	f := newFixture(t, config.BillingConfig{Overdraft: config.OverdraftAllow})
	orgID := uuid.New()
	f.user.OrganizationID = &orgID
	f.user.CanChargeRoomToOrg = true
	start := f.now.Add(2 * time.Hour)

	b, err := f.svc.Create(context.Background(), f.user.ID, f.room.ID, start, start.Add(time.Hour), models.BilledToOrganization)
	require.NoError(t, err)
	assert.Equal(t, models.BilledToOrganization, b.BilledTo)
	require.NotNil(t, b.OrgID)
	assert.Equal(t, orgID, *b.OrgID)
	assert.Equal(t, 5, b.CreditsUsed) // recorded for the org statement
	assert.Equal(t, 0, f.user.UsedCredits)
}

func TestCreateOrgBilledWithoutDelegation(t *testing.T) {
	f := newFixture(t, config.BillingConfig{Overdraft: config.OverdraftAllow})
	orgID := uuid.New()
	f.user.OrganizationID = &orgID // member of an org, but no room delegation
	start := f.now.Add(2 * time.Hour)

	_, err := f.svc.Create(context.Background(), f.user.ID, f.room.ID, start, start.Add(time.Hour), models.BilledToOrganization)
	assert.ErrorIs(t, err, billing.ErrUnauthorized)
	assert.Empty(t, f.store.bookings)
}

func TestOverdraftPolicies(t *testing.T) {
	// Room costs 5/hour; user has credits=10, used=8, balance 2.
	setup := func(t *testing.T, policy config.OverdraftPolicy) *fixture {
		f := newFixture(t, config.BillingConfig{Overdraft: policy})
		f.user.Credits = 10
		f.user.UsedCredits = 8
		return f
	}

	t.Run("allow policy books into overdraft", func(t *testing.T) {
		f := setup(t, config.OverdraftAllow)
		start := f.now.Add(2 * time.Hour)
		b, err := f.svc.Create(context.Background(), f.user.ID, f.room.ID, start, start.Add(time.Hour), models.BilledToPersonal)
		require.NoError(t, err)
		assert.Equal(t, 5, b.CreditsUsed)
		assert.Equal(t, 13, f.user.UsedCredits)
		assert.Equal(t, -3, f.user.Credits-f.user.UsedCredits)
	})

	t.Run("reject policy refuses before any write", func(t *testing.T) {
		f := setup(t, config.OverdraftReject)
		start := f.now.Add(2 * time.Hour)
		_, err := f.svc.Create(context.Background(), f.user.ID, f.room.ID, start, start.Add(time.Hour), models.BilledToPersonal)
		assert.ErrorIs(t, err, ErrInsufficientCredits)
		assert.Equal(t, 8, f.user.UsedCredits)
		assert.Empty(t, f.store.bookings)
	})

	t.Run("reject policy still allows exact balance", func(t *testing.T) {
		f := setup(t, config.OverdraftReject)
		f.user.UsedCredits = 5 // balance exactly 5
		start := f.now.Add(2 * time.Hour)
		_, err := f.svc.Create(context.Background(), f.user.ID, f.room.ID, start, start.Add(time.Hour), models.BilledToPersonal)
		assert.NoError(t, err)
	})
}

func TestCreateSlotConflict(t *testing.T) {
	f := newFixture(t, config.BillingConfig{Overdraft: config.OverdraftAllow})
	ctx := context.Background()
	start := f.now.Add(2 * time.Hour)

	_, err := f.svc.Create(ctx, f.user.ID, f.room.ID, start, start.Add(time.Hour), models.BilledToPersonal)
	require.NoError(t, err)

	t.Run("identical slot", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.user.ID, f.room.ID, start, start.Add(time.Hour), models.BilledToPersonal)
		assert.ErrorIs(t, err, ErrSlotConflict)
	})

	t.Run("partial overlap", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.user.ID, f.room.ID, start.Add(30*time.Minute), start.Add(90*time.Minute), models.BilledToPersonal)
		assert.ErrorIs(t, err, ErrSlotConflict)
	})

	t.Run("back to back is allowed", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.user.ID, f.room.ID, start.Add(time.Hour), start.Add(2*time.Hour), models.BilledToPersonal)
		assert.NoError(t, err)
	})
}

func TestConcurrentCreateExactlyOneWins(t *testing.T) {
	f := newFixture(t, config.BillingConfig{Overdraft: config.OverdraftAllow})
	other := &models.User{ID: uuid.New(), Role: models.RoleMember, Credits: 100, Site: "clifton"}
	f.users.users[other.ID] = other

	start := f.now.Add(3 * time.Hour)
	end := start.Add(time.Hour)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, uid := range []uuid.UUID{f.user.ID, other.ID} {
		wg.Add(1)
		go func(i int, uid uuid.UUID) {
			defer wg.Done()
			_, errs[i] = f.svc.Create(context.Background(), uid, f.room.ID, start, end, models.BilledToPersonal)
		}(i, uid)
	}
	wg.Wait()

	succeeded, conflicted := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, ErrSlotConflict):
			conflicted++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)

	// The confirmed set holds exactly one booking for the slot.
	booked, err := f.store.ListConfirmedForRoom(context.Background(), f.room.ID, start, end)
	require.NoError(t, err)
	assert.Len(t, booked, 1)
}

func TestCancel(t *testing.T) {
	create := func(t *testing.T, f *fixture) *models.Booking {
		t.Helper()
		start := f.now.Add(2 * time.Hour)
		b, err := f.svc.Create(context.Background(), f.user.ID, f.room.ID, start, start.Add(time.Hour), models.BilledToPersonal)
		require.NoError(t, err)
		return b
	}

	t.Run("owner can cancel", func(t *testing.T) {
		f := newFixture(t, config.BillingConfig{Overdraft: config.OverdraftAllow})
		b := create(t, f)
		cancelled, err := f.svc.Cancel(context.Background(), b.ID, f.user)
		require.NoError(t, err)
		assert.Equal(t, models.BookingCancelled, cancelled.Status)
	})

	t.Run("stranger cannot cancel", func(t *testing.T) {
		f := newFixture(t, config.BillingConfig{Overdraft: config.OverdraftAllow})
		b := create(t, f)
		stranger := &models.User{ID: uuid.New(), Role: models.RoleMember}
		_, err := f.svc.Cancel(context.Background(), b.ID, stranger)
		assert.ErrorIs(t, err, billing.ErrUnauthorized)
	})

	t.Run("admin can cancel any booking", func(t *testing.T) {
		f := newFixture(t, config.BillingConfig{Overdraft: config.OverdraftAllow})
		b := create(t, f)
		admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}
		_, err := f.svc.Cancel(context.Background(), b.ID, admin)
		assert.NoError(t, err)
	})

	t.Run("double cancel rejected", func(t *testing.T) {
		f := newFixture(t, config.BillingConfig{Overdraft: config.OverdraftAllow})
		b := create(t, f)
		_, err := f.svc.Cancel(context.Background(), b.ID, f.user)
		require.NoError(t, err)
		_, err = f.svc.Cancel(context.Background(), b.ID, f.user)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("no refund by default", func(t *testing.T) {
		f := newFixture(t, config.BillingConfig{Overdraft: config.OverdraftAllow})
		b := create(t, f)
		require.Equal(t, 5, f.user.UsedCredits)
		_, err := f.svc.Cancel(context.Background(), b.ID, f.user)
		require.NoError(t, err)
		assert.Equal(t, 5, f.user.UsedCredits)
	})

	t.Run("refund when policy enabled", func(t *testing.T) {
		f := newFixture(t, config.BillingConfig{Overdraft: config.OverdraftAllow, RefundOnCancel: true})
		b := create(t, f)
		require.Equal(t, 5, f.user.UsedCredits)
		_, err := f.svc.Cancel(context.Background(), b.ID, f.user)
		require.NoError(t, err)
		assert.Equal(t, 0, f.user.UsedCredits)
	})

	t.Run("cancelled slot becomes available again", func(t *testing.T) {
		f := newFixture(t, config.BillingConfig{Overdraft: config.OverdraftAllow})
		loc := f.now.Location()
		date := timeutil.CivilDateOf(f.now.Add(24*time.Hour), loc)
		start := time.Date(date.Year, date.Month, date.Day, 10, 0, 0, 0, loc)

		b, err := f.svc.Create(context.Background(), f.user.ID, f.room.ID, start, start.Add(time.Hour), models.BilledToPersonal)
		require.NoError(t, err)

		slotAt := func(t *testing.T) models.Slot {
			t.Helper()
			slots, err := f.svc.ListAvailableSlots(context.Background(), f.room.ID, date)
			require.NoError(t, err)
			for _, s := range slots {
				if s.Start.Equal(start) {
					return s
				}
			}
			t.Fatal("slot not found")
			return models.Slot{}
		}

		assert.False(t, slotAt(t).Available)
		_, err = f.svc.Cancel(context.Background(), b.ID, f.user)
		require.NoError(t, err)
		assert.True(t, slotAt(t).Available)
	})
}

func TestListAvailableSlots(t *testing.T) {
	f := newFixture(t, config.BillingConfig{Overdraft: config.OverdraftAllow})
	loc := f.now.Location()

	t.Run("window size and past slots", func(t *testing.T) {
		// "now" is 09:00 local, so the 08:00 slot is in the past.
		date := timeutil.CivilDateOf(f.now, loc)
		slots, err := f.svc.ListAvailableSlots(context.Background(), f.room.ID, date)
		require.NoError(t, err)
		require.Len(t, slots, 12) // 08:00 through 19:00
		assert.False(t, slots[0].Available)
		assert.True(t, slots[1].Available)
	})

	t.Run("all future slots open on an empty day", func(t *testing.T) {
		date := timeutil.CivilDateOf(f.now.Add(48*time.Hour), loc)
		slots, err := f.svc.ListAvailableSlots(context.Background(), f.room.ID, date)
		require.NoError(t, err)
		for _, s := range slots {
			assert.True(t, s.Available)
		}
	})
}
