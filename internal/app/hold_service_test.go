package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/marcioluisms/hotelly2-sub000/internal/domain"
)

// stepClock is a mutable clock so tests can cross a hold's deadline.
type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

type fakeQuoter struct {
	nightly  int64
	currency string
	err      error
}

func (q fakeQuoter) Quote(_ context.Context, _, _ string, checkin, checkout time.Time, _ int) (Quote, error) {
	if q.err != nil {
		return Quote{}, q.err
	}
	nights := int64(len(domain.Nights(checkin, checkout)))
	return Quote{Total: q.nightly * nights, Currency: q.currency}, nil
}

type fakeScheduler struct {
	scheduled []string
	err       error
}

func (s *fakeScheduler) ScheduleExpiry(_ context.Context, holdID string, _ time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.scheduled = append(s.scheduled, holdID)
	return nil
}

func TestHoldService_Create(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ttl := 15 * time.Minute
	checkin := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	checkout := time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC)

	makeSvc := func(capacity int) (*HoldService, *fakeHoldStore, *fakeScheduler) {
		store := newFakeHoldStore()
		store.seedInventory("prop-1", "rt-1", checkin, checkout, capacity)
		sched := &fakeScheduler{}
		svc := NewHoldService(store, fakeQuoter{nightly: 10000, currency: "EUR"}, &stepClock{now: now},
			WithHoldTTL(ttl), WithExpiryScheduler(sched))
		return svc, store, sched
	}

	t.Run("creates hold when every night has capacity", func(t *testing.T) {
		svc, store, sched := makeSvc(2)

		hold, err := svc.Create(context.Background(), CreateHoldInput{
			PropertyID:  "prop-1",
			RoomTypeID:  "rt-1",
			Checkin:     checkin,
			Checkout:    checkout,
			Guests:      2,
			CreateToken: "tok-1",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if hold.ID == "" {
			t.Fatalf("expected hold ID to be set")
		}
		if hold.Status != domain.HoldStatusActive {
			t.Fatalf("expected active status, got %s", hold.Status)
		}
		if !hold.ExpiresAt.Equal(now.Add(ttl)) {
			t.Fatalf("expected expires_at %v, got %v", now.Add(ttl), hold.ExpiresAt)
		}
		if hold.TotalAmount != 30000 || hold.Currency != "EUR" {
			t.Fatalf("expected 30000 EUR, got %d %s", hold.TotalAmount, hold.Currency)
		}
		for _, night := range hold.Nights() {
			if got := store.heldAt("prop-1", "rt-1", night); got != 1 {
				t.Fatalf("expected held=1 on %v, got %d", night, got)
			}
		}
		if len(store.events) != 1 || store.events[0].Type != domain.EventHoldCreated {
			t.Fatalf("expected one HOLD_CREATED event, got %+v", store.events)
		}
		if len(sched.scheduled) != 1 || sched.scheduled[0] != hold.ID {
			t.Fatalf("expected expiry scheduled for %s, got %v", hold.ID, sched.scheduled)
		}
	})

	t.Run("rejects missing token", func(t *testing.T) {
		svc, _, _ := makeSvc(1)
		_, err := svc.Create(context.Background(), CreateHoldInput{
			PropertyID: "prop-1", RoomTypeID: "rt-1", Checkin: checkin, Checkout: checkout,
		})
		if !errors.Is(err, domain.ErrTokenRequired) {
			t.Fatalf("expected ErrTokenRequired, got %v", err)
		}
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		svc, _, _ := makeSvc(1)
		_, err := svc.Create(context.Background(), CreateHoldInput{
			PropertyID: "prop-1", RoomTypeID: "rt-1", Checkin: checkout, Checkout: checkin,
			CreateToken: "tok-1",
		})
		if !errors.Is(err, domain.ErrInvalidRange) {
			t.Fatalf("expected ErrInvalidRange, got %v", err)
		}
	})

	t.Run("one full night fails the whole attempt", func(t *testing.T) {
		svc, store, _ := makeSvc(1)
		// Saturate the middle night only.
		store.setHeld("prop-1", "rt-1", checkin.AddDate(0, 0, 1), 1)

		_, err := svc.Create(context.Background(), CreateHoldInput{
			PropertyID: "prop-1", RoomTypeID: "rt-1", Checkin: checkin, Checkout: checkout,
			CreateToken: "tok-2",
		})
		if !errors.Is(err, domain.ErrNoCapacity) {
			t.Fatalf("expected ErrNoCapacity, got %v", err)
		}
		// The first night's increment must have rolled back.
		if got := store.heldAt("prop-1", "rt-1", checkin); got != 0 {
			t.Fatalf("expected first night held=0 after rollback, got %d", got)
		}
	})

	t.Run("missing inventory row fails the attempt", func(t *testing.T) {
		svc, _, _ := makeSvc(1)
		_, err := svc.Create(context.Background(), CreateHoldInput{
			PropertyID: "prop-1", RoomTypeID: "rt-1",
			Checkin:     checkin,
			Checkout:    checkout.AddDate(0, 0, 5),
			CreateToken: "tok-3",
		})
		if !errors.Is(err, domain.ErrInventoryMissing) {
			t.Fatalf("expected ErrInventoryMissing, got %v", err)
		}
	})

	t.Run("replaying the create token returns the original hold", func(t *testing.T) {
		svc, store, _ := makeSvc(1)

		in := CreateHoldInput{
			PropertyID: "prop-1", RoomTypeID: "rt-1", Checkin: checkin, Checkout: checkout,
			CreateToken: "tok-4",
		}
		first, err := svc.Create(context.Background(), in)
		if err != nil {
			t.Fatalf("first create: %v", err)
		}
		second, err := svc.Create(context.Background(), in)
		if err != nil {
			t.Fatalf("replay: %v", err)
		}
		if second.ID != first.ID {
			t.Fatalf("expected replay to return hold %s, got %s", first.ID, second.ID)
		}
		// Capacity is 1; a second physical claim would have failed, so the
		// ledger must not have been touched again.
		for _, night := range first.Nights() {
			if got := store.heldAt("prop-1", "rt-1", night); got != 1 {
				t.Fatalf("expected held=1 on %v after replay, got %d", night, got)
			}
		}
	})

	t.Run("token reuse with different stay conflicts", func(t *testing.T) {
		svc, _, _ := makeSvc(2)

		_, err := svc.Create(context.Background(), CreateHoldInput{
			PropertyID: "prop-1", RoomTypeID: "rt-1", Checkin: checkin, Checkout: checkout,
			CreateToken: "tok-5",
		})
		if err != nil {
			t.Fatalf("first create: %v", err)
		}
		_, err = svc.Create(context.Background(), CreateHoldInput{
			PropertyID: "prop-1", RoomTypeID: "rt-1",
			Checkin:     checkin,
			Checkout:    checkout.AddDate(0, 0, -1),
			CreateToken: "tok-5",
		})
		if !errors.Is(err, domain.ErrIdempotencyConflict) {
			t.Fatalf("expected ErrIdempotencyConflict, got %v", err)
		}
	})

	t.Run("scheduler failure does not fail the create", func(t *testing.T) {
		store := newFakeHoldStore()
		store.seedInventory("prop-1", "rt-1", checkin, checkout, 1)
		sched := &fakeScheduler{err: errors.New("broker down")}
		svc := NewHoldService(store, fakeQuoter{nightly: 10000, currency: "EUR"}, &stepClock{now: now},
			WithExpiryScheduler(sched))

		if _, err := svc.Create(context.Background(), CreateHoldInput{
			PropertyID: "prop-1", RoomTypeID: "rt-1", Checkin: checkin, Checkout: checkout,
			CreateToken: "tok-6",
		}); err != nil {
			t.Fatalf("expected create to succeed despite scheduler error, got %v", err)
		}
	})
}

func TestHoldService_Expire(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	checkin := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	checkout := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)

	setup := func() (*HoldService, *fakeHoldStore, *stepClock) {
		store := newFakeHoldStore()
		store.seedInventory("prop-1", "rt-1", checkin, checkout, 1)
		clk := &stepClock{now: now}
		svc := NewHoldService(store, fakeQuoter{nightly: 10000, currency: "EUR"}, clk,
			WithHoldTTL(15*time.Minute))
		return svc, store, clk
	}

	create := func(t *testing.T, svc *HoldService, token string) domain.Hold {
		t.Helper()
		hold, err := svc.Create(context.Background(), CreateHoldInput{
			PropertyID: "prop-1", RoomTypeID: "rt-1", Checkin: checkin, Checkout: checkout,
			CreateToken: token,
		})
		if err != nil {
			t.Fatalf("create hold: %v", err)
		}
		return hold
	}

	t.Run("expires a due hold and releases its nights", func(t *testing.T) {
		svc, store, clk := setup()
		hold := create(t, svc, "tok-1")
		clk.now = hold.ExpiresAt

		result, err := svc.Expire(context.Background(), hold.ID, "task-1")
		if err != nil {
			t.Fatalf("expire: %v", err)
		}
		if result.Outcome != OutcomeExpired {
			t.Fatalf("expected expired, got %s", result.Outcome)
		}
		for _, night := range hold.Nights() {
			if got := store.heldAt("prop-1", "rt-1", night); got != 0 {
				t.Fatalf("expected held=0 on %v, got %d", night, got)
			}
		}
		if store.holds[hold.ID].Status != domain.HoldStatusExpired {
			t.Fatalf("expected status expired, got %s", store.holds[hold.ID].Status)
		}
	})

	t.Run("missing hold is a noop", func(t *testing.T) {
		svc, _, _ := setup()
		result, err := svc.Expire(context.Background(), "nope", "task-1")
		if err != nil {
			t.Fatalf("expire: %v", err)
		}
		if result.Outcome != OutcomeNoop {
			t.Fatalf("expected noop, got %s", result.Outcome)
		}
	})

	t.Run("early delivery preserves the task token", func(t *testing.T) {
		svc, store, clk := setup()
		hold := create(t, svc, "tok-2")

		// Delivered one minute before the deadline.
		clk.now = hold.ExpiresAt.Add(-time.Minute)
		result, err := svc.Expire(context.Background(), hold.ID, "task-2")
		if err != nil {
			t.Fatalf("early expire: %v", err)
		}
		if result.Outcome != OutcomeNotExpiredYet {
			t.Fatalf("expected not_expired_yet, got %s", result.Outcome)
		}
		if !result.ExpiresAt.Equal(hold.ExpiresAt) {
			t.Fatalf("expected deadline %v, got %v", hold.ExpiresAt, result.ExpiresAt)
		}
		if store.processed["task-2"] {
			t.Fatalf("early delivery must not consume the task token")
		}

		// The redelivered task, same token, succeeds after the deadline.
		clk.now = hold.ExpiresAt
		result, err = svc.Expire(context.Background(), hold.ID, "task-2")
		if err != nil {
			t.Fatalf("redelivered expire: %v", err)
		}
		if result.Outcome != OutcomeExpired {
			t.Fatalf("expected expired on redelivery, got %s", result.Outcome)
		}
	})

	t.Run("duplicate task token collapses", func(t *testing.T) {
		svc, store, clk := setup()
		hold := create(t, svc, "tok-3")
		clk.now = hold.ExpiresAt
		store.processed["task-3"] = true

		result, err := svc.Expire(context.Background(), hold.ID, "task-3")
		if err != nil {
			t.Fatalf("duplicate expire: %v", err)
		}
		if result.Outcome != OutcomeDuplicate {
			t.Fatalf("expected duplicate, got %s", result.Outcome)
		}
		if store.holds[hold.ID].Status != domain.HoldStatusActive {
			t.Fatalf("duplicate delivery must not change the hold")
		}
	})

	t.Run("expired hold is a noop for a later attempt", func(t *testing.T) {
		svc, _, clk := setup()
		hold := create(t, svc, "tok-4")
		clk.now = hold.ExpiresAt

		if _, err := svc.Expire(context.Background(), hold.ID, "task-4"); err != nil {
			t.Fatalf("first expire: %v", err)
		}
		result, err := svc.Expire(context.Background(), hold.ID, "task-5")
		if err != nil {
			t.Fatalf("second expire: %v", err)
		}
		if result.Outcome != OutcomeNoop {
			t.Fatalf("expected noop, got %s", result.Outcome)
		}
	})
}

func TestHoldService_Convert(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	checkin := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	checkout := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)

	setup := func() (*HoldService, *fakeHoldStore, *stepClock) {
		store := newFakeHoldStore()
		store.seedInventory("prop-1", "rt-1", checkin, checkout, 1)
		clk := &stepClock{now: now}
		svc := NewHoldService(store, fakeQuoter{nightly: 10000, currency: "EUR"}, clk)
		return svc, store, clk
	}

	create := func(t *testing.T, svc *HoldService, token string) domain.Hold {
		t.Helper()
		hold, err := svc.Create(context.Background(), CreateHoldInput{
			PropertyID: "prop-1", RoomTypeID: "rt-1", Checkin: checkin, Checkout: checkout,
			Guests:      2,
			CreateToken: token,
		})
		if err != nil {
			t.Fatalf("create hold: %v", err)
		}
		return hold
	}

	t.Run("moves nights from held to booked", func(t *testing.T) {
		svc, store, _ := setup()
		hold := create(t, svc, "tok-1")

		result, err := svc.Convert(context.Background(), hold.ID, "pay-1", "task-1")
		if err != nil {
			t.Fatalf("convert: %v", err)
		}
		if result.Outcome != OutcomeConverted {
			t.Fatalf("expected converted, got %s", result.Outcome)
		}
		res := result.Reservation
		if res.Status != domain.ReservationStatusConfirmed {
			t.Fatalf("expected confirmed reservation, got %s", res.Status)
		}
		if res.HoldID != hold.ID || res.TotalAmount != hold.TotalAmount {
			t.Fatalf("reservation does not carry the hold terms: %+v", res)
		}
		for _, night := range hold.Nights() {
			if held := store.heldAt("prop-1", "rt-1", night); held != 0 {
				t.Fatalf("expected held=0 on %v, got %d", night, held)
			}
			if booked := store.bookedAt("prop-1", "rt-1", night); booked != 1 {
				t.Fatalf("expected booked=1 on %v, got %d", night, booked)
			}
		}
		if store.holds[hold.ID].Status != domain.HoldStatusConverted {
			t.Fatalf("expected hold converted, got %s", store.holds[hold.ID].Status)
		}
		// HOLD_CREATED plus payment, converted, confirmed.
		if len(store.events) != 4 {
			t.Fatalf("expected 4 events, got %d", len(store.events))
		}
	})

	t.Run("converting an expired hold is a noop", func(t *testing.T) {
		svc, _, clk := setup()
		hold := create(t, svc, "tok-2")
		clk.now = hold.ExpiresAt
		if _, err := svc.Expire(context.Background(), hold.ID, "task-exp"); err != nil {
			t.Fatalf("expire: %v", err)
		}

		result, err := svc.Convert(context.Background(), hold.ID, "pay-2", "task-2")
		if err != nil {
			t.Fatalf("convert: %v", err)
		}
		if result.Outcome != OutcomeNoop {
			t.Fatalf("expected noop after expire, got %s", result.Outcome)
		}
	})

	t.Run("expiring a converted hold is a noop", func(t *testing.T) {
		svc, _, clk := setup()
		hold := create(t, svc, "tok-3")
		if _, err := svc.Convert(context.Background(), hold.ID, "pay-3", "task-3"); err != nil {
			t.Fatalf("convert: %v", err)
		}

		clk.now = hold.ExpiresAt
		result, err := svc.Expire(context.Background(), hold.ID, "task-4")
		if err != nil {
			t.Fatalf("expire: %v", err)
		}
		if result.Outcome != OutcomeNoop {
			t.Fatalf("expected noop after convert, got %s", result.Outcome)
		}
	})

	t.Run("duplicate payment token collapses", func(t *testing.T) {
		svc, store, _ := setup()
		hold := create(t, svc, "tok-4")
		store.processed["task-5"] = true

		result, err := svc.Convert(context.Background(), hold.ID, "pay-4", "task-5")
		if err != nil {
			t.Fatalf("convert: %v", err)
		}
		if result.Outcome != OutcomeDuplicate {
			t.Fatalf("expected duplicate, got %s", result.Outcome)
		}
	})

	t.Run("strict release surfaces ledger underflow", func(t *testing.T) {
		svc, store, _ := setup()
		hold := create(t, svc, "tok-5")
		// Corrupt the ledger so the held counter is already zero.
		store.setHeld("prop-1", "rt-1", checkin, 0)

		_, err := svc.Convert(context.Background(), hold.ID, "pay-5", "task-6")
		if !errors.Is(err, domain.ErrLedgerUnderflow) {
			t.Fatalf("expected ErrLedgerUnderflow, got %v", err)
		}
	})
}

func TestHoldService_DueForExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeHoldStore()
	store.holds["h1"] = domain.Hold{ID: "h1", Status: domain.HoldStatusActive, ExpiresAt: now.Add(-time.Minute)}
	store.holds["h2"] = domain.Hold{ID: "h2", Status: domain.HoldStatusActive, ExpiresAt: now.Add(time.Minute)}
	store.holds["h3"] = domain.Hold{ID: "h3", Status: domain.HoldStatusExpired, ExpiresAt: now.Add(-time.Hour)}

	svc := NewHoldService(store, fakeQuoter{}, &stepClock{now: now})
	due, err := svc.DueForExpiry(context.Background(), 10)
	if err != nil {
		t.Fatalf("due for expiry: %v", err)
	}
	if len(due) != 1 || due[0].ID != "h1" {
		t.Fatalf("expected only h1 due, got %+v", due)
	}
}

// fakeHoldStore is an in-memory HoldStore. WithTx snapshots the state and
// restores it on error, mirroring the rollback the real store provides.
type fakeHoldStore struct {
	holds        map[string]domain.Hold
	holdNights   map[string][]domain.HoldNight
	inventory    map[string]*nightCounter
	reservations map[string]domain.Reservation
	processed    map[string]bool
	events       []domain.Event
}

type nightCounter struct {
	capacity int
	booked   int
	held     int
}

func newFakeHoldStore() *fakeHoldStore {
	return &fakeHoldStore{
		holds:        make(map[string]domain.Hold),
		holdNights:   make(map[string][]domain.HoldNight),
		inventory:    make(map[string]*nightCounter),
		reservations: make(map[string]domain.Reservation),
		processed:    make(map[string]bool),
	}
}

func nightKey(propertyID, roomTypeID string, night time.Time) string {
	return propertyID + "|" + roomTypeID + "|" + night.Format("2006-01-02")
}

func (f *fakeHoldStore) seedInventory(propertyID, roomTypeID string, from, to time.Time, capacity int) {
	for _, night := range domain.Nights(from, to) {
		f.inventory[nightKey(propertyID, roomTypeID, night)] = &nightCounter{capacity: capacity}
	}
}

func (f *fakeHoldStore) setHeld(propertyID, roomTypeID string, night time.Time, held int) {
	f.inventory[nightKey(propertyID, roomTypeID, night)].held = held
}

func (f *fakeHoldStore) heldAt(propertyID, roomTypeID string, night time.Time) int {
	if c := f.inventory[nightKey(propertyID, roomTypeID, night)]; c != nil {
		return c.held
	}
	return 0
}

func (f *fakeHoldStore) bookedAt(propertyID, roomTypeID string, night time.Time) int {
	if c := f.inventory[nightKey(propertyID, roomTypeID, night)]; c != nil {
		return c.booked
	}
	return 0
}

func (f *fakeHoldStore) snapshot() *fakeHoldStore {
	snap := newFakeHoldStore()
	for k, v := range f.holds {
		snap.holds[k] = v
	}
	for k, v := range f.holdNights {
		snap.holdNights[k] = append([]domain.HoldNight(nil), v...)
	}
	for k, v := range f.inventory {
		c := *v
		snap.inventory[k] = &c
	}
	for k, v := range f.reservations {
		snap.reservations[k] = v
	}
	for k, v := range f.processed {
		snap.processed[k] = v
	}
	snap.events = append([]domain.Event(nil), f.events...)
	return snap
}

func (f *fakeHoldStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := f.snapshot()
	if err := fn(ctx); err != nil {
		*f = *snap
		return err
	}
	return nil
}

func (f *fakeHoldStore) FindHoldByCreateToken(_ context.Context, propertyID, token string) (*domain.Hold, error) {
	for _, h := range f.holds {
		if h.PropertyID == propertyID && h.CreateToken == token {
			hold := h
			return &hold, nil
		}
	}
	return nil, nil
}

func (f *fakeHoldStore) GetHoldForUpdate(_ context.Context, holdID string) (domain.Hold, error) {
	h, ok := f.holds[holdID]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return h, nil
}

func (f *fakeHoldStore) CreateHold(_ context.Context, hold domain.Hold, nights []domain.HoldNight) error {
	for _, h := range f.holds {
		if h.PropertyID == hold.PropertyID && h.CreateToken == hold.CreateToken {
			return domain.ErrIdempotencyConflict
		}
	}
	f.holds[hold.ID] = hold
	f.holdNights[hold.ID] = nights
	return nil
}

func (f *fakeHoldStore) UpdateHoldStatus(_ context.Context, holdID string, from, to domain.HoldStatus) error {
	h, ok := f.holds[holdID]
	if !ok || h.Status != from {
		return domain.ErrHoldNotActive
	}
	h.Status = to
	f.holds[holdID] = h
	return nil
}

func (f *fakeHoldStore) CreateReservation(_ context.Context, res domain.Reservation) error {
	for _, existing := range f.reservations {
		if existing.HoldID == res.HoldID {
			return domain.ErrHoldNotActive
		}
	}
	f.reservations[res.ID] = res
	return nil
}

func (f *fakeHoldStore) ListExpiryDue(_ context.Context, now time.Time, limit int) ([]domain.Hold, error) {
	var due []domain.Hold
	for _, h := range f.holds {
		if h.Status == domain.HoldStatusActive && h.ExpiredBy(now) {
			due = append(due, domain.Hold{ID: h.ID, ExpiresAt: h.ExpiresAt})
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (f *fakeHoldStore) LockNights(_ context.Context, propertyID, roomTypeID string, nights []time.Time) error {
	for _, night := range nights {
		if f.inventory[nightKey(propertyID, roomTypeID, night)] == nil {
			return domain.ErrInventoryMissing
		}
	}
	return nil
}

func (f *fakeHoldStore) IncrementHeld(_ context.Context, propertyID, roomTypeID string, night time.Time) (bool, error) {
	c := f.inventory[nightKey(propertyID, roomTypeID, night)]
	if c == nil || c.capacity < c.booked+c.held+1 {
		return false, nil
	}
	c.held++
	return true, nil
}

func (f *fakeHoldStore) IncrementBooked(_ context.Context, propertyID, roomTypeID string, night time.Time) (bool, error) {
	c := f.inventory[nightKey(propertyID, roomTypeID, night)]
	if c == nil || c.capacity < c.booked+c.held+1 {
		return false, nil
	}
	c.booked++
	return true, nil
}

func (f *fakeHoldStore) ReleaseHeldIfPresent(_ context.Context, propertyID, roomTypeID string, night time.Time) error {
	if c := f.inventory[nightKey(propertyID, roomTypeID, night)]; c != nil && c.held > 0 {
		c.held--
	}
	return nil
}

func (f *fakeHoldStore) ReleaseHeldOrFail(_ context.Context, propertyID, roomTypeID string, night time.Time) error {
	c := f.inventory[nightKey(propertyID, roomTypeID, night)]
	if c == nil || c.held == 0 {
		return fmt.Errorf("release held %s: %w", night.Format("2006-01-02"), domain.ErrLedgerUnderflow)
	}
	c.held--
	return nil
}

func (f *fakeHoldStore) MarkTaskProcessed(_ context.Context, taskID string, _ time.Time) (bool, error) {
	if f.processed[taskID] {
		return false, nil
	}
	f.processed[taskID] = true
	return true, nil
}

func (f *fakeHoldStore) AppendEvent(_ context.Context, ev domain.Event) error {
	f.events = append(f.events, ev)
	return nil
}
