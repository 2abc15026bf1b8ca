package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/marcioluisms/hotelly2-sub000/internal/app"
	"github.com/marcioluisms/hotelly2-sub000/internal/clock"
	"github.com/marcioluisms/hotelly2-sub000/internal/domain"
	"github.com/marcioluisms/hotelly2-sub000/internal/testutil"
)

type flatQuoter struct {
	nightly int64
}

func (q flatQuoter) Quote(_ context.Context, _, _ string, checkin, checkout time.Time, _ int) (app.Quote, error) {
	nights := int64(len(domain.Nights(checkin, checkout)))
	return app.Quote{Total: q.nightly * nights, Currency: "EUR"}, nil
}

// Five callers race for the last unit of a two-night stay, each in its own
// transaction. The row locks serialize them: exactly one claims the unit,
// the rest fail the capacity guard and roll back cleanly.
func TestConcurrentHoldCreatesLastUnit(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	checkin := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	checkout := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	propertyID, roomTypeID := testutil.SeedPropertyAndRoomType(t, ctx, pool, "free", 0, 0)
	testutil.SeedInventory(t, ctx, pool, propertyID, roomTypeID, checkin, checkout, 1, 10000, "EUR")

	repo := NewHoldRepository(pool)
	svc := app.NewHoldService(repo, flatQuoter{nightly: 10000}, clock.NewFixed(now))

	const callers = 5
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(ctx, app.CreateHoldInput{
				PropertyID:  propertyID,
				RoomTypeID:  roomTypeID,
				Checkin:     checkin,
				Checkout:    checkout,
				Guests:      2,
				CreateToken: fmt.Sprintf("tok-%d", i),
			})
		}(i)
	}
	wg.Wait()

	var wins, losses int
	for i, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrNoCapacity):
			losses++
		default:
			t.Fatalf("caller %d: unexpected error %v", i, err)
		}
	}
	if wins != 1 || losses != callers-1 {
		t.Fatalf("expected exactly 1 winner and %d capacity losses, got %d and %d", callers-1, wins, losses)
	}

	for _, night := range domain.Nights(checkin, checkout) {
		n, err := repo.GetNight(ctx, propertyID, roomTypeID, night)
		if err != nil {
			t.Fatalf("get night %v: %v", night, err)
		}
		if n.Held != 1 || n.Booked != 0 {
			t.Fatalf("expected held=1 booked=0 on %v after the race, got %+v", night, n)
		}
	}
}

// Expire and Convert race on a hold whose deadline has passed. They
// serialize on the hold row: the first to commit wins, the loser observes a
// non-active status and reports noop. Afterwards the inventory is either
// fully released or fully transferred to booked with exactly one
// reservation, never anything in between.
func TestExpireConvertRace(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	checkin := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	checkout := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	propertyID, roomTypeID := testutil.SeedPropertyAndRoomType(t, ctx, pool, "free", 0, 0)
	testutil.SeedInventory(t, ctx, pool, propertyID, roomTypeID, checkin, checkout, 1, 10000, "EUR")

	repo := NewHoldRepository(pool)
	creator := app.NewHoldService(repo, flatQuoter{nightly: 10000}, clock.NewFixed(now),
		app.WithHoldTTL(time.Minute))
	hold, err := creator.Create(ctx, app.CreateHoldInput{
		PropertyID:  propertyID,
		RoomTypeID:  roomTypeID,
		Checkin:     checkin,
		Checkout:    checkout,
		Guests:      2,
		CreateToken: "tok-race",
	})
	if err != nil {
		t.Fatalf("create hold: %v", err)
	}

	// Both contenders run after the deadline.
	later := app.NewHoldService(repo, flatQuoter{nightly: 10000}, clock.NewFixed(now.Add(2*time.Minute)))

	var (
		wg         sync.WaitGroup
		expireRes  app.ExpireResult
		convertRes app.ConvertResult
		expireErr  error
		convertErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		expireRes, expireErr = later.Expire(ctx, hold.ID, "task-exp")
	}()
	go func() {
		defer wg.Done()
		convertRes, convertErr = later.Convert(ctx, hold.ID, "pay-1", "task-conv")
	}()
	wg.Wait()

	if expireErr != nil || convertErr != nil {
		t.Fatalf("race must resolve cleanly: expire=%v convert=%v", expireErr, convertErr)
	}

	expired := expireRes.Outcome == app.OutcomeExpired
	converted := convertRes.Outcome == app.OutcomeConverted
	if expired == converted {
		t.Fatalf("expected exactly one terminal transition, got expire=%s convert=%s",
			expireRes.Outcome, convertRes.Outcome)
	}
	if expired && convertRes.Outcome != app.OutcomeNoop {
		t.Fatalf("losing convert must be noop, got %s", convertRes.Outcome)
	}
	if converted && expireRes.Outcome != app.OutcomeNoop {
		t.Fatalf("losing expire must be noop, got %s", expireRes.Outcome)
	}

	var status string
	if err := pool.QueryRow(ctx, `SELECT status FROM holds WHERE id = $1`, hold.ID).Scan(&status); err != nil {
		t.Fatalf("read hold status: %v", err)
	}
	wantStatus, wantBooked := "expired", 0
	if converted {
		wantStatus, wantBooked = "converted", 1
	}
	if status != wantStatus {
		t.Fatalf("expected status %s, got %s", wantStatus, status)
	}
	for _, night := range domain.Nights(checkin, checkout) {
		n, err := repo.GetNight(ctx, propertyID, roomTypeID, night)
		if err != nil {
			t.Fatalf("get night %v: %v", night, err)
		}
		if n.Held != 0 || n.Booked != wantBooked {
			t.Fatalf("expected held=0 booked=%d on %v, got %+v", wantBooked, night, n)
		}
	}

	var reservations int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM reservations WHERE hold_id = $1`, hold.ID).Scan(&reservations); err != nil {
		t.Fatalf("count reservations: %v", err)
	}
	wantReservations := 0
	if converted {
		wantReservations = 1
	}
	if reservations != wantReservations {
		t.Fatalf("expected %d reservations, got %d", wantReservations, reservations)
	}
}
