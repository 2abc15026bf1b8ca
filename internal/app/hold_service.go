package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/marcioluisms/hotelly2-sub000/internal/clock"
	"github.com/marcioluisms/hotelly2-sub000/internal/domain"
	"github.com/marcioluisms/hotelly2-sub000/internal/metrics"
)

// HoldStore is the persistence surface the hold lifecycle needs. Every
// mutating operation runs inside one WithTx call; the ledger methods act on
// rows the transaction has locked.
type HoldStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	FindHoldByCreateToken(ctx context.Context, propertyID, token string) (*domain.Hold, error)
	GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error)
	CreateHold(ctx context.Context, hold domain.Hold, nights []domain.HoldNight) error
	UpdateHoldStatus(ctx context.Context, holdID string, from, to domain.HoldStatus) error
	CreateReservation(ctx context.Context, res domain.Reservation) error
	ListExpiryDue(ctx context.Context, now time.Time, limit int) ([]domain.Hold, error)

	LockNights(ctx context.Context, propertyID, roomTypeID string, nights []time.Time) error
	IncrementHeld(ctx context.Context, propertyID, roomTypeID string, night time.Time) (bool, error)
	IncrementBooked(ctx context.Context, propertyID, roomTypeID string, night time.Time) (bool, error)
	ReleaseHeldIfPresent(ctx context.Context, propertyID, roomTypeID string, night time.Time) error
	ReleaseHeldOrFail(ctx context.Context, propertyID, roomTypeID string, night time.Time) error

	MarkTaskProcessed(ctx context.Context, taskID string, now time.Time) (bool, error)
	AppendEvent(ctx context.Context, ev domain.Event) error
}

// ExpiryScheduler enqueues a delayed expire-hold task after a hold commits.
// Delivery is at-least-once and may be lost; the sweeper is the backstop.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, holdID string, expiresAt time.Time) error
}

type HoldService struct {
	store     HoldStore
	quoter    Quoter
	clock     clock.Clock
	scheduler ExpiryScheduler
	holdTTL   time.Duration
	logger    zerolog.Logger
}

const defaultHoldTTL = 15 * time.Minute

func NewHoldService(store HoldStore, quoter Quoter, clk clock.Clock, opts ...HoldServiceOption) *HoldService {
	svc := &HoldService{
		store:   store,
		quoter:  quoter,
		clock:   clk,
		holdTTL: defaultHoldTTL,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type HoldServiceOption func(*HoldService)

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) HoldServiceOption {
	return func(s *HoldService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// WithExpiryScheduler wires the task-queue sender used after commit.
func WithExpiryScheduler(sched ExpiryScheduler) HoldServiceOption {
	return func(s *HoldService) {
		s.scheduler = sched
	}
}

func WithHoldLogger(logger zerolog.Logger) HoldServiceOption {
	return func(s *HoldService) {
		s.logger = logger
	}
}

type CreateHoldInput struct {
	PropertyID  string
	RoomTypeID  string
	Checkin     time.Time
	Checkout    time.Time
	Guests      int
	CreateToken string
}

// Create claims one held unit per night of the stay, prices it, and inserts
// the hold with its night rows, all in one transaction. Any night without a
// free unit aborts the whole attempt. Replaying the same create token
// returns the original hold without touching the ledger again.
func (s *HoldService) Create(ctx context.Context, in CreateHoldInput) (domain.Hold, error) {
	if in.CreateToken == "" {
		return domain.Hold{}, domain.ErrTokenRequired
	}
	nights := domain.Nights(in.Checkin, in.Checkout)
	if len(nights) == 0 {
		return domain.Hold{}, domain.ErrInvalidRange
	}
	if in.Guests <= 0 {
		in.Guests = 1
	}

	now := s.clock.Now()
	var result domain.Hold
	var created bool

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		existing, err := s.store.FindHoldByCreateToken(txCtx, in.PropertyID, in.CreateToken)
		if err != nil {
			return err
		}
		if existing != nil {
			if !sameHoldParams(*existing, in) {
				return domain.ErrIdempotencyConflict
			}
			result = *existing
			return nil
		}

		if err := s.store.LockNights(txCtx, in.PropertyID, in.RoomTypeID, nights); err != nil {
			return err
		}
		for _, night := range nights {
			ok, err := s.store.IncrementHeld(txCtx, in.PropertyID, in.RoomTypeID, night)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrNoCapacity
			}
		}

		quote, err := s.quoter.Quote(txCtx, in.PropertyID, in.RoomTypeID, in.Checkin, in.Checkout, in.Guests)
		if err != nil {
			return err
		}

		hold := domain.Hold{
			ID:          uuid.NewString(),
			PropertyID:  in.PropertyID,
			RoomTypeID:  in.RoomTypeID,
			Checkin:     domain.Night(in.Checkin),
			Checkout:    domain.Night(in.Checkout),
			Guests:      in.Guests,
			TotalAmount: quote.Total,
			Currency:    quote.Currency,
			Status:      domain.HoldStatusActive,
			ExpiresAt:   now.Add(s.holdTTL),
			CreateToken: in.CreateToken,
			CreatedAt:   now,
		}
		holdNights := make([]domain.HoldNight, 0, len(nights))
		for _, night := range nights {
			holdNights = append(holdNights, domain.HoldNight{
				HoldID:     hold.ID,
				RoomTypeID: hold.RoomTypeID,
				Date:       night,
				Qty:        1,
			})
		}

		if err := s.store.CreateHold(txCtx, hold, holdNights); err != nil {
			return err
		}

		ev, err := newEvent(domain.EventHoldCreated, domain.AggregateHold, hold.ID, in.CreateToken, holdEventPayload{
			HoldID:      hold.ID,
			PropertyID:  hold.PropertyID,
			RoomTypeID:  hold.RoomTypeID,
			Checkin:     hold.Checkin,
			Checkout:    hold.Checkout,
			TotalAmount: hold.TotalAmount,
			Currency:    hold.Currency,
			ExpiresAt:   hold.ExpiresAt,
		}, now)
		if err != nil {
			return err
		}
		if err := s.store.AppendEvent(txCtx, ev); err != nil {
			return err
		}

		result = hold
		created = true
		return nil
	})
	if err != nil {
		// A concurrent create with the same token can commit between our
		// token lookup and insert; re-read so the retry stays idempotent.
		if errors.Is(err, domain.ErrIdempotencyConflict) {
			existing, readErr := s.store.FindHoldByCreateToken(ctx, in.PropertyID, in.CreateToken)
			if readErr == nil && existing != nil && sameHoldParams(*existing, in) {
				return *existing, nil
			}
		}
		return domain.Hold{}, err
	}

	// A replay returns the stored hold: its expiry task is already queued
	// and it was counted when first applied.
	if created {
		metrics.IncHold("created")
		s.scheduleExpiry(ctx, result)
	}
	return result, nil
}

func (s *HoldService) scheduleExpiry(ctx context.Context, hold domain.Hold) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.ScheduleExpiry(ctx, hold.ID, hold.ExpiresAt); err != nil {
		// The sweeper re-enqueues overdue holds, so losing this is safe.
		s.logger.Warn().Err(err).Str("hold_id", hold.ID).Msg("schedule expiry failed")
	}
}

func sameHoldParams(h domain.Hold, in CreateHoldInput) bool {
	return h.RoomTypeID == in.RoomTypeID &&
		h.Checkin.Equal(domain.Night(in.Checkin)) &&
		h.Checkout.Equal(domain.Night(in.Checkout))
}

// HoldOutcome names how a hold transition attempt resolved.
type HoldOutcome string

const (
	OutcomeExpired       HoldOutcome = "expired"
	OutcomeConverted     HoldOutcome = "converted"
	OutcomeNoop          HoldOutcome = "noop"
	OutcomeNotExpiredYet HoldOutcome = "not_expired_yet"
	OutcomeDuplicate     HoldOutcome = "duplicate"
)

type ExpireResult struct {
	Outcome   HoldOutcome
	ExpiresAt time.Time
}

// Expire releases a hold's nights back to the ledger once its deadline has
// passed. A missing or already-resolved hold is a noop. A hold that is not
// due yet returns not_expired_yet WITHOUT consuming the task token, so the
// same token still works when redelivered after the real deadline.
func (s *HoldService) Expire(ctx context.Context, holdID, taskToken string) (ExpireResult, error) {
	var result ExpireResult

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.store.GetHoldForUpdate(txCtx, holdID)
		if err != nil {
			if errors.Is(err, domain.ErrHoldNotFound) {
				result = ExpireResult{Outcome: OutcomeNoop}
				return nil
			}
			return err
		}
		if hold.Status != domain.HoldStatusActive {
			result = ExpireResult{Outcome: OutcomeNoop}
			return nil
		}

		now := s.clock.Now()
		if !hold.ExpiredBy(now) {
			result = ExpireResult{Outcome: OutcomeNotExpiredYet, ExpiresAt: hold.ExpiresAt}
			return nil
		}

		if taskToken != "" {
			fresh, err := s.store.MarkTaskProcessed(txCtx, taskToken, now)
			if err != nil {
				return err
			}
			if !fresh {
				result = ExpireResult{Outcome: OutcomeDuplicate}
				return nil
			}
		}

		for _, night := range hold.Nights() {
			if err := s.store.ReleaseHeldIfPresent(txCtx, hold.PropertyID, hold.RoomTypeID, night); err != nil {
				return err
			}
		}
		if err := s.store.UpdateHoldStatus(txCtx, hold.ID, domain.HoldStatusActive, domain.HoldStatusExpired); err != nil {
			return err
		}

		ev, err := newEvent(domain.EventHoldExpired, domain.AggregateHold, hold.ID, taskToken, holdEventPayload{
			HoldID:      hold.ID,
			PropertyID:  hold.PropertyID,
			RoomTypeID:  hold.RoomTypeID,
			Checkin:     hold.Checkin,
			Checkout:    hold.Checkout,
			TotalAmount: hold.TotalAmount,
			Currency:    hold.Currency,
		}, now)
		if err != nil {
			return err
		}
		if err := s.store.AppendEvent(txCtx, ev); err != nil {
			return err
		}

		result = ExpireResult{Outcome: OutcomeExpired}
		return nil
	})
	if err != nil {
		return ExpireResult{}, err
	}

	if result.Outcome == OutcomeExpired {
		metrics.IncHold("expired")
	}
	return result, nil
}

type ConvertResult struct {
	Outcome     HoldOutcome
	Reservation domain.Reservation
}

// Convert transfers a hold's nights from held to booked and creates the
// confirmed reservation, all in one transaction. The active-status check
// runs before any idempotency lookup: whichever of expire and convert
// commits first wins, and the loser observes a non-active status and
// returns noop.
func (s *HoldService) Convert(ctx context.Context, holdID, paymentRef, taskToken string) (ConvertResult, error) {
	var result ConvertResult

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.store.GetHoldForUpdate(txCtx, holdID)
		if err != nil {
			if errors.Is(err, domain.ErrHoldNotFound) {
				result = ConvertResult{Outcome: OutcomeNoop}
				return nil
			}
			return err
		}
		if hold.Status != domain.HoldStatusActive {
			result = ConvertResult{Outcome: OutcomeNoop}
			return nil
		}

		now := s.clock.Now()
		if taskToken != "" {
			fresh, err := s.store.MarkTaskProcessed(txCtx, taskToken, now)
			if err != nil {
				return err
			}
			if !fresh {
				result = ConvertResult{Outcome: OutcomeDuplicate}
				return nil
			}
		}

		nights := hold.Nights()
		if err := s.store.LockNights(txCtx, hold.PropertyID, hold.RoomTypeID, nights); err != nil {
			return err
		}
		for _, night := range nights {
			if err := s.store.ReleaseHeldOrFail(txCtx, hold.PropertyID, hold.RoomTypeID, night); err != nil {
				return err
			}
			ok, err := s.store.IncrementBooked(txCtx, hold.PropertyID, hold.RoomTypeID, night)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrNoCapacity
			}
		}

		res := domain.Reservation{
			ID:          uuid.NewString(),
			PropertyID:  hold.PropertyID,
			HoldID:      hold.ID,
			RoomTypeID:  hold.RoomTypeID,
			Checkin:     hold.Checkin,
			Checkout:    hold.Checkout,
			Guests:      hold.Guests,
			TotalAmount: hold.TotalAmount,
			Currency:    hold.Currency,
			Status:      domain.ReservationStatusConfirmed,
			CreatedAt:   now,
		}
		if err := s.store.CreateReservation(txCtx, res); err != nil {
			return err
		}
		if err := s.store.UpdateHoldStatus(txCtx, hold.ID, domain.HoldStatusActive, domain.HoldStatusConverted); err != nil {
			return err
		}

		payment, err := newEvent(domain.EventPaymentSucceeded, domain.AggregateHold, hold.ID, taskToken, paymentEventPayload{
			HoldID:     hold.ID,
			PaymentRef: paymentRef,
			Amount:     hold.TotalAmount,
			Currency:   hold.Currency,
		}, now)
		if err != nil {
			return err
		}
		converted, err := newEvent(domain.EventHoldConverted, domain.AggregateHold, hold.ID, taskToken, holdEventPayload{
			HoldID:      hold.ID,
			PropertyID:  hold.PropertyID,
			RoomTypeID:  hold.RoomTypeID,
			Checkin:     hold.Checkin,
			Checkout:    hold.Checkout,
			TotalAmount: hold.TotalAmount,
			Currency:    hold.Currency,
		}, now)
		if err != nil {
			return err
		}
		confirmed, err := newEvent(domain.EventReservationConfirmed, domain.AggregateReservation, res.ID, taskToken, reservationEventPayload{
			ReservationID: res.ID,
			PropertyID:    res.PropertyID,
			HoldID:        res.HoldID,
			RoomTypeID:    res.RoomTypeID,
			Checkin:       res.Checkin,
			Checkout:      res.Checkout,
			TotalAmount:   res.TotalAmount,
			Currency:      res.Currency,
		}, now)
		if err != nil {
			return err
		}
		for _, ev := range []domain.Event{payment, converted, confirmed} {
			if err := s.store.AppendEvent(txCtx, ev); err != nil {
				return err
			}
		}

		result = ConvertResult{Outcome: OutcomeConverted, Reservation: res}
		return nil
	})
	if err != nil {
		return ConvertResult{}, err
	}

	if result.Outcome == OutcomeConverted {
		metrics.IncHold("converted")
	}
	return result, nil
}

// DueForExpiry feeds the sweeper with holds whose deadline has passed.
func (s *HoldService) DueForExpiry(ctx context.Context, limit int) ([]domain.Hold, error) {
	return s.store.ListExpiryDue(ctx, s.clock.Now(), limit)
}
