package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/marcioluisms/hotelly2-sub000/internal/clock"
	"github.com/marcioluisms/hotelly2-sub000/internal/domain"
	"github.com/marcioluisms/hotelly2-sub000/internal/metrics"
)

// ReservationStore is the persistence surface for the modify, cancel,
// assign and check-in/out orchestrations.
type ReservationStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error)
	FindOverlapping(ctx context.Context, roomID string, checkin, checkout time.Time, excludeID string, lock bool) ([]domain.Reservation, error)
	UpdateStay(ctx context.Context, id string, checkin, checkout time.Time, totalAmount int64) error
	UpdateRoom(ctx context.Context, id, roomID string) error
	UpdateStatus(ctx context.Context, id string, from, to domain.ReservationStatus) error
	GetRoom(ctx context.Context, roomID string) (domain.Room, error)
	GetProperty(ctx context.Context, propertyID string) (domain.Property, error)

	LockNights(ctx context.Context, propertyID, roomTypeID string, nights []time.Time) error
	IncrementBooked(ctx context.Context, propertyID, roomTypeID string, night time.Time) (bool, error)
	ReleaseBookedIfPresent(ctx context.Context, propertyID, roomTypeID string, night time.Time) error
	ReleaseBookedOrFail(ctx context.Context, propertyID, roomTypeID string, night time.Time) error

	GetResult(ctx context.Context, token, operation string) ([]byte, error)
	PutResult(ctx context.Context, token, operation string, result []byte, now time.Time) error
	AppendEvent(ctx context.Context, ev domain.Event) error
}

type ReservationService struct {
	store  ReservationStore
	quoter Quoter
	clock  clock.Clock
}

func NewReservationService(store ReservationStore, quoter Quoter, clk clock.Clock) *ReservationService {
	return &ReservationService{
		store:  store,
		quoter: quoter,
		clock:  clk,
	}
}

const (
	opAssignRoom = "assign_room"
	opModify     = "modify_reservation"
	opCancel     = "cancel_reservation"
	opCheckIn    = "check_in"
	opCheckOut   = "check_out"
)

type AssignRoomInput struct {
	ReservationID string
	RoomID        string
	Token         string
}

type AssignRoomResult struct {
	ReservationID string `json:"reservation_id"`
	RoomID        string `json:"room_id"`
	RoomNumber    string `json:"room_number"`
}

// AssignRoom sets the physical room after running the conflict guard with
// the matching rows locked. The reservation being assigned never conflicts
// with itself.
func (s *ReservationService) AssignRoom(ctx context.Context, in AssignRoomInput) (AssignRoomResult, error) {
	if in.Token == "" {
		return AssignRoomResult{}, domain.ErrTokenRequired
	}

	now := s.clock.Now()
	var result AssignRoomResult
	var applied bool

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		if done, err := s.replay(txCtx, in.Token, opAssignRoom, &result); done || err != nil {
			return err
		}

		res, err := s.store.GetReservationForUpdate(txCtx, in.ReservationID)
		if err != nil {
			return err
		}
		if res.Status != domain.ReservationStatusConfirmed && res.Status != domain.ReservationStatusInHouse {
			return domain.ErrNotAssignable
		}

		room, err := s.store.GetRoom(txCtx, in.RoomID)
		if err != nil {
			return err
		}
		if room.PropertyID != res.PropertyID {
			return domain.ErrRoomNotFound
		}
		if room.RoomTypeID != res.RoomTypeID {
			return domain.ErrRoomTypeMismatch
		}

		overlapping, err := s.store.FindOverlapping(txCtx, room.ID, res.Checkin, res.Checkout, res.ID, true)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return domain.ErrRoomConflict
		}

		if err := s.store.UpdateRoom(txCtx, res.ID, room.ID); err != nil {
			return err
		}

		ev, err := newEvent(domain.EventRoomAssigned, domain.AggregateReservation, res.ID, in.Token, roomAssignedEventPayload{
			ReservationID: res.ID,
			RoomID:        room.ID,
			RoomNumber:    room.Number,
		}, now)
		if err != nil {
			return err
		}
		if err := s.store.AppendEvent(txCtx, ev); err != nil {
			return err
		}

		result = AssignRoomResult{ReservationID: res.ID, RoomID: room.ID, RoomNumber: room.Number}
		applied = true
		return s.record(txCtx, in.Token, opAssignRoom, result, now)
	})
	if err != nil {
		if errors.Is(err, domain.ErrIdempotencyConflict) && s.replayAfterConflict(ctx, in.Token, opAssignRoom, &result) {
			return result, nil
		}
		return AssignRoomResult{}, err
	}

	if applied {
		metrics.IncReservation("assigned")
	}
	return result, nil
}

type ModifyInput struct {
	ReservationID string
	NewCheckin    time.Time
	NewCheckout   time.Time
	Token         string
}

type ModifyResult struct {
	ReservationID string    `json:"reservation_id"`
	Checkin       time.Time `json:"checkin"`
	Checkout      time.Time `json:"checkout"`
	OldTotal      int64     `json:"old_total"`
	NewTotal      int64     `json:"new_total"`
	Delta         int64     `json:"delta"`
	Currency      string    `json:"currency"`
}

// Modify changes a reservation's stay range. Only the symmetric difference
// of the old and new night sets touches the ledger: overlapping nights are
// never released, so a shrinking-capacity race cannot evict the guest from
// nights they already have. Any failed step aborts the whole transaction.
func (s *ReservationService) Modify(ctx context.Context, in ModifyInput) (ModifyResult, error) {
	if in.Token == "" {
		return ModifyResult{}, domain.ErrTokenRequired
	}
	newCheckin := domain.Night(in.NewCheckin)
	newCheckout := domain.Night(in.NewCheckout)
	if len(domain.Nights(newCheckin, newCheckout)) == 0 {
		return ModifyResult{}, domain.ErrInvalidRange
	}

	now := s.clock.Now()
	var result ModifyResult
	var applied bool

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		if done, err := s.replay(txCtx, in.Token, opModify, &result); done || err != nil {
			return err
		}

		res, err := s.store.GetReservationForUpdate(txCtx, in.ReservationID)
		if err != nil {
			return err
		}
		if res.Status != domain.ReservationStatusConfirmed && res.Status != domain.ReservationStatusInHouse {
			return domain.ErrNotModifiable
		}

		if res.RoomID != "" {
			overlapping, err := s.store.FindOverlapping(txCtx, res.RoomID, newCheckin, newCheckout, res.ID, true)
			if err != nil {
				return err
			}
			if len(overlapping) > 0 {
				return domain.ErrRoomConflict
			}
		}

		toRelease, toReserve := domain.NightSetDiff(res.Checkin, res.Checkout, newCheckin, newCheckout)
		if len(toRelease)+len(toReserve) > 0 {
			affected := make([]time.Time, 0, len(toRelease)+len(toReserve))
			affected = append(affected, toRelease...)
			affected = append(affected, toReserve...)
			sort.Slice(affected, func(i, j int) bool { return affected[i].Before(affected[j]) })

			if err := s.store.LockNights(txCtx, res.PropertyID, res.RoomTypeID, affected); err != nil {
				return err
			}
			for _, night := range toReserve {
				ok, err := s.store.IncrementBooked(txCtx, res.PropertyID, res.RoomTypeID, night)
				if err != nil {
					return err
				}
				if !ok {
					return domain.ErrNoCapacity
				}
			}
			// Removed nights were booked by this reservation; an empty
			// counter here is a defect, so the strict release applies.
			for _, night := range toRelease {
				if err := s.store.ReleaseBookedOrFail(txCtx, res.PropertyID, res.RoomTypeID, night); err != nil {
					return err
				}
			}
		}

		quote, err := s.quoter.Quote(txCtx, res.PropertyID, res.RoomTypeID, newCheckin, newCheckout, res.Guests)
		if err != nil {
			return err
		}
		if err := s.store.UpdateStay(txCtx, res.ID, newCheckin, newCheckout, quote.Total); err != nil {
			return err
		}

		ev, err := newEvent(domain.EventReservationModified, domain.AggregateReservation, res.ID, in.Token, modificationEventPayload{
			ReservationID: res.ID,
			OldCheckin:    res.Checkin,
			OldCheckout:   res.Checkout,
			NewCheckin:    newCheckin,
			NewCheckout:   newCheckout,
			OldTotal:      res.TotalAmount,
			NewTotal:      quote.Total,
			Delta:         quote.Total - res.TotalAmount,
			Currency:      quote.Currency,
		}, now)
		if err != nil {
			return err
		}
		if err := s.store.AppendEvent(txCtx, ev); err != nil {
			return err
		}

		result = ModifyResult{
			ReservationID: res.ID,
			Checkin:       newCheckin,
			Checkout:      newCheckout,
			OldTotal:      res.TotalAmount,
			NewTotal:      quote.Total,
			Delta:         quote.Total - res.TotalAmount,
			Currency:      quote.Currency,
		}
		applied = true
		return s.record(txCtx, in.Token, opModify, result, now)
	})
	if err != nil {
		if errors.Is(err, domain.ErrIdempotencyConflict) && s.replayAfterConflict(ctx, in.Token, opModify, &result) {
			return result, nil
		}
		return ModifyResult{}, err
	}

	if applied {
		metrics.IncReservation("modified")
	}
	return result, nil
}

type CancelInput struct {
	ReservationID string
	Reason        string
	Token         string
}

type CancelResult struct {
	ReservationID string `json:"reservation_id"`
	RefundAmount  int64  `json:"refund_amount"`
	Currency      string `json:"currency"`
}

// Cancel releases every night of the stay with the tolerant decrement (a
// retried cancellation finding zeroed counters is expected, not a defect),
// computes the refund from the property's policy, and flips the status.
func (s *ReservationService) Cancel(ctx context.Context, in CancelInput) (CancelResult, error) {
	if in.Token == "" {
		return CancelResult{}, domain.ErrTokenRequired
	}

	now := s.clock.Now()
	var result CancelResult
	var applied bool

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		if done, err := s.replay(txCtx, in.Token, opCancel, &result); done || err != nil {
			return err
		}

		res, err := s.store.GetReservationForUpdate(txCtx, in.ReservationID)
		if err != nil {
			return err
		}
		if res.Status != domain.ReservationStatusConfirmed {
			return domain.ErrNotCancellable
		}

		prop, err := s.store.GetProperty(txCtx, res.PropertyID)
		if err != nil {
			return err
		}

		for _, night := range res.Nights() {
			if err := s.store.ReleaseBookedIfPresent(txCtx, res.PropertyID, res.RoomTypeID, night); err != nil {
				return err
			}
		}

		refund := prop.Policy.Refund(res.TotalAmount, res.Checkin, now)
		if err := s.store.UpdateStatus(txCtx, res.ID, domain.ReservationStatusConfirmed, domain.ReservationStatusCancelled); err != nil {
			return err
		}

		ev, err := newEvent(domain.EventReservationCancelled, domain.AggregateReservation, res.ID, in.Token, cancellationEventPayload{
			ReservationID: res.ID,
			Reason:        in.Reason,
			PolicyType:    string(prop.Policy.Type),
			RefundAmount:  refund,
			Currency:      res.Currency,
		}, now)
		if err != nil {
			return err
		}
		if err := s.store.AppendEvent(txCtx, ev); err != nil {
			return err
		}

		result = CancelResult{ReservationID: res.ID, RefundAmount: refund, Currency: res.Currency}
		applied = true
		return s.record(txCtx, in.Token, opCancel, result, now)
	})
	if err != nil {
		if errors.Is(err, domain.ErrIdempotencyConflict) && s.replayAfterConflict(ctx, in.Token, opCancel, &result) {
			return result, nil
		}
		return CancelResult{}, err
	}

	if applied {
		metrics.IncReservation("cancelled")
	}
	return result, nil
}

type StatusResult struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
}

// CheckIn moves a confirmed reservation in house. No ledger movement: the
// booked counters already account for the stay.
func (s *ReservationService) CheckIn(ctx context.Context, reservationID, token string) (StatusResult, error) {
	return s.transition(ctx, reservationID, token, opCheckIn,
		domain.ReservationStatusConfirmed, domain.ReservationStatusInHouse, domain.EventGuestCheckedIn)
}

// CheckOut completes an in-house stay.
func (s *ReservationService) CheckOut(ctx context.Context, reservationID, token string) (StatusResult, error) {
	return s.transition(ctx, reservationID, token, opCheckOut,
		domain.ReservationStatusInHouse, domain.ReservationStatusCheckedOut, domain.EventGuestCheckedOut)
}

func (s *ReservationService) transition(ctx context.Context, reservationID, token, operation string, from, to domain.ReservationStatus, eventType string) (StatusResult, error) {
	if token == "" {
		return StatusResult{}, domain.ErrTokenRequired
	}

	now := s.clock.Now()
	var result StatusResult

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		if done, err := s.replay(txCtx, token, operation, &result); done || err != nil {
			return err
		}

		res, err := s.store.GetReservationForUpdate(txCtx, reservationID)
		if err != nil {
			return err
		}
		if res.Status != from {
			return domain.ErrInvalidTransition
		}
		if err := s.store.UpdateStatus(txCtx, res.ID, from, to); err != nil {
			return err
		}

		ev, err := newEvent(eventType, domain.AggregateReservation, res.ID, token, StatusResult{
			ReservationID: res.ID,
			Status:        string(to),
		}, now)
		if err != nil {
			return err
		}
		if err := s.store.AppendEvent(txCtx, ev); err != nil {
			return err
		}

		result = StatusResult{ReservationID: res.ID, Status: string(to)}
		return s.record(txCtx, token, operation, result, now)
	})
	if err != nil {
		if errors.Is(err, domain.ErrIdempotencyConflict) && s.replayAfterConflict(ctx, token, operation, &result) {
			return result, nil
		}
		return StatusResult{}, err
	}
	return result, nil
}

// replay loads a stored response for token+operation into out. It reports
// true when the operation already applied and the caller should return the
// stored result verbatim.
func (s *ReservationService) replay(ctx context.Context, token, operation string, out any) (bool, error) {
	stored, err := s.store.GetResult(ctx, token, operation)
	if err != nil {
		return false, err
	}
	if stored == nil {
		return false, nil
	}
	if err := json.Unmarshal(stored, out); err != nil {
		return false, fmt.Errorf("decode stored %s result: %w", operation, err)
	}
	return true, nil
}

func (s *ReservationService) record(ctx context.Context, token, operation string, result any, now time.Time) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode %s result: %w", operation, err)
	}
	return s.store.PutResult(ctx, token, operation, raw, now)
}

// replayAfterConflict handles a concurrent call with the same token
// committing between the replay check and the record: our transaction
// rolled back on its key, so the stored response is the winner's and we
// return it instead of the conflict.
func (s *ReservationService) replayAfterConflict(ctx context.Context, token, operation string, out any) bool {
	done, err := s.replay(ctx, token, operation, out)
	return err == nil && done
}
