package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcioluisms/hotelly2-sub000/internal/domain"
)

// ledger holds the guarded mutation statements for nightly_inventory.
// Every statement re-checks the capacity invariant in its WHERE clause, so
// even a caller that skipped LockNights cannot break it; the lock exists to
// serialize competing claims, the guard to reject the loser.
type ledger struct {
	pool *pgxpool.Pool
}

// LockNights takes row locks on the inventory rows for the given nights, in
// date order so concurrent transactions acquire them in the same sequence.
// A missing row for any requested night is ErrInventoryMissing.
func (l ledger) LockNights(ctx context.Context, propertyID, roomTypeID string, nights []time.Time) error {
	if len(nights) == 0 {
		return nil
	}

	const query = `
SELECT COUNT(*)
FROM (
	SELECT date FROM nightly_inventory
	WHERE property_id = $1 AND room_type_id = $2 AND date = ANY($3)
	ORDER BY date
	FOR UPDATE
) locked`

	var locked int
	if err := queryerFor(ctx, l.pool).QueryRow(ctx, query, propertyID, roomTypeID, nights).Scan(&locked); err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("lock nights: %w", err)
	}
	if locked != len(nights) {
		return domain.ErrInventoryMissing
	}
	return nil
}

// IncrementHeld claims one held unit for the night. It returns false, with
// the row untouched, when the claim would exceed capacity.
func (l ledger) IncrementHeld(ctx context.Context, propertyID, roomTypeID string, night time.Time) (bool, error) {
	const stmt = `
UPDATE nightly_inventory
SET held = held + 1
WHERE property_id = $1 AND room_type_id = $2 AND date = $3
  AND capacity >= booked + held + 1`

	return l.guardedStep(ctx, stmt, "increment held", propertyID, roomTypeID, night)
}

// IncrementBooked claims one booked unit for the night, same guard.
func (l ledger) IncrementBooked(ctx context.Context, propertyID, roomTypeID string, night time.Time) (bool, error) {
	const stmt = `
UPDATE nightly_inventory
SET booked = booked + 1
WHERE property_id = $1 AND room_type_id = $2 AND date = $3
  AND capacity >= booked + held + 1`

	return l.guardedStep(ctx, stmt, "increment booked", propertyID, roomTypeID, night)
}

// ReleaseHeldIfPresent decrements held, tolerating an already-zero counter.
// Cancellation and expiry retries use this: releasing twice is harmless.
func (l ledger) ReleaseHeldIfPresent(ctx context.Context, propertyID, roomTypeID string, night time.Time) error {
	_, err := l.guardedStep(ctx, releaseHeldStmt, "release held", propertyID, roomTypeID, night)
	return err
}

// ReleaseHeldOrFail decrements held and treats an already-zero counter as a
// ledger underflow. Conversion uses this: the held unit must exist.
func (l ledger) ReleaseHeldOrFail(ctx context.Context, propertyID, roomTypeID string, night time.Time) error {
	ok, err := l.guardedStep(ctx, releaseHeldStmt, "release held", propertyID, roomTypeID, night)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: held %s/%s %s", domain.ErrLedgerUnderflow, propertyID, roomTypeID, night.Format("2006-01-02"))
	}
	return nil
}

// ReleaseBookedIfPresent decrements booked, tolerating zero.
func (l ledger) ReleaseBookedIfPresent(ctx context.Context, propertyID, roomTypeID string, night time.Time) error {
	_, err := l.guardedStep(ctx, releaseBookedStmt, "release booked", propertyID, roomTypeID, night)
	return err
}

// ReleaseBookedOrFail decrements booked and hard-stops on underflow. Date
// changes use this for removed nights: those nights were booked by this
// very reservation, so an empty counter is a defect.
func (l ledger) ReleaseBookedOrFail(ctx context.Context, propertyID, roomTypeID string, night time.Time) error {
	ok, err := l.guardedStep(ctx, releaseBookedStmt, "release booked", propertyID, roomTypeID, night)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: booked %s/%s %s", domain.ErrLedgerUnderflow, propertyID, roomTypeID, night.Format("2006-01-02"))
	}
	return nil
}

const releaseHeldStmt = `
UPDATE nightly_inventory
SET held = held - 1
WHERE property_id = $1 AND room_type_id = $2 AND date = $3
  AND held > 0`

const releaseBookedStmt = `
UPDATE nightly_inventory
SET booked = booked - 1
WHERE property_id = $1 AND room_type_id = $2 AND date = $3
  AND booked > 0`

func (l ledger) guardedStep(ctx context.Context, stmt, op, propertyID, roomTypeID string, night time.Time) (bool, error) {
	tag, err := queryerFor(ctx, l.pool).Exec(ctx, stmt, propertyID, roomTypeID, night)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		if isCheckViolation(err) {
			// The table CHECK is the last line of defense; reaching it
			// means a statement above lost its guard.
			return false, fmt.Errorf("%w: %s %s", domain.ErrLedgerUnderflow, op, night.Format("2006-01-02"))
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetNight reads a single ledger row; ErrInventoryMissing when absent.
func (l ledger) GetNight(ctx context.Context, propertyID, roomTypeID string, night time.Time) (domain.NightlyInventory, error) {
	const query = `
SELECT property_id, room_type_id, date, capacity, booked, held
FROM nightly_inventory
WHERE property_id = $1 AND room_type_id = $2 AND date = $3`

	var inv domain.NightlyInventory
	err := queryerFor(ctx, l.pool).QueryRow(ctx, query, propertyID, roomTypeID, night).
		Scan(&inv.PropertyID, &inv.RoomTypeID, &inv.Date, &inv.Capacity, &inv.Booked, &inv.Held)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.NightlyInventory{}, domain.ErrInvalidID
		}
		if isNoRows(err) {
			return domain.NightlyInventory{}, domain.ErrInventoryMissing
		}
		return domain.NightlyInventory{}, fmt.Errorf("get night: %w", err)
	}
	return inv, nil
}
