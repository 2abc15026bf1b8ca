package domain

import "errors"

// Category groups expected business outcomes for the write-operations
// boundary. Anything outside these categories is an infrastructure fault
// and propagates wrapped for caller/queue-level retry.
type Category int

const (
	CategoryNone Category = iota
	CategoryNotFound
	CategoryInvalidState
	CategoryUnavailable
	CategoryConflict
)

var (
	ErrPropertyNotFound    = errors.New("property not found")
	ErrRoomTypeNotFound    = errors.New("room type not found")
	ErrRoomNotFound        = errors.New("room not found")
	ErrHoldNotFound        = errors.New("hold not found")
	ErrReservationNotFound = errors.New("reservation not found")

	ErrHoldNotActive     = errors.New("hold is not active")
	ErrNotModifiable     = errors.New("reservation status does not permit modification")
	ErrNotCancellable    = errors.New("reservation status does not permit cancellation")
	ErrNotAssignable     = errors.New("reservation status does not permit room assignment")
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrNoCapacity       = errors.New("no capacity for requested nights")
	ErrInventoryMissing = errors.New("no inventory record for a required night")
	ErrNoRate           = errors.New("no rate for requested nights")

	ErrRoomConflict     = errors.New("room already occupied for overlapping dates")
	ErrRoomTypeMismatch = errors.New("room does not match reservation room type")

	ErrInvalidRange        = errors.New("checkout must be after checkin")
	ErrTokenRequired       = errors.New("idempotency token required")
	ErrIdempotencyConflict = errors.New("idempotency token reused with different parameters")
	ErrInvalidID           = errors.New("invalid id")

	// ErrLedgerUnderflow means a strict release found nothing to release.
	// That is a logic defect, not a business outcome: it must surface
	// loudly and is deliberately NOT given a reason code below.
	ErrLedgerUnderflow = errors.New("inventory ledger underflow")
)

var reasonCodes = map[error]struct {
	code     string
	category Category
}{
	ErrPropertyNotFound:    {"property_not_found", CategoryNotFound},
	ErrRoomTypeNotFound:    {"room_type_not_found", CategoryNotFound},
	ErrRoomNotFound:        {"room_not_found", CategoryNotFound},
	ErrHoldNotFound:        {"hold_not_found", CategoryNotFound},
	ErrReservationNotFound: {"reservation_not_found", CategoryNotFound},
	ErrHoldNotActive:       {"hold_not_active", CategoryInvalidState},
	ErrNotModifiable:       {"not_modifiable", CategoryInvalidState},
	ErrNotCancellable:      {"not_cancellable", CategoryInvalidState},
	ErrNotAssignable:       {"not_assignable", CategoryInvalidState},
	ErrInvalidTransition:   {"invalid_transition", CategoryInvalidState},
	ErrNoCapacity:          {"no_capacity", CategoryUnavailable},
	ErrInventoryMissing:    {"inventory_missing", CategoryUnavailable},
	ErrNoRate:              {"no_rate", CategoryUnavailable},
	ErrRoomConflict:        {"room_conflict", CategoryConflict},
	ErrRoomTypeMismatch:    {"room_type_mismatch", CategoryConflict},
	ErrInvalidRange:        {"invalid_range", CategoryInvalidState},
	ErrTokenRequired:       {"idempotency_token_required", CategoryInvalidState},
	ErrIdempotencyConflict: {"idempotency_conflict", CategoryConflict},
	ErrInvalidID:           {"invalid_id", CategoryInvalidState},
}

// ReasonCode returns the stable reason code for an expected business error.
// The second return is false for infrastructure-class errors.
func ReasonCode(err error) (string, bool) {
	for sentinel, info := range reasonCodes {
		if errors.Is(err, sentinel) {
			return info.code, true
		}
	}
	return "", false
}

// CategoryOf classifies an error; CategoryNone means infrastructure-class.
func CategoryOf(err error) Category {
	for sentinel, info := range reasonCodes {
		if errors.Is(err, sentinel) {
			return info.category
		}
	}
	return CategoryNone
}
