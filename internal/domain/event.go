package domain

import "time"

// Event is an outbox record appended inside the same transaction as the
// mutation it describes. A separate dispatcher delivers them at-least-once.
type Event struct {
	ID            string
	Type          string
	AggregateType string
	AggregateID   string
	CorrelationID string
	Payload       []byte
	CreatedAt     time.Time
}

const (
	EventHoldCreated          = "HOLD_CREATED"
	EventHoldExpired          = "HOLD_EXPIRED"
	EventHoldConverted        = "HOLD_CONVERTED"
	EventPaymentSucceeded     = "PAYMENT_SUCCEEDED"
	EventReservationConfirmed = "RESERVATION_CONFIRMED"
	EventRoomAssigned         = "ROOM_ASSIGNED"
	EventReservationModified  = "RESERVATION_MODIFIED"
	EventReservationCancelled = "RESERVATION_CANCELLED"
	EventGuestCheckedIn       = "GUEST_CHECKED_IN"
	EventGuestCheckedOut      = "GUEST_CHECKED_OUT"
)

const (
	AggregateHold        = "hold"
	AggregateReservation = "reservation"
)
