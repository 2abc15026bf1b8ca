package app

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marcioluisms/hotelly2-sub000/internal/domain"
)

func newEvent(eventType, aggregateType, aggregateID, correlationID string, payload any, now time.Time) (domain.Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return domain.Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return domain.Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		CorrelationID: correlationID,
		Payload:       raw,
		CreatedAt:     now,
	}, nil
}

type holdEventPayload struct {
	HoldID      string    `json:"hold_id"`
	PropertyID  string    `json:"property_id"`
	RoomTypeID  string    `json:"room_type_id"`
	Checkin     time.Time `json:"checkin"`
	Checkout    time.Time `json:"checkout"`
	TotalAmount int64     `json:"total_amount"`
	Currency    string    `json:"currency"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

type paymentEventPayload struct {
	HoldID     string `json:"hold_id"`
	PaymentRef string `json:"payment_ref"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
}

type reservationEventPayload struct {
	ReservationID string    `json:"reservation_id"`
	PropertyID    string    `json:"property_id"`
	HoldID        string    `json:"hold_id,omitempty"`
	RoomTypeID    string    `json:"room_type_id"`
	RoomID        string    `json:"room_id,omitempty"`
	Checkin       time.Time `json:"checkin"`
	Checkout      time.Time `json:"checkout"`
	TotalAmount   int64     `json:"total_amount"`
	Currency      string    `json:"currency"`
}

type modificationEventPayload struct {
	ReservationID string    `json:"reservation_id"`
	OldCheckin    time.Time `json:"old_checkin"`
	OldCheckout   time.Time `json:"old_checkout"`
	NewCheckin    time.Time `json:"new_checkin"`
	NewCheckout   time.Time `json:"new_checkout"`
	OldTotal      int64     `json:"old_total"`
	NewTotal      int64     `json:"new_total"`
	Delta         int64     `json:"delta"`
	Currency      string    `json:"currency"`
}

type cancellationEventPayload struct {
	ReservationID string `json:"reservation_id"`
	Reason        string `json:"reason,omitempty"`
	PolicyType    string `json:"policy_type"`
	RefundAmount  int64  `json:"refund_amount"`
	Currency      string `json:"currency"`
}

type roomAssignedEventPayload struct {
	ReservationID string `json:"reservation_id"`
	RoomID        string `json:"room_id"`
	RoomNumber    string `json:"room_number"`
}
