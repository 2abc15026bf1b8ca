package tasks

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const KindExpireHold = "expire_hold"

// Task is one queue-delivered unit of work. Delivery is at-least-once with
// arbitrary ordering; handlers rely on the deterministic ID to collapse
// exact redeliveries.
type Task struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	HoldID     string    `json:"hold_id"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
	PaymentRef string    `json:"payment_ref,omitempty"`
	Attempts   int       `json:"attempts,omitempty"`
}

// NewExpireHold builds an expire-hold task. The id is derived from the
// operation, the entity and the deadline, so a rescheduled expiry for the
// same hold and deadline is the same task however many times it is sent.
func NewExpireHold(holdID string, expiresAt time.Time) Task {
	return Task{
		ID:        DeriveID(KindExpireHold, holdID, expiresAt.UTC().Format(time.RFC3339)),
		Kind:      KindExpireHold,
		HoldID:    holdID,
		ExpiresAt: expiresAt,
	}
}

// DeriveID hashes the operation and its material parameters into a stable
// task identifier.
func DeriveID(kind string, params ...string) string {
	h := sha256.New()
	h.Write([]byte(kind))
	for _, p := range params {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
