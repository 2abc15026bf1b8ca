package domain

import "time"

type HoldStatus string

const (
	HoldStatusActive    HoldStatus = "active"
	HoldStatusExpired   HoldStatus = "expired"
	HoldStatusConverted HoldStatus = "converted"
)

// Hold is a time-boxed claim on inventory made before payment confirms.
// It transitions exactly once, to expired or converted; both are terminal.
type Hold struct {
	ID          string
	PropertyID  string
	RoomTypeID  string
	Checkin     time.Time
	Checkout    time.Time
	Guests      int
	TotalAmount int64
	Currency    string
	Status      HoldStatus
	ExpiresAt   time.Time
	CreateToken string
	CreatedAt   time.Time
}

// HoldNight mirrors one reserved night of a hold in the ledger.
type HoldNight struct {
	HoldID     string
	RoomTypeID string
	Date       time.Time
	Qty        int
}

// Nights expands the hold's stay range.
func (h Hold) Nights() []time.Time {
	return Nights(h.Checkin, h.Checkout)
}

// ExpiredBy reports whether the hold's deadline has passed at the given
// instant. Expiry is a pure comparison against stored state, re-evaluated
// on every invocation; there is no external cancellation signal.
func (h Hold) ExpiredBy(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}
