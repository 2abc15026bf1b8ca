package domain

import "time"

type ReservationStatus string

const (
	ReservationStatusConfirmed  ReservationStatus = "confirmed"
	ReservationStatusInHouse    ReservationStatus = "in_house"
	ReservationStatusCheckedOut ReservationStatus = "checked_out"
	ReservationStatusCancelled  ReservationStatus = "cancelled"
)

// Reservation is a confirmed stay, created when a hold converts. RoomID is
// assigned later; cancelled and checked_out are terminal.
type Reservation struct {
	ID          string
	PropertyID  string
	HoldID      string
	RoomTypeID  string
	RoomID      string
	Checkin     time.Time
	Checkout    time.Time
	Guests      int
	TotalAmount int64
	Currency    string
	Status      ReservationStatus
	CreatedAt   time.Time
}

// operationalStatuses are the statuses that occupy a physical room. The
// conflict guard (both layers) only considers rows in these statuses.
var operationalStatuses = map[ReservationStatus]bool{
	ReservationStatusConfirmed:  true,
	ReservationStatusInHouse:    true,
	ReservationStatusCheckedOut: true,
}

// Operational reports whether the status counts for room-conflict purposes.
func (s ReservationStatus) Operational() bool {
	return operationalStatuses[s]
}

// Nights expands the reservation's stay range.
func (r Reservation) Nights() []time.Time {
	return Nights(r.Checkin, r.Checkout)
}
