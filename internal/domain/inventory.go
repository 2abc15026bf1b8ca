package domain

import "time"

// NightlyInventory is one row of the availability ledger: counters for a
// single (property, room type, date). The standing invariant is
// Capacity >= Booked + Held >= 0; it is only ever mutated through guarded
// increments and decrements that re-check it under a row lock.
type NightlyInventory struct {
	PropertyID string
	RoomTypeID string
	Date       time.Time
	Capacity   int
	Booked     int
	Held       int
}

// Available returns the units still free for the night.
func (n NightlyInventory) Available() int {
	return n.Capacity - n.Booked - n.Held
}
