package domain

import "time"

type PolicyType string

const (
	PolicyFree          PolicyType = "free"
	PolicyFlexible      PolicyType = "flexible"
	PolicyNonRefundable PolicyType = "non_refundable"
)

// CancellationPolicy governs the refund computed when a reservation is
// cancelled. Flexible refunds in full until FreeUntilDays before checkin
// and withholds PenaltyPercent of the total afterwards.
type CancellationPolicy struct {
	Type           PolicyType
	FreeUntilDays  int
	PenaltyPercent int
}

// Refund returns the refundable amount in minor units for a cancellation
// happening at now. Penalty amounts round the refund down.
func (p CancellationPolicy) Refund(total int64, checkin, now time.Time) int64 {
	switch p.Type {
	case PolicyFree:
		return total
	case PolicyNonRefundable:
		return 0
	case PolicyFlexible:
		threshold := Night(checkin).AddDate(0, 0, -p.FreeUntilDays)
		if now.Before(threshold) {
			return total
		}
		return total * int64(100-p.PenaltyPercent) / 100
	default:
		return 0
	}
}

// Property is the tenant boundary: every operation is scoped to one.
type Property struct {
	ID        string
	Name      string
	Timezone  string
	Policy    CancellationPolicy
	CreatedAt time.Time
}

// RoomType is the unit of sellable inventory within a property.
type RoomType struct {
	ID         string
	PropertyID string
	Name       string
	CreatedAt  time.Time
}

// Room is a physical room that a reservation may be assigned to.
type Room struct {
	ID         string
	PropertyID string
	RoomTypeID string
	Number     string
	CreatedAt  time.Time
}
