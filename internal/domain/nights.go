package domain

import "time"

// Night normalizes a timestamp to its calendar date in UTC. Inventory rows
// and stay ranges are keyed by these normalized dates.
func Night(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Nights expands the half-open [checkin, checkout) range into its calendar
// nights. An empty or inverted range yields nil.
func Nights(checkin, checkout time.Time) []time.Time {
	start := Night(checkin)
	end := Night(checkout)
	if !end.After(start) {
		return nil
	}

	var nights []time.Time
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		nights = append(nights, d)
	}
	return nights
}

// NightSetDiff computes the symmetric difference between an old and a new
// stay range: nights only in the old range (to release) and nights only in
// the new range (to reserve). Nights present in both are untouched, which
// is what lets a date change keep its own overlapping nights without any
// release-and-reacquire window.
func NightSetDiff(oldCheckin, oldCheckout, newCheckin, newCheckout time.Time) (toRelease, toReserve []time.Time) {
	oldSet := make(map[time.Time]struct{})
	for _, n := range Nights(oldCheckin, oldCheckout) {
		oldSet[n] = struct{}{}
	}
	newSet := make(map[time.Time]struct{})
	for _, n := range Nights(newCheckin, newCheckout) {
		newSet[n] = struct{}{}
	}

	for _, n := range Nights(oldCheckin, oldCheckout) {
		if _, ok := newSet[n]; !ok {
			toRelease = append(toRelease, n)
		}
	}
	for _, n := range Nights(newCheckin, newCheckout) {
		if _, ok := oldSet[n]; !ok {
			toReserve = append(toReserve, n)
		}
	}
	return toRelease, toReserve
}

// Overlaps reports whether two half-open [start, end) intervals intersect.
// Touching endpoints (same-day turnover) do not overlap. Both conflict-guard
// layers use exactly this predicate; the SQL side mirrors it as
// existing.checkin < new.checkout AND existing.checkout > new.checkin.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
