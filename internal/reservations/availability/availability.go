// Package availability computes which campsite days are free given a set of
// reservations. Functions are pure; their answers are only binding when the
// caller holds the admission gate.
package availability

import (
	"time"

	"campsite/pkg/dates"
	"campsite/pkg/model"
)

// OccupiedDays expands every active reservation's [StartDate, EndDate) into
// the set of days it holds. Cancelled reservations hold nothing.
func OccupiedDays(reservations []*model.Reservation) map[time.Time]struct{} {
	occupied := make(map[time.Time]struct{})
	for _, r := range reservations {
		if r == nil || !r.Active() {
			continue
		}
		for d := dates.Day(r.StartDate); d.Before(r.EndDate); d = dates.AddDays(d, 1) {
			occupied[d] = struct{}{}
		}
	}
	return occupied
}

// FreeDays returns, in ascending order, the days of the closed range
// [start, end] not held by any active reservation.
func FreeDays(start, end time.Time, reservations []*model.Reservation) []time.Time {
	start, end = dates.Day(start), dates.Day(end)
	if end.Before(start) {
		return []time.Time{}
	}

	occupied := OccupiedDays(reservations)
	free := make([]time.Time, 0, dates.DaysBetween(start, end)+1)
	for d := start; !d.After(end); d = dates.AddDays(d, 1) {
		if _, taken := occupied[d]; !taken {
			free = append(free, d)
		}
	}
	return free
}

// IsRangeFree reports whether no day of the half-open range [start, end) is
// held by an active reservation. An empty range is trivially free.
func IsRangeFree(start, end time.Time, reservations []*model.Reservation) bool {
	start, end = dates.Day(start), dates.Day(end)
	if !start.Before(end) {
		return true
	}
	for _, r := range reservations {
		if r != nil && r.Active() && r.Overlaps(start, end) {
			return false
		}
	}
	return true
}

// Excluding returns reservations without the one whose ID is id.
func Excluding(reservations []*model.Reservation, id string) []*model.Reservation {
	out := make([]*model.Reservation, 0, len(reservations))
	for _, r := range reservations {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}
