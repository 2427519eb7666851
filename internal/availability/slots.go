package availability

import (
	"time"

	"github.com/tbourn/go-movie-matcher/internal/domain"
)

// FreeSlots returns the gaps of at least minDuration between the merged busy
// intervals inside [windowStart, windowEnd], including the trailing gap.
// Busy time outside the window is ignored and slots never leave the window.
func FreeSlots(busy []domain.Interval, windowStart, windowEnd time.Time, minDuration time.Duration) []domain.Interval {
	if !windowStart.Before(windowEnd) {
		return nil
	}
	var out []domain.Interval
	current := windowStart
	emit := func(end time.Time) {
		if !current.Add(minDuration).After(end) && current.Before(end) {
			out = append(out, domain.Interval{Start: current, End: end})
		}
	}
	for _, b := range Merge(busy) {
		if !b.End.After(windowStart) {
			continue
		}
		if !b.Start.Before(windowEnd) {
			break
		}
		emit(b.Start)
		if b.End.After(current) {
			current = b.End
		}
	}
	emit(windowEnd)
	return out
}

// CommonFreeSlots unions every member's busy time and returns the free
// slots over [now, now+daysAhead].
func CommonFreeSlots(busyPerMember map[string][]domain.Interval, now time.Time, daysAhead int, minDuration time.Duration) []domain.Interval {
	var all []domain.Interval
	for _, busy := range busyPerMember {
		all = append(all, busy...)
	}
	return FreeSlots(all, now, now.AddDate(0, 0, daysAhead), minDuration)
}
