package availability

import (
	"sort"
	"time"

	"github.com/tbourn/go-movie-matcher/internal/domain"
)

// Policy holds the showtime feasibility tolerances.
type Policy struct {
	// Buffer is added after the screening ends (travel, snacks, credits).
	Buffer time.Duration
	// StartAdvance lets a screening start this long before the slot opens.
	StartAdvance time.Duration
	// EndOverrun lets a screening end this long after the slot closes.
	EndOverrun time.Duration
	// AllowStartInside accepts any screening that starts within the slot,
	// ignoring when it ends.
	AllowStartInside bool
}

// DefaultPolicy is the standard rule with a 30 minute buffer.
func DefaultPolicy() Policy {
	return Policy{Buffer: 30 * time.Minute}
}

// Naive converts t into loc and re-anchors the resulting wall clock in UTC,
// so values that arrived with different offsets compare by local time.
func Naive(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), time.UTC)
}

// Fits reports whether a screening starting at start and lasting duration
// fits slot under p. All values are normalized through Naive first.
func (p Policy) Fits(start time.Time, duration time.Duration, slot domain.Interval, loc *time.Location) bool {
	st := Naive(start, loc)
	ss := Naive(slot.Start, loc)
	se := Naive(slot.End, loc)

	if p.AllowStartInside {
		return !st.Before(ss) && !st.After(se)
	}
	if st.Before(ss.Add(-p.StartAdvance)) {
		return false
	}
	return !st.Add(duration + p.Buffer).After(se.Add(p.EndOverrun))
}

// FilterSchedules keeps the showtimes of c that fit at least one slot and
// returns them per cinema in ascending order. Cinemas left without a
// feasible time are dropped; the result is empty when slots is empty.
func FilterSchedules(c domain.Candidate, duration time.Duration, slots []domain.Interval, p Policy, loc *time.Location) map[string][]time.Time {
	out := make(map[string][]time.Time)
	if len(slots) == 0 {
		return out
	}
	for cinema, times := range c.Schedules {
		var ok []time.Time
		for _, st := range times {
			for _, slot := range slots {
				if p.Fits(st, duration, slot, loc) {
					ok = append(ok, st)
					break
				}
			}
		}
		if len(ok) > 0 {
			sort.Slice(ok, func(i, j int) bool { return ok[i].Before(ok[j]) })
			out[cinema] = ok
		}
	}
	return out
}

// WithinWindow keeps the showtimes of c inside [from, to] per cinema, in
// ascending order. It backs the unfiltered calendar mode.
func WithinWindow(c domain.Candidate, from, to time.Time, loc *time.Location) map[string][]time.Time {
	out := make(map[string][]time.Time)
	f, e := Naive(from, loc), Naive(to, loc)
	for cinema, times := range c.Schedules {
		var ok []time.Time
		for _, st := range times {
			n := Naive(st, loc)
			if !n.Before(f) && !n.After(e) {
				ok = append(ok, st)
			}
		}
		if len(ok) > 0 {
			sort.Slice(ok, func(i, j int) bool { return ok[i].Before(ok[j]) })
			out[cinema] = ok
		}
	}
	return out
}

// Flatten turns a per-cinema schedule into showtimes ordered by start,
// then by cinema name.
func Flatten(schedules map[string][]time.Time) []domain.ShowTime {
	var out []domain.ShowTime
	for cinema, times := range schedules {
		for _, st := range times {
			out = append(out, domain.ShowTime{Cinema: cinema, Start: st})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].Cinema < out[j].Cinema
	})
	return out
}
