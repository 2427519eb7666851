// Package availability turns per-member busy calendars into common free
// slots and decides which cinema showtimes fit inside them.
package availability

import (
	"sort"

	"github.com/tbourn/go-movie-matcher/internal/domain"
)

// Merge returns the minimal sorted set of disjoint intervals covering the
// same time as in. Touching intervals are merged. The input slice is not
// modified.
func Merge(in []domain.Interval) []domain.Interval {
	if len(in) == 0 {
		return nil
	}
	sorted := make([]domain.Interval, len(in))
	copy(sorted, in)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	out := make([]domain.Interval, 0, len(sorted))
	out = append(out, sorted[0])
	for _, cur := range sorted[1:] {
		last := &out[len(out)-1]
		if !cur.Start.After(last.End) {
			if cur.End.After(last.End) {
				last.End = cur.End
			}
			continue
		}
		out = append(out, cur)
	}
	return out
}
