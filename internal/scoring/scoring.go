// Package scoring aggregates per-member preference scores into one group
// score and applies the final normalization and ranking.
package scoring

import (
	"math"
	"sort"

	"github.com/tbourn/go-movie-matcher/internal/domain"
)

// Weights controls how per-member scores combine into a group score.
type Weights struct {
	Average float64
	Minimum float64
	Spread  float64
	Floor   float64
	Ceiling float64
}

// DefaultWeights returns the standard aggregation weights.
func DefaultWeights() Weights {
	return Weights{Average: 0.5, Minimum: 0.4, Spread: 0.2, Floor: 0, Ceiling: 2}
}

// Raw combines per-member scores into the raw group score:
// Average*avg + Minimum*min - Spread*(max-min), clamped to [Floor, Ceiling].
// An empty map scores Floor.
func (w Weights) Raw(perUser map[string]float64) float64 {
	if len(perUser) == 0 {
		return w.Floor
	}
	lo, hi, sum := math.Inf(1), math.Inf(-1), 0.0
	for _, s := range perUser {
		sum += s
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	avg := sum / float64(len(perUser))
	raw := w.Average*avg + w.Minimum*lo - w.Spread*(hi-lo)
	return math.Max(w.Floor, math.Min(w.Ceiling, raw))
}

// NormalizePolicy controls the final rescale of group scores.
type NormalizePolicy struct {
	// MinSpread is the score range below which no rescale happens.
	MinSpread float64
	Low       float64
	High      float64
}

// DefaultNormalizePolicy rescales into [0.4, 2.0] when scores spread by more
// than 0.1.
func DefaultNormalizePolicy() NormalizePolicy {
	return NormalizePolicy{MinSpread: 0.1, Low: 0.4, High: 2.0}
}

// Normalize linearly rescales the group scores of movies into [Low, High]
// when their range exceeds MinSpread. It runs once, after every boost.
func (p NormalizePolicy) Normalize(movies []*domain.GroupMatchedMovie) {
	if len(movies) == 0 {
		return
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, m := range movies {
		lo = math.Min(lo, m.GroupScore)
		hi = math.Max(hi, m.GroupScore)
	}
	spread := hi - lo
	if spread <= p.MinSpread {
		return
	}
	for _, m := range movies {
		m.GroupScore = (m.GroupScore-lo)/spread*(p.High-p.Low) + p.Low
	}
}

// Rank sorts movies by descending group score and keeps at most limit of
// them. Ties keep title order so results are stable. limit <= 0 keeps all.
func Rank(movies []*domain.GroupMatchedMovie, limit int) []*domain.GroupMatchedMovie {
	sort.SliceStable(movies, func(i, j int) bool {
		if movies[i].GroupScore != movies[j].GroupScore {
			return movies[i].GroupScore > movies[j].GroupScore
		}
		return movies[i].Title < movies[j].Title
	})
	if limit > 0 && len(movies) > limit {
		movies = movies[:limit]
	}
	return movies
}
