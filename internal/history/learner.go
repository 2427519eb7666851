// Package history applies what a group's past choices teach about its
// taste: fair rotation between members, genre diversity, and affinity for
// the cinemas and genres the group keeps picking.
package history

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-movie-matcher/internal/domain"
)

// Policy holds the learning constants.
type Policy struct {
	// MinSessionsForRotation is the session count below which fair rotation
	// stays off.
	MinSessionsForRotation int
	// UnderrepresentedRatio marks a member as underrepresented when their
	// satisfaction is below this share of the current members' average.
	UnderrepresentedRatio float64
	// RotationThreshold is the member score above which a movie counts as
	// their favorite.
	RotationThreshold float64
	RotationBoost     float64

	// RecentChoices is how many past choices feed the diversity check.
	RecentChoices int
	FreshBoost    float64
	VarietyBoost  float64

	CinemaWeight float64
	GenreWeight  float64
}

// DefaultPolicy returns the standard learning constants.
func DefaultPolicy() Policy {
	return Policy{
		MinSessionsForRotation: 2,
		UnderrepresentedRatio:  0.8,
		RotationThreshold:      1.5,
		RotationBoost:          0.4,
		RecentChoices:          3,
		FreshBoost:             0.5,
		VarietyBoost:           0.2,
		CinemaWeight:           0.3,
		GenreWeight:            0.3,
	}
}

// Learner applies a group's history to fresh recommendations.
type Learner struct {
	Policy Policy
}

// NewLearner returns a Learner with DefaultPolicy.
func NewLearner() *Learner { return &Learner{Policy: DefaultPolicy()} }

// Apply adjusts group scores in place from h. It does nothing for a group
// without recorded sessions. members are the current group members.
func (l *Learner) Apply(h *domain.GroupHistory, movies []*domain.GroupMatchedMovie, members []string) {
	if h == nil || h.Preferences.SessionCount < 1 {
		return
	}
	h.Preferences.Ensure()

	if under := l.Underrepresented(h, members); len(under) > 0 {
		log.Debug().Str("group", h.GroupID).Strs("users", under).Msg("fair rotation")
		l.fairRotation(movies, under)
	}
	if recent := l.RecentGenres(h); len(recent) > 0 {
		l.diversity(movies, recent)
	}
	if len(h.Preferences.CinemaCounts) > 0 {
		l.cinemaAffinity(movies, h.Preferences.CinemaCounts)
	}
	if len(h.Preferences.GenreCounts) > 0 {
		l.genreAffinity(movies, h.Preferences.GenreCounts)
	}
}

// Underrepresented returns, in member order, the current members whose
// cumulative satisfaction lags the group average.
func (l *Learner) Underrepresented(h *domain.GroupHistory, members []string) []string {
	if h.Preferences.SessionCount < l.Policy.MinSessionsForRotation || len(members) == 0 {
		return nil
	}
	var sum float64
	for _, m := range members {
		sum += h.Preferences.UserSatisfaction[m]
	}
	avg := sum / float64(len(members))
	var out []string
	for _, m := range members {
		if h.Preferences.UserSatisfaction[m] < avg*l.Policy.UnderrepresentedRatio {
			out = append(out, m)
		}
	}
	return out
}

// RecentGenres returns the union of genres of the last RecentChoices
// choices.
func (l *Learner) RecentGenres(h *domain.GroupHistory) map[int]struct{} {
	out := map[int]struct{}{}
	start := len(h.Choices) - l.Policy.RecentChoices
	if start < 0 {
		start = 0
	}
	for _, c := range h.Choices[start:] {
		for _, g := range c.ChosenGenres {
			out[g] = struct{}{}
		}
	}
	return out
}

func (l *Learner) fairRotation(movies []*domain.GroupMatchedMovie, under []string) {
	for _, m := range movies {
		for _, u := range under {
			if s, ok := m.PerUserScores[u]; ok && s > l.Policy.RotationThreshold {
				m.Boost(l.Policy.RotationBoost, fmt.Sprintf("%s's turn to pick!", u))
			}
		}
	}
}

func (l *Learner) diversity(movies []*domain.GroupMatchedMovie, recent map[int]struct{}) {
	for _, m := range movies {
		if m.Metadata == nil {
			continue
		}
		overlap := 0
		for _, g := range uniq(m.Metadata.GenreIDs) {
			if _, ok := recent[g]; ok {
				overlap++
			}
		}
		switch {
		case overlap == 0:
			m.Boost(l.Policy.FreshBoost, "Fresh pick!")
		case overlap <= 1:
			m.Boost(l.Policy.VarietyBoost, "Nice variety")
		}
	}
}

func (l *Learner) cinemaAffinity(movies []*domain.GroupMatchedMovie, counts map[string]int) {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return
	}
	for _, m := range movies {
		for _, st := range m.Showtimes {
			if visits := counts[st.Cinema]; visits > 0 {
				m.Boost(l.Policy.CinemaWeight*float64(visits)/float64(total), "")
				break
			}
		}
	}
}

func (l *Learner) genreAffinity(movies []*domain.GroupMatchedMovie, counts map[int]int) {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return
	}
	for _, m := range movies {
		if m.Metadata == nil {
			continue
		}
		var score float64
		for _, g := range m.Metadata.GenreIDs {
			score += float64(counts[g]) / float64(total)
		}
		if score > 0 {
			m.Boost(l.Policy.GenreWeight*min(score, 1), "")
		}
	}
}

func uniq(ids []int) []int {
	out := append([]int(nil), ids...)
	sort.Ints(out)
	n := 0
	for i, v := range out {
		if i == 0 || v != out[n-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}
