package mood

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-movie-matcher/internal/domain"
)

// Tier is one step of the boost table: a match strictly above Above earns
// Boost.
type Tier struct {
	Above float64
	Boost float64
	Label string
}

// DefaultTiers is the standard boost table, best tier first.
func DefaultTiers() []Tier {
	return []Tier{
		{Above: 0.7, Boost: 0.6, Label: "Perfect"},
		{Above: 0.4, Boost: 0.4, Label: "Great"},
		{Above: 0.2, Boost: 0.2, Label: "Good"},
	}
}

// AggressiveCutoff is the match below which aggressive mode drops a movie.
const AggressiveCutoff = 0.1

// Adjuster applies mood boosts to scored candidates.
type Adjuster struct {
	Catalog *Catalog
	Tiers   []Tier
}

// NewAdjuster returns an Adjuster over the default catalog and tiers.
func NewAdjuster() *Adjuster {
	return &Adjuster{Catalog: DefaultCatalog(), Tiers: DefaultTiers()}
}

// Apply scores every movie against mood, records the MoodMatch and adds
// the tier boost to its group score. In aggressive mode movies matching
// below AggressiveCutoff are removed. An unknown mood logs a warning and
// returns movies unchanged. Movies without metadata match with score 0.
func (a *Adjuster) Apply(movies []*domain.GroupMatchedMovie, mood string, aggressive bool) []*domain.GroupMatchedMovie {
	profile, ok := a.Catalog.Resolve(mood)
	if !ok {
		log.Warn().Str("mood", mood).Msg("unknown mood; skipping mood adjustment")
		return movies
	}

	out := movies[:0:0]
	for _, m := range movies {
		score, names := profile.Match(m.Genres())
		if aggressive && score < AggressiveCutoff {
			continue
		}
		boost := a.boost(score)
		m.MoodMatch = &domain.MoodMatch{Mood: profile.Name, Score: score, MatchingGenres: names, Boost: boost}
		if boost > 0 {
			m.Boost(boost, "")
		}
		out = append(out, m)
	}
	return out
}

func (a *Adjuster) boost(score float64) float64 {
	for _, t := range a.Tiers {
		if score > t.Above {
			return t.Boost
		}
	}
	return 0
}

// Explain renders a short reason such as "Great for happy: Comedy + Music",
// or "" when the match is too weak to mention.
func (a *Adjuster) Explain(m *domain.MoodMatch) string {
	if m == nil {
		return ""
	}
	label := ""
	for _, t := range a.Tiers {
		if m.Score > t.Above {
			label = t.Label
			break
		}
	}
	if label == "" {
		return ""
	}
	genres := m.MatchingGenres
	if len(genres) > 2 {
		genres = genres[:2]
	}
	if len(genres) == 0 {
		return fmt.Sprintf("%s for %s", label, m.Mood)
	}
	return fmt.Sprintf("%s for %s: %s", label, m.Mood, strings.Join(genres, " + "))
}
