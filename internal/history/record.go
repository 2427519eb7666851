package history

import (
	"slices"
	"strings"
	"time"

	"github.com/tbourn/go-movie-matcher/internal/domain"
)

// MaxRecordedOptions caps the alternatives stored with a choice.
const MaxRecordedOptions = 10

// NewChoiceRecord snapshots a group's pick. The first showtime of chosen
// gives the cinema and time; options keeps the first MaxRecordedOptions
// recommendations.
func NewChoiceRecord(members []string, options []*domain.GroupMatchedMovie, chosen *domain.GroupMatchedMovie, now time.Time) domain.ChoiceRecord {
	norm := domain.NormalizeMembers(members)
	rec := domain.ChoiceRecord{
		Timestamp:     now,
		Members:       norm,
		ChosenTitle:   chosen.Title,
		ChosenYear:    chosen.Year,
		ChosenGenres:  append([]int{}, chosen.Genres()...),
		ChosenScore:   chosen.GroupScore,
		PerUserScores: memberScores(chosen.PerUserScores, norm),
		Options:       make([]domain.ChoiceOption, 0, min(len(options), MaxRecordedOptions)),
	}
	if len(chosen.Showtimes) > 0 {
		first := chosen.Showtimes[0]
		start := first.Start
		rec.ChosenCinema = first.Cinema
		rec.ChosenTime = &start
	}
	for i, o := range options {
		if i == MaxRecordedOptions {
			break
		}
		rec.Options = append(rec.Options, domain.ChoiceOption{
			Title:         o.Title,
			Year:          o.Year,
			GroupScore:    o.GroupScore,
			PerUserScores: memberScores(o.PerUserScores, norm),
		})
	}
	return rec
}

// memberScores keys scores by normalized member name and drops entries of
// anyone outside members. Keys that fold together keep the highest score.
func memberScores(in map[string]float64, members []string) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		name := strings.ToLower(strings.TrimSpace(k))
		if !slices.Contains(members, name) {
			continue
		}
		if old, ok := out[name]; !ok || v > old {
			out[name] = v
		}
	}
	return out
}
