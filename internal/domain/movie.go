// Package domain defines the core types of the group movie matcher: rated
// movies and their metadata, calendar intervals, cinema showtimes, scored
// group candidates and the persisted group history. The persistence rows
// are mapped with GORM and live next to the value types they store.
package domain

import (
	"errors"
	"time"
)

// DefaultDurationMinutes is assumed for a screening when neither the
// showtime feed nor the metadata lookup reports a runtime.
const DefaultDurationMinutes = 120

// ErrInvalidInterval is returned by NewInterval when start is not before end.
var ErrInvalidInterval = errors.New("interval start must be before end")

// RatedMovie is one entry of a member's rating history as delivered by the
// ratings feed. Rating is on the 0.5–5.0 star scale and nil when the member
// logged the film without rating it.
type RatedMovie struct {
	Title       string     `json:"title"`
	Year        *int       `json:"year,omitempty"`
	Rating      *float64   `json:"rating,omitempty"`
	Liked       bool       `json:"liked"`
	Rewatch     bool       `json:"rewatch"`
	WatchedDate *time.Time `json:"watched_date,omitempty"`
	Source      string     `json:"source"`
}

// MovieMetadata is what the metadata lookup knows about a title. Optional
// numeric fields are nil when the upstream record omits them.
type MovieMetadata struct {
	ID             int      `json:"id"`
	Title          string   `json:"title"`
	GenreIDs       []int    `json:"genre_ids"`
	ReleaseYear    *int     `json:"release_year,omitempty"`
	VoteAverage    *float64 `json:"vote_average,omitempty"`
	Popularity     *float64 `json:"popularity,omitempty"`
	RuntimeMinutes *int     `json:"runtime_minutes,omitempty"`
}

// Interval is a closed-open span of time. Start is always before End.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewInterval validates and returns an Interval.
func NewInterval(start, end time.Time) (Interval, error) {
	if !start.Before(end) {
		return Interval{}, ErrInvalidInterval
	}
	return Interval{Start: start, End: end}, nil
}

// Duration returns End - Start.
func (i Interval) Duration() time.Duration { return i.End.Sub(i.Start) }

// ShowTime is a single screening of a movie at a cinema.
type ShowTime struct {
	Cinema string    `json:"cinema"`
	Start  time.Time `json:"start"`
}

// Candidate is a movie playing in the lookahead window together with its
// schedule per cinema. Times per cinema are kept in ascending order.
type Candidate struct {
	Title           string                 `json:"title"`
	Year            *int                   `json:"year,omitempty"`
	DurationMinutes *int                   `json:"duration_minutes,omitempty"`
	Schedules       map[string][]time.Time `json:"schedules"`
}

// Duration returns the screening length used for feasibility checks:
// the candidate's own duration, then the metadata runtime, then the default.
func (c Candidate) Duration(meta *MovieMetadata) time.Duration {
	switch {
	case c.DurationMinutes != nil && *c.DurationMinutes > 0:
		return time.Duration(*c.DurationMinutes) * time.Minute
	case meta != nil && meta.RuntimeMinutes != nil && *meta.RuntimeMinutes > 0:
		return time.Duration(*meta.RuntimeMinutes) * time.Minute
	default:
		return DefaultDurationMinutes * time.Minute
	}
}

// MoodMatch records how a candidate fared against the requested mood.
type MoodMatch struct {
	Mood           string   `json:"mood"`
	Score          float64  `json:"score"`
	MatchingGenres []string `json:"matching_genres"`
	Boost          float64  `json:"boost"`
}

// GroupMatchedMovie is a scored candidate for one recommendation request.
// GroupScore starts as the aggregated per-user score and is adjusted
// additively by the mood and history stages before the final normalization.
type GroupMatchedMovie struct {
	Title         string             `json:"title"`
	Year          *int               `json:"year,omitempty"`
	GroupScore    float64            `json:"group_score"`
	PerUserScores map[string]float64 `json:"per_user_scores"`
	Showtimes     []ShowTime         `json:"showtimes"`
	Metadata      *MovieMetadata     `json:"metadata,omitempty"`
	MoodMatch     *MoodMatch         `json:"mood_match,omitempty"`
	BoostReasons  []string           `json:"boost_reasons,omitempty"`
}

// Genres returns the candidate's genre ids, or nil without metadata.
func (m *GroupMatchedMovie) Genres() []int {
	if m.Metadata == nil {
		return nil
	}
	return m.Metadata.GenreIDs
}

// Boost adds delta to the group score and records reason when non-empty.
func (m *GroupMatchedMovie) Boost(delta float64, reason string) {
	m.GroupScore += delta
	if reason != "" {
		m.BoostReasons = append(m.BoostReasons, reason)
	}
}

// IntPtr and FloatPtr build optional fields inline.
func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }
