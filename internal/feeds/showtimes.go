package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-movie-matcher/internal/domain"
	"github.com/tbourn/go-movie-matcher/internal/taste"
)

// ShowtimeAPI fetches screenings from an HTTP JSON endpoint and groups them
// into candidates. The endpoint answers GET <base>?days=&city= with
//
//	[{"title","year","duration","cinema","city","start"}, ...]
type ShowtimeAPI struct {
	f       fetcher
	baseURL string
	loc     *time.Location
	now     func() time.Time
}

// NewShowtimeAPI builds the showtime feed client. loc interprets start
// times without an offset.
func NewShowtimeAPI(client *http.Client, cb BreakerConfig, baseURL string, loc *time.Location) *ShowtimeAPI {
	if loc == nil {
		loc = time.Local
	}
	return &ShowtimeAPI{f: newFetcher(client, cb), baseURL: baseURL, loc: loc, now: time.Now}
}

type showing struct {
	Title    string  `json:"title"`
	Year     flexInt `json:"year"`
	Duration flexInt `json:"duration"`
	Cinema   string  `json:"cinema"`
	City     string  `json:"city"`
	Start    string  `json:"start"`
}

// Candidates returns the movies screening within daysAhead days, optionally
// restricted to region (a city, case-insensitive).
func (s *ShowtimeAPI) Candidates(ctx context.Context, daysAhead int, region string) ([]domain.Candidate, error) {
	if s.baseURL == "" {
		return nil, fmt.Errorf("showtime feed not configured")
	}
	q := url.Values{}
	q.Set("days", strconv.Itoa(daysAhead))
	if region != "" {
		q.Set("city", region)
	}
	sep := "?"
	if strings.Contains(s.baseURL, "?") {
		sep = "&"
	}
	body, err := s.f.get(ctx, s.baseURL+sep+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch showtimes: %w", err)
	}
	var shows []showing
	if err := json.Unmarshal(body, &shows); err != nil {
		return nil, fmt.Errorf("decode showtimes: %w", err)
	}
	now := s.now()
	return groupShowings(shows, now, now.AddDate(0, 0, daysAhead), region, s.loc), nil
}

// groupShowings keeps showings in [from, to] and region, and groups them by
// normalized title and year in order of first appearance.
func groupShowings(shows []showing, from, to time.Time, region string, loc *time.Location) []domain.Candidate {
	region = strings.TrimSpace(region)
	idx := map[taste.Key]int{}
	var out []domain.Candidate
	skipped := 0

	for _, sh := range shows {
		title := strings.TrimSpace(sh.Title)
		cinema := strings.TrimSpace(sh.Cinema)
		if title == "" || cinema == "" {
			skipped++
			continue
		}
		if region != "" && sh.City != "" && !strings.EqualFold(strings.TrimSpace(sh.City), region) {
			continue
		}
		start, err := ParseTimestamp(sh.Start, loc)
		if err != nil {
			skipped++
			continue
		}
		if start.Before(from) || start.After(to) {
			continue
		}

		k := taste.KeyOf(title, sh.Year.v)
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, domain.Candidate{Title: title, Year: sh.Year.v, Schedules: map[string][]time.Time{}})
		}
		c := &out[i]
		if c.DurationMinutes == nil && sh.Duration.v != nil && *sh.Duration.v > 0 {
			c.DurationMinutes = sh.Duration.v
		}
		if !slices.ContainsFunc(c.Schedules[cinema], start.Equal) {
			c.Schedules[cinema] = append(c.Schedules[cinema], start)
		}
	}
	for i := range out {
		for cinema := range out[i].Schedules {
			slices.SortFunc(out[i].Schedules[cinema], func(a, b time.Time) int { return a.Compare(b) })
		}
	}
	if skipped > 0 {
		log.Debug().Int("skipped", skipped).Msg("malformed showings ignored")
	}
	return out
}
