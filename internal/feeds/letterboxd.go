package feeds

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-movie-matcher/internal/domain"
	"github.com/tbourn/go-movie-matcher/internal/taste"
)

// DefaultLetterboxdURL is the public RSS feed of a member's diary.
const DefaultLetterboxdURL = "https://letterboxd.com/%s/rss/"

// Rating sources.
const (
	SourceRSS    = "rss"
	SourceManual = "manual"
)

// Letterboxd reads a member's ratings from the diary RSS feed and merges
// them with an optional manual export stored as <dir>/<user>.json.
type Letterboxd struct {
	f         fetcher
	urlFormat string
	dir       string
	loc       *time.Location
}

// LetterboxdOption configures a Letterboxd client.
type LetterboxdOption func(*Letterboxd)

// WithRatingsDir enables the manual JSON ratings in dir.
func WithRatingsDir(dir string) LetterboxdOption {
	return func(l *Letterboxd) { l.dir = dir }
}

// WithRSSURL overrides the feed URL template; %s is the escaped username.
func WithRSSURL(format string) LetterboxdOption {
	return func(l *Letterboxd) {
		if format != "" {
			l.urlFormat = format
		}
	}
}

// WithLocation sets the zone used for offset-less diary dates.
func WithLocation(loc *time.Location) LetterboxdOption {
	return func(l *Letterboxd) {
		if loc != nil {
			l.loc = loc
		}
	}
}

// NewLetterboxd builds the ratings feed client.
func NewLetterboxd(client *http.Client, cb BreakerConfig, opts ...LetterboxdOption) *Letterboxd {
	l := &Letterboxd{f: newFetcher(client, cb), urlFormat: DefaultLetterboxdURL, loc: time.Local}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Ratings returns the member's rated and logged movies. RSS entries win over
// manual entries for the same title and year. An error is returned only
// when neither source produced anything.
func (l *Letterboxd) Ratings(ctx context.Context, username string) ([]domain.RatedMovie, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("empty username")
	}

	rss, rssErr := l.fetchRSS(ctx, username)
	manual, manErr := l.readManual(username)
	if rssErr != nil {
		log.Warn().Err(rssErr).Str("user", username).Msg("letterboxd rss unavailable")
	}
	if manErr != nil && !errors.Is(manErr, os.ErrNotExist) {
		log.Warn().Err(manErr).Str("user", username).Msg("manual ratings unreadable")
	}
	if rssErr != nil && len(manual) == 0 {
		return nil, rssErr
	}
	return mergeRatings(rss, manual), nil
}

func mergeRatings(primary, secondary []domain.RatedMovie) []domain.RatedMovie {
	out := make([]domain.RatedMovie, 0, len(primary)+len(secondary))
	seen := make(map[taste.Key]struct{}, len(primary))
	for _, m := range primary {
		seen[taste.KeyOf(m.Title, m.Year)] = struct{}{}
		out = append(out, m)
	}
	for _, m := range secondary {
		k := taste.KeyOf(m.Title, m.Year)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, m)
	}
	return out
}

// ----------------------------------------------------------------------------
// RSS

type rssDoc struct {
	Items []rssItem `xml:"channel>item"`
}

type rssItem struct {
	Title        string `xml:"title"`
	FilmTitle    string `xml:"filmTitle"`
	FilmYear     string `xml:"filmYear"`
	MemberRating string `xml:"memberRating"`
	Rewatch      string `xml:"rewatch"`
	WatchedDate  string `xml:"watchedDate"`
	MemberLike   string `xml:"memberLike"`
}

var (
	titleYearRE  = regexp.MustCompile(`(.+?)\s*\((\d{4})\)\s*$`)
	titleVerbRE  = regexp.MustCompile(`^\s*\S+\s+(watched|reviewed|rated|liked|logged)\s+`)
	titleStarsRE = regexp.MustCompile(`\s+-\s+[★½]+\s*$`)
)

func (l *Letterboxd) fetchRSS(ctx context.Context, username string) ([]domain.RatedMovie, error) {
	body, err := l.f.get(ctx, fmt.Sprintf(l.urlFormat, url.PathEscape(username)), nil)
	if err != nil {
		return nil, err
	}
	return parseRSS(body, l.loc)
}

func parseRSS(body []byte, loc *time.Location) ([]domain.RatedMovie, error) {
	var doc rssDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode rss: %w", err)
	}
	out := make([]domain.RatedMovie, 0, len(doc.Items))
	for _, it := range doc.Items {
		m, ok := it.toRated(loc)
		if ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (it rssItem) toRated(loc *time.Location) (domain.RatedMovie, bool) {
	title := strings.TrimSpace(it.FilmTitle)
	year := parseYear(it.FilmYear)
	if title == "" {
		title, year = splitTitle(it.Title)
	}
	if title == "" {
		return domain.RatedMovie{}, false
	}
	m := domain.RatedMovie{
		Title:   title,
		Year:    year,
		Rating:  parseRating(it.MemberRating),
		Liked:   yes(it.MemberLike),
		Rewatch: yes(it.Rewatch),
		Source:  SourceRSS,
	}
	if it.WatchedDate != "" {
		if t, err := ParseTimestamp(it.WatchedDate, loc); err == nil {
			m.WatchedDate = &t
		}
	}
	return m, true
}

// splitTitle recovers title and year from an item title such as
// "alice watched Poor Things (2023)" or "Poor Things, 2023 - ★★★★½".
func splitTitle(raw string) (string, *int) {
	s := titleStarsRE.ReplaceAllString(strings.TrimSpace(raw), "")
	s = titleVerbRE.ReplaceAllString(s, "")
	if m := titleYearRE.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1]), parseYear(m[2])
	}
	if i := strings.LastIndex(s, ", "); i > 0 {
		if y := parseYear(s[i+2:]); y != nil {
			return strings.TrimSpace(s[:i]), y
		}
	}
	return strings.TrimSpace(s), nil
}

func parseYear(s string) *int {
	s = strings.TrimSpace(s)
	if len(s) != 4 {
		return nil
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &y
}

func parseRating(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	r, err := strconv.ParseFloat(s, 64)
	if err != nil || r <= 0 || r > 5 {
		return nil
	}
	return &r
}

func yes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1":
		return true
	}
	return false
}

// ----------------------------------------------------------------------------
// Manual JSON

type manualEntry struct {
	Title   string    `json:"title"`
	Year    flexInt   `json:"year"`
	Rating  flexFloat `json:"rating"`
	Liked   bool      `json:"liked"`
	Rewatch bool      `json:"rewatch"`
}

// flexInt accepts 2023 and "2023".
type flexInt struct{ v *int }

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	f.v = &n
	return nil
}

// flexFloat accepts 4.5 and "4.5".
type flexFloat struct{ v *float64 }

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	f.v = parseRating(strings.Trim(string(b), `"`))
	return nil
}

func (l *Letterboxd) readManual(username string) ([]domain.RatedMovie, error) {
	if l.dir == "" {
		return nil, nil
	}
	name := filepath.Base(strings.ToLower(username)) + ".json"
	b, err := os.ReadFile(filepath.Join(l.dir, name))
	if err != nil {
		return nil, err
	}
	return parseManual(b)
}

// parseManual accepts a list of entries or an object whose values are
// entries.
func parseManual(b []byte) ([]domain.RatedMovie, error) {
	var list []manualEntry
	if err := json.Unmarshal(b, &list); err != nil {
		var byKey map[string]manualEntry
		if err2 := json.Unmarshal(b, &byKey); err2 != nil {
			return nil, fmt.Errorf("decode manual ratings: %w", err)
		}
		keys := make([]string, 0, len(byKey))
		for k := range byKey {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			list = append(list, byKey[k])
		}
	}
	out := make([]domain.RatedMovie, 0, len(list))
	for _, e := range list {
		title := strings.TrimSpace(e.Title)
		if title == "" {
			continue
		}
		out = append(out, domain.RatedMovie{
			Title:   title,
			Year:    e.Year.v,
			Rating:  e.Rating.v,
			Liked:   e.Liked,
			Rewatch: e.Rewatch,
			Source:  SourceManual,
		})
	}
	return out, nil
}
