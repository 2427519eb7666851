package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-movie-matcher/internal/domain"
	"github.com/tbourn/go-movie-matcher/internal/search"
)

// DefaultTMDBBaseURL is the public TMDb v3 API.
const DefaultTMDBBaseURL = "https://api.themoviedb.org/3"

// TMDB looks up movie metadata on The Movie Database.
type TMDB struct {
	f       fetcher
	baseURL string
	apiKey  string
}

// NewTMDB builds the metadata client. An empty baseURL uses the public API.
func NewTMDB(client *http.Client, cb BreakerConfig, baseURL, apiKey string) *TMDB {
	if baseURL == "" {
		baseURL = DefaultTMDBBaseURL
	}
	return &TMDB{f: newFetcher(client, cb), baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

type searchResponse struct {
	Page    int         `json:"page"`
	Results []tmdbMovie `json:"results"`
}

type tmdbMovie struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	ReleaseDate   string  `json:"release_date"`
	GenreIDs      []int   `json:"genre_ids"`
	VoteAverage   float64 `json:"vote_average"`
	Popularity    float64 `json:"popularity"`
}

type tmdbDetail struct {
	ID      int `json:"id"`
	Runtime int `json:"runtime"`
}

// Lookup searches by title and optional year and returns the best hit with
// its runtime. It returns nil, nil when nothing matches.
func (t *TMDB) Lookup(ctx context.Context, title string, year *int) (*domain.MovieMetadata, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}
	q := url.Values{}
	q.Set("api_key", t.apiKey)
	q.Set("query", title)
	q.Set("include_adult", "false")
	if year != nil {
		q.Set("year", strconv.Itoa(*year))
	}
	body, err := t.f.get(ctx, t.baseURL+"/search/movie?"+q.Encode(), nil)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tmdb search %q: %w", title, err)
	}
	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("decode tmdb search: %w", err)
	}

	hits := make([]search.Hit, len(sr.Results))
	for i, r := range sr.Results {
		hits[i] = search.Hit{Title: r.Title, OriginalTitle: r.OriginalTitle, Year: yearOf(r.ReleaseDate)}
	}
	m, ok := search.BestTitle(title, year, hits)
	if !ok {
		return nil, nil
	}
	best := sr.Results[m.Index]

	meta := &domain.MovieMetadata{
		ID:          best.ID,
		Title:       best.Title,
		GenreIDs:    best.GenreIDs,
		ReleaseYear: yearOf(best.ReleaseDate),
		VoteAverage: domain.FloatPtr(best.VoteAverage),
		Popularity:  domain.FloatPtr(best.Popularity),
	}
	if meta.GenreIDs == nil {
		meta.GenreIDs = []int{}
	}
	if rt, err := t.runtime(ctx, best.ID); err != nil {
		log.Debug().Err(err).Int("tmdb_id", best.ID).Msg("tmdb runtime unavailable")
	} else if rt > 0 {
		meta.RuntimeMinutes = domain.IntPtr(rt)
	}
	return meta, nil
}

func (t *TMDB) runtime(ctx context.Context, id int) (int, error) {
	q := url.Values{}
	q.Set("api_key", t.apiKey)
	body, err := t.f.get(ctx, fmt.Sprintf("%s/movie/%d?%s", t.baseURL, id, q.Encode()), nil)
	if err != nil {
		return 0, err
	}
	var d tmdbDetail
	if err := json.Unmarshal(body, &d); err != nil {
		return 0, fmt.Errorf("decode tmdb detail: %w", err)
	}
	return d.Runtime, nil
}

// yearOf extracts the year of a YYYY-MM-DD release date.
func yearOf(date string) *int {
	if len(date) < 4 {
		return nil
	}
	return parseYear(date[:4])
}
