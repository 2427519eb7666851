package feeds

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tbourn/go-movie-matcher/internal/domain"
)

const diaryRSS = `<?xml version="1.0" encoding="utf-8"?>
<rss version="2.0" xmlns:letterboxd="https://letterboxd.com" xmlns:tmdb="https://themoviedb.org">
<channel>
  <title>Letterboxd - alice</title>
  <item>
    <title>Poor Things, 2023 - ★★★★½</title>
    <letterboxd:watchedDate>2024-01-10</letterboxd:watchedDate>
    <letterboxd:rewatch>No</letterboxd:rewatch>
    <letterboxd:filmTitle>Poor Things</letterboxd:filmTitle>
    <letterboxd:filmYear>2023</letterboxd:filmYear>
    <letterboxd:memberRating>4.5</letterboxd:memberRating>
    <letterboxd:memberLike>Yes</letterboxd:memberLike>
  </item>
  <item>
    <title>alice watched Perfect Days (2023)</title>
    <letterboxd:rewatch>Yes</letterboxd:rewatch>
  </item>
  <item>
    <title></title>
  </item>
</channel>
</rss>`

func testBreaker(name string) BreakerConfig {
	return BreakerConfig{Name: name, MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, FailureThreshold: 2}
}

func TestLetterboxd_ParsesRSSAndMergesManual(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(diaryRSS))
	}))
	defer srv.Close()

	dir := t.TempDir()
	manual := `[
	  {"title": "Poor Things", "year": "2023", "rating": 1.0},
	  {"title": "Past Lives", "year": 2023, "rating": "4"},
	  {"title": ""}
	]`
	if err := os.WriteFile(filepath.Join(dir, "alice.json"), []byte(manual), 0o600); err != nil {
		t.Fatal(err)
	}

	lb := NewLetterboxd(srv.Client(), testBreaker("lb"), WithRSSURL(srv.URL+"/%s/rss/"), WithRatingsDir(dir), WithLocation(time.UTC))
	got, err := lb.Ratings(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Ratings: %v", err)
	}
	if path != "/alice/rss/" {
		t.Fatalf("requested %q", path)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 ratings, got %d: %+v", len(got), got)
	}

	pt := got[0]
	if pt.Title != "Poor Things" || *pt.Year != 2023 || *pt.Rating != 4.5 || !pt.Liked || pt.Rewatch || pt.Source != SourceRSS {
		t.Fatalf("rss entry = %+v", pt)
	}
	if pt.WatchedDate == nil || !pt.WatchedDate.Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("watched date = %v", pt.WatchedDate)
	}

	pd := got[1]
	if pd.Title != "Perfect Days" || *pd.Year != 2023 || pd.Rating != nil || !pd.Rewatch {
		t.Fatalf("title fallback entry = %+v", pd)
	}

	pl := got[2]
	if pl.Title != "Past Lives" || *pl.Year != 2023 || *pl.Rating != 4 || pl.Source != SourceManual {
		t.Fatalf("manual entry = %+v", pl)
	}
}

func TestLetterboxd_ManualSurvivesRSSFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	dir := t.TempDir()
	manual := `{"a": {"title": "Aftersun", "year": 2022, "rating": 5}}`
	if err := os.WriteFile(filepath.Join(dir, "bob.json"), []byte(manual), 0o600); err != nil {
		t.Fatal(err)
	}
	lb := NewLetterboxd(srv.Client(), testBreaker("lb2"), WithRSSURL(srv.URL+"/%s"), WithRatingsDir(dir))

	got, err := lb.Ratings(context.Background(), "Bob")
	if err != nil || len(got) != 1 || got[0].Title != "Aftersun" {
		t.Fatalf("Ratings = %+v, %v", got, err)
	}
	if _, err := lb.Ratings(context.Background(), "carol"); err == nil {
		t.Fatalf("no source at all should error")
	}
	if _, err := lb.Ratings(context.Background(), "  "); err == nil {
		t.Fatalf("empty username should error")
	}
}

func TestSplitTitle(t *testing.T) {
	cases := []struct {
		in    string
		title string
		year  int
	}{
		{"alice watched Poor Things (2023)", "Poor Things", 2023},
		{"bob rated 2001: A Space Odyssey (1968)", "2001: A Space Odyssey", 1968},
		{"Aftersun, 2022 - ★★★★★", "Aftersun", 2022},
		{"Just A Title", "Just A Title", 0},
	}
	for _, c := range cases {
		title, year := splitTitle(c.in)
		y := 0
		if year != nil {
			y = *year
		}
		if title != c.title || y != c.year {
			t.Fatalf("splitTitle(%q) = %q, %d", c.in, title, y)
		}
	}
}

func TestTMDB_LookupPicksBestHitAndRuntime(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/movie", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("api_key") != "k" || q.Get("query") != "Dune" || q.Get("year") != "2021" || q.Get("include_adult") != "false" {
			t.Errorf("unexpected query %v", q)
		}
		fmt.Fprint(w, `{"page":1,"results":[
		  {"id":1,"title":"Dune: Part Two","release_date":"2024-02-27","genre_ids":[878,12],"vote_average":8.2,"popularity":300},
		  {"id":2,"title":"Dune","release_date":"2021-09-15","genre_ids":[878,12],"vote_average":7.8,"popularity":120.5}
		]}`)
	})
	mux.HandleFunc("/movie/2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":2,"runtime":155}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tm := NewTMDB(srv.Client(), testBreaker("tmdb"), srv.URL+"/", "k")
	meta, err := tm.Lookup(context.Background(), "Dune", domain.IntPtr(2021))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if meta == nil || meta.ID != 2 || *meta.ReleaseYear != 2021 || *meta.RuntimeMinutes != 155 || *meta.VoteAverage != 7.8 || *meta.Popularity != 120.5 {
		t.Fatalf("meta = %+v", meta)
	}
	if len(meta.GenreIDs) != 2 {
		t.Fatalf("genres = %v", meta.GenreIDs)
	}
}

func TestTMDB_NoResultsAndMissingRuntime(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/movie", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "Nothing" {
			fmt.Fprint(w, `{"page":1,"results":[]}`)
			return
		}
		fmt.Fprint(w, `{"page":1,"results":[{"id":9,"title":"Aftersun","release_date":"2022-10-21"}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tm := NewTMDB(srv.Client(), testBreaker("tmdb2"), srv.URL, "k")
	if meta, err := tm.Lookup(context.Background(), "Nothing", nil); err != nil || meta != nil {
		t.Fatalf("empty search = %+v, %v", meta, err)
	}
	meta, err := tm.Lookup(context.Background(), "Aftersun", nil)
	if err != nil || meta == nil || meta.RuntimeMinutes != nil || meta.GenreIDs == nil {
		t.Fatalf("missing runtime = %+v, %v", meta, err)
	}
}

type mapCache struct {
	data map[string][]byte
	sets int
	fail bool
}

func (m *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.fail {
		return nil, false, errors.New("down")
	}
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
	if m.fail {
		return errors.New("down")
	}
	m.sets++
	m.data[key] = val
	return nil
}

type countingLookup struct {
	calls int
	meta  map[string]*domain.MovieMetadata
}

func (c *countingLookup) Lookup(_ context.Context, title string, _ *int) (*domain.MovieMetadata, error) {
	c.calls++
	return c.meta[title], nil
}

func TestCachedMetadata_CachesHitsAndMisses(t *testing.T) {
	next := &countingLookup{meta: map[string]*domain.MovieMetadata{
		"Dune": {ID: 2, Title: "Dune", GenreIDs: []int{878}},
	}}
	cache := &mapCache{data: map[string][]byte{}}
	cm := NewCachedMetadata(next, cache, time.Hour)
	ctx := context.Background()

	for range 2 {
		m, err := cm.Lookup(ctx, "Dune", domain.IntPtr(2021))
		if err != nil || m == nil || m.ID != 2 {
			t.Fatalf("Lookup = %+v, %v", m, err)
		}
		m, err = cm.Lookup(ctx, "Unknown", nil)
		if err != nil || m != nil {
			t.Fatalf("miss = %+v, %v", m, err)
		}
	}
	if next.calls != 2 || cache.sets != 2 {
		t.Fatalf("calls=%d sets=%d, want 2/2", next.calls, cache.sets)
	}
	if _, ok := cache.data[CacheKey("dune", domain.IntPtr(2021))]; !ok {
		t.Fatalf("key should be normalized: %v", cache.data)
	}

	cache.fail = true
	if m, err := cm.Lookup(ctx, "Dune", nil); err != nil || m == nil {
		t.Fatalf("cache failure must fall through: %+v, %v", m, err)
	}
}

func TestRedisCache_NilClientMisses(t *testing.T) {
	c := NewRedisCache(nil)
	if _, ok, err := c.Get(context.Background(), "k"); ok || err != nil {
		t.Fatalf("nil client Get = %v, %v", ok, err)
	}
	if err := c.Set(context.Background(), "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("nil client Set = %v", err)
	}
}

func TestShowtimeAPI_GroupsAndFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("days") != "3" || r.URL.Query().Get("city") != "Amsterdam" {
			t.Errorf("query = %v", r.URL.Query())
		}
		fmt.Fprint(w, `[
		  {"title":"Poor Things","year":2023,"duration":141,"cinema":"Lab111","city":"Amsterdam","start":"2025-03-01T21:00:00"},
		  {"title":"Poor Things","year":"2023","cinema":"Lab111","city":"amsterdam","start":"2025-03-01T18:00:00"},
		  {"title":"POOR THINGS","year":2023,"cinema":"Eye","city":"Amsterdam","start":"2025-03-02T20:00:00+01:00"},
		  {"title":"Poor Things","year":2023,"cinema":"Lab111","city":"Amsterdam","start":"2025-03-01T18:00:00"},
		  {"title":"Perfect Days","cinema":"Studio","city":"Utrecht","start":"2025-03-01T19:00:00"},
		  {"title":"Too Late","cinema":"Eye","city":"Amsterdam","start":"2025-03-09T19:00:00"},
		  {"title":"Past","cinema":"Eye","city":"Amsterdam","start":"2025-02-28T19:00:00"},
		  {"title":"Broken","cinema":"Eye","city":"Amsterdam","start":"tomorrow"}
		]`)
	}))
	defer srv.Close()

	ams, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	api := NewShowtimeAPI(srv.Client(), testBreaker("shows"), srv.URL, ams)
	api.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, ams) }

	got, err := api.Candidates(context.Background(), 3, "Amsterdam")
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("want 1 candidate, got %+v", got)
	}
	c := got[0]
	if c.Title != "Poor Things" || *c.Year != 2023 || *c.DurationMinutes != 141 {
		t.Fatalf("candidate = %+v", c)
	}
	lab := c.Schedules["Lab111"]
	if len(lab) != 2 || lab[0].Hour() != 18 || lab[1].Hour() != 21 {
		t.Fatalf("Lab111 schedule = %v", lab)
	}
	if len(c.Schedules["Eye"]) != 1 {
		t.Fatalf("Eye schedule = %v", c.Schedules["Eye"])
	}
}

func TestCalendarAvailability_FreeSlots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/busy" {
			http.NotFound(w, r)
			return
		}
		switch r.URL.Query().Get("user") {
		case "alice":
			fmt.Fprint(w, `{"user":"alice","busy":[{"start":"2025-03-01T08:00:00Z","end":"2025-03-01T12:00:00Z"}]}`)
		case "bob":
			fmt.Fprint(w, `{"user":"bob","busy":[
			  {"start":"2025-03-01T11:00:00Z","end":"2025-03-01T14:00:00Z"},
			  {"start":"2025-03-01T16:00:00Z","end":"2025-03-01T15:00:00Z"}
			]}`)
		default:
			http.Error(w, "unknown", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	cal := NewCalendarAvailability(srv.Client(), testBreaker("cal"), srv.URL, time.UTC, 2)
	cal.now = func() time.Time { return time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC) }

	slots, err := cal.FreeSlots(context.Background(), []string{"alice", "bob"}, 1, time.Hour)
	if err != nil {
		t.Fatalf("FreeSlots: %v", err)
	}
	want := domain.Interval{Start: time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC), End: time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)}
	if len(slots) != 1 || !slots[0].Start.Equal(want.Start) || !slots[0].End.Equal(want.End) {
		t.Fatalf("slots = %+v", slots)
	}

	if _, err := cal.FreeSlots(context.Background(), []string{"alice", "mallory"}, 1, time.Hour); err == nil {
		t.Fatalf("a failing member must fail the call")
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newFetcher(srv.Client(), testBreaker("trip"))
	for range 2 {
		if _, err := f.get(context.Background(), srv.URL, nil); err == nil {
			t.Fatalf("500 should error")
		}
	}
	_, err := f.get(context.Background(), srv.URL, nil)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("want open breaker, got %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("open breaker must not reach upstream, hits=%d", hits.Load())
	}
}

func TestBreaker_NotFoundDoesNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := newFetcher(srv.Client(), testBreaker("nf"))
	for range 5 {
		if _, err := f.get(context.Background(), srv.URL, nil); !errors.Is(err, ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-01T20:00:00Z", time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)},
		{"2025-03-01T20:00:00+02:00", time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)},
		{"2025-03-01T20:00:00", time.Date(2025, 3, 1, 20, 0, 0, 0, loc)},
		{"2025-03-01 20:00", time.Date(2025, 3, 1, 20, 0, 0, 0, loc)},
		{"2025-03-01", time.Date(2025, 3, 1, 0, 0, 0, 0, loc)},
	}
	for _, c := range cases {
		got, err := ParseTimestamp(c.in, loc)
		if err != nil || !got.Equal(c.want) {
			t.Fatalf("ParseTimestamp(%q) = %v, %v; want %v", c.in, got, err, c.want)
		}
	}
	if _, err := ParseTimestamp("", loc); err == nil {
		t.Fatalf("empty should error")
	}
	if _, err := ParseTimestamp("soon", loc); err == nil {
		t.Fatalf("garbage should error")
	}
}
