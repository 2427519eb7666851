package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

// managedEnv lists every variable Load reads; TestMain clears them so the
// host environment cannot leak into defaults.
var managedEnv = []string{
	"PORT", "READ_TIMEOUT", "READ_HEADER_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "MAX_HEADER_BYTES", "GIN_MODE",
	"LOG_LEVEL", "LOG_PRETTY", "SWAGGER_ENABLED", "API_BASE_PATH",
	"DB_PATH", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "METADATA_CACHE_TTL",
	"TMDB_API_KEY", "TMDB_BASE_URL", "LETTERBOXD_RSS_URL", "RATINGS_DIR", "SHOWTIMES_URL", "AVAILABILITY_URL",
	"FEEDS_TIMEOUT", "FEEDS_CONCURRENCY", "BREAKER_FAILURES", "BREAKER_TIMEOUT",
	"MATCH_DAYS_AHEAD", "MATCH_MIN_SLOT_MINUTES", "MATCH_MAX_RESULTS", "USE_CALENDAR", "MATCH_REQUEST_TIMEOUT",
	"MATCH_REGION", "LOCAL_TZ", "SHOWTIME_BUFFER_MINUTES", "SHOWTIME_START_ADVANCE_MINUTES",
	"SHOWTIME_END_OVERRUN_MINUTES", "SHOWTIME_ALLOW_START_INSIDE",
	"RATE_RPS", "RATE_BURST", "CORS_ALLOWED_ORIGINS", "IDEMPOTENCY_TTL",
	"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE", "OTEL_SERVICE_NAME", "OTEL_TRACES_SAMPLER_ARG",
}

func TestMain(m *testing.M) {
	for _, k := range managedEnv {
		_ = os.Unsetenv(k)
	}
	os.Exit(m.Run())
}

func containsErr(err error, want string) bool {
	return err != nil && strings.Contains(err.Error(), want)
}

func TestMustLoad(t *testing.T) {
	t.Run("panics on invalid config", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "verbose")
		defer func() {
			if r := recover(); r == nil {
				t.Fatalf("MustLoad should panic on invalid config")
			}
		}()
		_ = MustLoad()
	})
	t.Run("defaults load", func(t *testing.T) {
		cfg := MustLoad()
		if cfg.Port != "8080" {
			t.Fatalf("port = %q", cfg.Port)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIBasePath != "/api/v1" || cfg.DBPath != "movie-matcher.db" || cfg.GinMode != "release" {
		t.Fatalf("server/storage defaults unexpected: %+v", cfg)
	}
	if cfg.Redis.Addr != "" || cfg.Redis.MetadataTTL != 24*time.Hour {
		t.Fatalf("redis defaults unexpected: %+v", cfg.Redis)
	}
	f := cfg.Feeds
	if f.TMDBBaseURL != "https://api.themoviedb.org/3" || f.LetterboxdRSSURL != "https://letterboxd.com/%s/rss/" ||
		f.AvailabilityURL != "" || f.Concurrency != 4 || f.BreakerFailures != 5 || f.BreakerTimeout != 30*time.Second {
		t.Fatalf("feeds defaults unexpected: %+v", f)
	}
	m := cfg.Match
	want := MatchConfig{
		DaysAhead:      7,
		MinSlot:        120 * time.Minute,
		MaxResults:     20,
		UseCalendar:    true,
		RequestTimeout: 45 * time.Second,
		LocalTZ:        "Local",
		Buffer:         30 * time.Minute,
	}
	if m != want {
		t.Fatalf("match defaults = %+v; want %+v", m, want)
	}
	if loc, err := m.Location(); err != nil || loc != time.Local {
		t.Fatalf("Location() = %v, %v", loc, err)
	}
	if cfg.RateRPS != 2 || cfg.RateBurst != 10 || cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("rate/idempotency defaults unexpected: %+v", cfg)
	}
	if cfg.OTEL.Enabled || cfg.OTEL.ServiceName != "go-movie-matcher" {
		t.Fatalf("otel defaults unexpected: %+v", cfg.OTEL)
	}
}

func TestLoad_OverridesAndNormalization(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("WRITE_TIMEOUT", "90s")
	t.Setenv("GIN_MODE", "weird")
	t.Setenv("LOG_LEVEL", "warning")
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("SWAGGER_ENABLED", "on")
	t.Setenv("API_BASE_PATH", "api/v2/")
	t.Setenv("REDIS_ADDR", " redis:6379 ")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("METADATA_CACHE_TTL", "6h")
	t.Setenv("TMDB_API_KEY", "k")
	t.Setenv("TMDB_BASE_URL", "http://tmdb.local/3/")
	t.Setenv("RATINGS_DIR", "/data/ratings")
	t.Setenv("AVAILABILITY_URL", "http://calendar.local")
	t.Setenv("FEEDS_CONCURRENCY", "8")
	t.Setenv("MATCH_DAYS_AHEAD", "3")
	t.Setenv("MATCH_MIN_SLOT_MINUTES", "90")
	t.Setenv("USE_CALENDAR", "false")
	t.Setenv("MATCH_REGION", " Amsterdam ")
	t.Setenv("LOCAL_TZ", "UTC")
	t.Setenv("SHOWTIME_BUFFER_MINUTES", "15")
	t.Setenv("SHOWTIME_START_ADVANCE_MINUTES", "10")
	t.Setenv("SHOWTIME_END_OVERRUN_MINUTES", "20")
	t.Setenv("SHOWTIME_ALLOW_START_INSIDE", "1")
	t.Setenv("RATE_RPS", "x")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("IDEMPOTENCY_TTL", "48h")
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8088" || cfg.ReadTimeout != 2*time.Second || cfg.WriteTimeout != 90*time.Second || cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v2" {
		t.Fatalf("logging/docs unexpected: %+v", cfg)
	}
	if cfg.Redis.Addr != "redis:6379" || cfg.Redis.DB != 2 || cfg.Redis.MetadataTTL != 6*time.Hour {
		t.Fatalf("redis unexpected: %+v", cfg.Redis)
	}
	if cfg.Feeds.TMDBBaseURL != "http://tmdb.local/3" || cfg.Feeds.TMDBAPIKey != "k" ||
		cfg.Feeds.RatingsDir != "/data/ratings" || cfg.Feeds.AvailabilityURL != "http://calendar.local" || cfg.Feeds.Concurrency != 8 {
		t.Fatalf("feeds unexpected: %+v", cfg.Feeds)
	}
	m := cfg.Match
	if m.DaysAhead != 3 || m.MinSlot != 90*time.Minute || m.UseCalendar || m.Region != "Amsterdam" ||
		m.Buffer != 15*time.Minute || m.StartAdvance != 10*time.Minute || m.EndOverrun != 20*time.Minute || !m.AllowStartInside {
		t.Fatalf("match unexpected: %+v", m)
	}
	if loc, err := m.Location(); err != nil || loc.String() != "UTC" {
		t.Fatalf("Location() = %v, %v", loc, err)
	}
	if cfg.RateRPS != 2 {
		t.Fatalf("RATE_RPS should fall back on bad parse, got %v", cfg.RateRPS)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("idempotency ttl unexpected: %v", cfg.IdempotencyTTL)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Insecure || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name, key, val, want string
	}{
		{"invalid LOG_LEVEL", "LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"empty PORT", "PORT", "   ", "PORT must not be empty"},
		{"non-positive timeout", "READ_TIMEOUT", "0s", "timeouts must be positive"},
		{"max header bytes", "MAX_HEADER_BYTES", "0", "MAX_HEADER_BYTES"},
		{"empty DB_PATH", "DB_PATH", "   ", "DB_PATH must not be empty"},
		{"negative REDIS_DB", "REDIS_DB", "-1", "REDIS_DB"},
		{"cache ttl", "METADATA_CACHE_TTL", "0s", "METADATA_CACHE_TTL"},
		{"rss url without placeholder", "LETTERBOXD_RSS_URL", "https://letterboxd.com/rss/", "LETTERBOXD_RSS_URL"},
		{"blank showtimes url", "SHOWTIMES_URL", "  ", "SHOWTIMES_URL"},
		{"feeds timeout", "FEEDS_TIMEOUT", "0s", "FEEDS_TIMEOUT"},
		{"feeds concurrency", "FEEDS_CONCURRENCY", "0", "FEEDS_CONCURRENCY"},
		{"negative breaker failures", "BREAKER_FAILURES", "-3", "BREAKER_FAILURES"},
		{"breaker timeout", "BREAKER_TIMEOUT", "-1s", "BREAKER_TIMEOUT"},
		{"days ahead too large", "MATCH_DAYS_AHEAD", "31", "MATCH_DAYS_AHEAD"},
		{"days ahead zero", "MATCH_DAYS_AHEAD", "0", "MATCH_DAYS_AHEAD"},
		{"min slot", "MATCH_MIN_SLOT_MINUTES", "0", "MATCH_MIN_SLOT_MINUTES"},
		{"max results", "MATCH_MAX_RESULTS", "101", "MATCH_MAX_RESULTS"},
		{"request timeout", "MATCH_REQUEST_TIMEOUT", "-1s", "MATCH_REQUEST_TIMEOUT"},
		{"negative buffer", "SHOWTIME_BUFFER_MINUTES", "-5", "SHOWTIME_"},
		{"unknown tz", "LOCAL_TZ", "Mars/Olympus_Mons", "LOCAL_TZ"},
		{"rate rps negative", "RATE_RPS", "-1", "RATE_RPS"},
		{"rate burst", "RATE_BURST", "0", "RATE_BURST"},
		{"idempotency ttl", "IDEMPOTENCY_TTL", "0s", "IDEMPOTENCY_TTL"},
		{"otel ratio", "OTEL_TRACES_SAMPLER_ARG", "1.5", "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); !containsErr(err, tc.want) {
				t.Fatalf("expected error containing %q, got: %v", tc.want, err)
			}
		})
	}
}

func TestHelpers_getenv(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	if getenv("X_EMPTY", "d") != "d" {
		t.Fatalf("getenv should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if getenv("X_SET", "d") != "val" {
		t.Fatalf("getenv should read set value")
	}
}

func TestHelpers_Numbers(t *testing.T) {
	t.Setenv("F_VALID", "3.14")
	t.Setenv("F_BAD", "nope")
	if getfloat("F_VALID", 0) != 3.14 || getfloat("F_BAD", 1.23) != 1.23 {
		t.Fatalf("getfloat failed")
	}
	t.Setenv("I_VALID", "42")
	t.Setenv("I_BAD", "x")
	if getint("I_VALID", 0) != 42 || getint("I_BAD", 7) != 7 {
		t.Fatalf("getint failed")
	}
	t.Setenv("U_NEG", "-4")
	if getuint32("U_NEG", 5) != 0 || getuint32("U_UNSET", 5) != 5 {
		t.Fatalf("getuint32 failed")
	}
	t.Setenv("M_VALID", "45")
	if getminutes("M_VALID", 0) != 45*time.Minute || getminutes("M_UNSET", 2) != 2*time.Minute {
		t.Fatalf("getminutes failed")
	}
	t.Setenv("D_VALID", "150ms")
	t.Setenv("D_BAD", "zzz")
	if getdur("D_VALID", time.Second) != 150*time.Millisecond || getdur("D_BAD", 2*time.Second) != 2*time.Second {
		t.Fatalf("getdur failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on"} {
		t.Setenv("B", v)
		if !getbool("B", false) {
			t.Fatalf("getbool(%q) should be true", v)
		}
	}
	for _, v := range []string{"0", "false", "No", "n", "off"} {
		t.Setenv("B", v)
		if getbool("B", true) {
			t.Fatalf("getbool(%q) should be false", v)
		}
	}
	t.Setenv("B", "maybe")
	if !getbool("B", true) {
		t.Fatalf("getbool should fall back on unknown value")
	}
}

func TestHelpers_splitCSV_and_normalizeBasePath(t *testing.T) {
	if splitCSV("") != nil {
		t.Fatalf("splitCSV(\"\") should be nil")
	}
	if got := splitCSV(" a, ,b ,"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("splitCSV = %#v", got)
	}
	cases := map[string]string{"": "/", "/": "/", "api": "/api", "/api/v1/": "/api/v1", "  v2// ": "/v2"}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q; want %q", in, got, want)
		}
	}
}
