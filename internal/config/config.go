// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage, the external feeds, matching knobs, rate limiting and
// observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// RedisConfig configures the optional metadata cache. An empty Addr
// disables it.
type RedisConfig struct {
	Addr        string        // REDIS_ADDR, e.g. "localhost:6379"
	Password    string        // REDIS_PASSWORD
	DB          int           // REDIS_DB
	MetadataTTL time.Duration // METADATA_CACHE_TTL
}

// FeedsConfig points at the external collaborators.
type FeedsConfig struct {
	TMDBAPIKey       string // TMDB_API_KEY
	TMDBBaseURL      string // TMDB_BASE_URL
	LetterboxdRSSURL string // LETTERBOXD_RSS_URL, must contain %s for the username
	RatingsDir       string // RATINGS_DIR, manual rating exports (optional)
	ShowtimesURL     string // SHOWTIMES_URL
	AvailabilityURL  string // AVAILABILITY_URL, empty disables calendar filtering

	Timeout         time.Duration // FEEDS_TIMEOUT per outbound call
	Concurrency     int           // FEEDS_CONCURRENCY fan-out limit
	BreakerFailures uint32        // BREAKER_FAILURES consecutive failures to open
	BreakerTimeout  time.Duration // BREAKER_TIMEOUT open -> half-open
}

// MatchConfig holds the recommendation defaults and showtime tolerances.
type MatchConfig struct {
	DaysAhead        int           // MATCH_DAYS_AHEAD
	MinSlot          time.Duration // MATCH_MIN_SLOT_MINUTES
	MaxResults       int           // MATCH_MAX_RESULTS
	UseCalendar      bool          // USE_CALENDAR
	RequestTimeout   time.Duration // MATCH_REQUEST_TIMEOUT, 0 disables
	Region           string        // MATCH_REGION, default city filter
	LocalTZ          string        // LOCAL_TZ, IANA name or "Local"
	Buffer           time.Duration // SHOWTIME_BUFFER_MINUTES
	StartAdvance     time.Duration // SHOWTIME_START_ADVANCE_MINUTES
	EndOverrun       time.Duration // SHOWTIME_END_OVERRUN_MINUTES
	AllowStartInside bool          // SHOWTIME_ALLOW_START_INSIDE
}

// Location resolves LocalTZ.
func (m MatchConfig) Location() (*time.Location, error) {
	if m.LocalTZ == "" || strings.EqualFold(m.LocalTZ, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(m.LocalTZ)
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // recommendation runs can be slow
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DBPath string // SQLite path
	Redis  RedisConfig

	Feeds FeedsConfig
	Match MatchConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	CORS CORSConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DBPath: getenv("DB_PATH", "movie-matcher.db"),
		Redis: RedisConfig{
			Addr:        strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password:    getenv("REDIS_PASSWORD", ""),
			DB:          getint("REDIS_DB", 0),
			MetadataTTL: getdur("METADATA_CACHE_TTL", 24*time.Hour),
		},

		Feeds: FeedsConfig{
			TMDBAPIKey:       getenv("TMDB_API_KEY", ""),
			TMDBBaseURL:      getenv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
			LetterboxdRSSURL: getenv("LETTERBOXD_RSS_URL", "https://letterboxd.com/%s/rss/"),
			RatingsDir:       getenv("RATINGS_DIR", ""),
			ShowtimesURL:     getenv("SHOWTIMES_URL", "http://localhost:8090/showings"),
			AvailabilityURL:  getenv("AVAILABILITY_URL", ""),
			Timeout:          getdur("FEEDS_TIMEOUT", 15*time.Second),
			Concurrency:      getint("FEEDS_CONCURRENCY", 4),
			BreakerFailures:  getuint32("BREAKER_FAILURES", 5),
			BreakerTimeout:   getdur("BREAKER_TIMEOUT", 30*time.Second),
		},

		Match: MatchConfig{
			DaysAhead:        getint("MATCH_DAYS_AHEAD", 7),
			MinSlot:          getminutes("MATCH_MIN_SLOT_MINUTES", 120),
			MaxResults:       getint("MATCH_MAX_RESULTS", 20),
			UseCalendar:      getbool("USE_CALENDAR", true),
			RequestTimeout:   getdur("MATCH_REQUEST_TIMEOUT", 45*time.Second),
			Region:           strings.TrimSpace(getenv("MATCH_REGION", "")),
			LocalTZ:          getenv("LOCAL_TZ", "Local"),
			Buffer:           getminutes("SHOWTIME_BUFFER_MINUTES", 30),
			StartAdvance:     getminutes("SHOWTIME_START_ADVANCE_MINUTES", 0),
			EndOverrun:       getminutes("SHOWTIME_END_OVERRUN_MINUTES", 0),
			AllowStartInside: getbool("SHOWTIME_ALLOW_START_INSIDE", false),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 2.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-movie-matcher"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	cfg.Feeds.TMDBBaseURL = strings.TrimRight(strings.TrimSpace(cfg.Feeds.TMDBBaseURL), "/")

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.Redis.DB < 0 {
		return cfg, errors.New("REDIS_DB must be >= 0")
	}
	if cfg.Redis.MetadataTTL <= 0 {
		return cfg, errors.New("METADATA_CACHE_TTL must be > 0")
	}
	if err := validateFeeds(cfg.Feeds); err != nil {
		return cfg, err
	}
	if err := validateMatch(cfg.Match); err != nil {
		return cfg, err
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

func validateFeeds(f FeedsConfig) error {
	switch {
	case f.TMDBBaseURL == "":
		return errors.New("TMDB_BASE_URL must not be empty")
	case strings.Count(f.LetterboxdRSSURL, "%s") != 1:
		return errors.New("LETTERBOXD_RSS_URL must contain exactly one %s")
	case strings.TrimSpace(f.ShowtimesURL) == "":
		return errors.New("SHOWTIMES_URL must not be empty")
	case f.Timeout <= 0:
		return errors.New("FEEDS_TIMEOUT must be > 0")
	case f.Concurrency < 1:
		return errors.New("FEEDS_CONCURRENCY must be >= 1")
	case f.BreakerFailures < 1:
		return errors.New("BREAKER_FAILURES must be >= 1")
	case f.BreakerTimeout <= 0:
		return errors.New("BREAKER_TIMEOUT must be > 0")
	}
	return nil
}

func validateMatch(m MatchConfig) error {
	switch {
	case m.DaysAhead < 1 || m.DaysAhead > 30:
		return errors.New("MATCH_DAYS_AHEAD must be between 1 and 30")
	case m.MinSlot <= 0:
		return errors.New("MATCH_MIN_SLOT_MINUTES must be > 0")
	case m.MaxResults < 1 || m.MaxResults > 100:
		return errors.New("MATCH_MAX_RESULTS must be between 1 and 100")
	case m.RequestTimeout < 0:
		return errors.New("MATCH_REQUEST_TIMEOUT must be >= 0")
	case m.Buffer < 0 || m.StartAdvance < 0 || m.EndOverrun < 0:
		return errors.New("SHOWTIME_* tolerances must be >= 0")
	}
	if _, err := m.Location(); err != nil {
		return fmt.Errorf("LOCAL_TZ: %w", err)
	}
	return nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// getuint32 maps negative values to 0 so validation rejects them.
func getuint32(k string, def int) uint32 {
	n := getint(k, def)
	if n < 0 {
		return 0
	}
	return uint32(n)
}

// getminutes reads an integer number of minutes.
func getminutes(k string, def int) time.Duration {
	return time.Duration(getint(k, def)) * time.Minute
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
