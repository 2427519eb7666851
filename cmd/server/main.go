// Command server runs the group movie recommendation API.
//
// @title        Movie Matcher API
// @version      1.0
// @description  Group movie recommendations from Letterboxd taste, shared free time and local showtimes.
// @BasePath     /api/v1
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-movie-matcher/internal/availability"
	"github.com/tbourn/go-movie-matcher/internal/config"
	"github.com/tbourn/go-movie-matcher/internal/feeds"
	httpapi "github.com/tbourn/go-movie-matcher/internal/http"
	"github.com/tbourn/go-movie-matcher/internal/mood"
	"github.com/tbourn/go-movie-matcher/internal/observability"
	"github.com/tbourn/go-movie-matcher/internal/repo"
	"github.com/tbourn/go-movie-matcher/internal/services"
	"github.com/tbourn/go-movie-matcher/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

const purgeEvery = time.Hour

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	sysutil.ConfigureLogger(os.Stdout, cfg.LogPretty, cfg.OTEL.ServiceName)
	sysutil.SetLogLevel(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ver := sysutil.FirstNonEmpty(version, os.Getenv("APP_VERSION"), "dev")
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	svc, choiceSvc, closeFeeds, err := buildServices(ctx, cfg, db)
	if err != nil {
		log.Fatal().Err(err).Msg("wire services")
	}
	defer closeFeeds()

	r := gin.New()
	httpapi.RegisterRoutes(r, db, svc, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go purgeIdempotency(ctx, choiceSvc)

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", ver).Msg("movie-matcher listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// buildServices wires the feed clients and application services from cfg.
// The returned func releases the metadata cache connection.
func buildServices(ctx context.Context, cfg config.Config, db *gorm.DB) (httpapi.Services, *services.ChoiceService, func(), error) {
	closeFeeds := func() {}
	loc, err := cfg.Match.Location()
	if err != nil {
		return httpapi.Services{}, nil, closeFeeds, fmt.Errorf("LOCAL_TZ %q: %w", cfg.Match.LocalTZ, err)
	}
	client := &http.Client{Timeout: cfg.Feeds.Timeout}
	breaker := func(name string) feeds.BreakerConfig {
		b := feeds.DefaultBreakerConfig(name)
		b.FailureThreshold = cfg.Feeds.BreakerFailures
		b.Timeout = cfg.Feeds.BreakerTimeout
		return b
	}

	ratings := feeds.NewLetterboxd(client, breaker("letterboxd"),
		feeds.WithRSSURL(cfg.Feeds.LetterboxdRSSURL),
		feeds.WithRatingsDir(cfg.Feeds.RatingsDir),
		feeds.WithLocation(loc),
	)

	var meta services.MetadataLookup = feeds.NewTMDB(client, breaker("tmdb"), cfg.Feeds.TMDBBaseURL, cfg.Feeds.TMDBAPIKey)
	if cfg.Redis.Addr != "" {
		rdb, err := feeds.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("metadata cache disabled")
		} else {
			closeFeeds = func() { _ = rdb.Close() }
			meta = feeds.NewCachedMetadata(meta, feeds.NewRedisCache(rdb), cfg.Redis.MetadataTTL)
		}
	}

	shows := feeds.NewShowtimeAPI(client, breaker("showtimes"), cfg.Feeds.ShowtimesURL, loc)

	var avail services.AvailabilityFeed
	if cfg.Feeds.AvailabilityURL != "" {
		avail = feeds.NewCalendarAvailability(client, breaker("calendar"), cfg.Feeds.AvailabilityURL, loc, cfg.Feeds.Concurrency)
	}

	moods := mood.NewAdjuster()

	recSvc := services.NewRecommendationService(db, ratings, meta, shows, avail)
	recSvc.Mood = moods
	recSvc.Location = loc
	recSvc.Concurrency = cfg.Feeds.Concurrency
	recSvc.Timeout = cfg.Match.RequestTimeout
	recSvc.Defaults = services.MatchDefaults{
		DaysAhead:   cfg.Match.DaysAhead,
		MinSlot:     cfg.Match.MinSlot,
		MaxResults:  cfg.Match.MaxResults,
		UseCalendar: cfg.Match.UseCalendar,
		Region:      cfg.Match.Region,
	}
	recSvc.Feasibility = availability.Policy{
		Buffer:           cfg.Match.Buffer,
		StartAdvance:     cfg.Match.StartAdvance,
		EndOverrun:       cfg.Match.EndOverrun,
		AllowStartInside: cfg.Match.AllowStartInside,
	}

	choiceSvc := services.NewChoiceService(db)
	choiceSvc.IdemTTL = cfg.IdempotencyTTL

	log.Info().Bool("calendar", avail != nil).Bool("metadata_cache", cfg.Redis.Addr != "").Str("tz", loc.String()).Msg("services wired")
	return httpapi.Services{Recommender: recSvc, Choices: choiceSvc, Moods: moods}, choiceSvc, closeFeeds, nil
}

// purgeIdempotency drops expired idempotency keys until ctx is done.
func purgeIdempotency(ctx context.Context, svc *services.ChoiceService) {
	t := time.NewTicker(purgeEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := svc.PurgeExpired(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("purge idempotency keys")
				continue
			}
			if n > 0 {
				log.Debug().Int64("removed", n).Msg("expired idempotency keys purged")
			}
		}
	}
}
