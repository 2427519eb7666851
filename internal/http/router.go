// Package httpapi wires the Gin transport to the recommendation and choice
// services: tracing, correlation ids, logging, recovery, metrics,
// idempotency, rate limiting, compression, CORS and the versioned routes.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-movie-matcher/docs"
	"github.com/tbourn/go-movie-matcher/internal/config"
	"github.com/tbourn/go-movie-matcher/internal/http/handlers"
	"github.com/tbourn/go-movie-matcher/internal/http/middleware"
	"github.com/tbourn/go-movie-matcher/internal/mood"
	"github.com/tbourn/go-movie-matcher/internal/repo"
)

// Services are the application services behind the handlers.
type Services struct {
	Recommender handlers.Recommender
	Choices     handlers.ChoiceRecorder
	Moods       *mood.Adjuster
}

const maxBodyBytes = 1 << 20

// RegisterRoutes attaches middleware and endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry
//  2. RequestID
//  3. Logger (request-scoped logger in Gin and request contexts)
//  4. Recovery
//  5. Body size limit
//  6. Metrics
//  7. Idempotency validator (before the limiter so replays bypass it)
//  8. Rate limiter
//  9. gzip and CORS
func RegisterRoutes(r *gin.Engine, db *gorm.DB, svc Services, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var lookup middleware.IdempotencyLookup
	if db != nil {
		lookup = func(ctx context.Context, key string, now time.Time) (bool, error) {
			return repo.IdempotencyKeyLive(ctx, db, key, now)
		}
	}
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, lookup))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIDOrIP())
	r.Use(rl.Handler())

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/swagger"})))
	r.Use(corsMiddleware(cfg.CORS))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", health(db))

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(svc.Recommender, svc.Choices, svc.Moods)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/recommendations", h.Recommend)
		api.GET("/moods", h.ListMoods)

		api.POST("/groups/choices", h.RecordChoice)
		api.GET("/groups/:group/history", h.GroupHistory)
		api.GET("/groups/:group/summary", h.GroupSummary)
	}
}

func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderIdempotencyKey, middleware.HeaderClientID},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", handlers.HeaderIdempotencyReplayed, "Retry-After"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		c.AllowAllOrigins = true
		inner := cors.New(c)
		// Also answer requests without an Origin header, e.g. health probes.
		return func(ctx *gin.Context) {
			ctx.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			inner(ctx)
		}
	}
	c.AllowOrigins = cfg.AllowedOrigins
	return cors.New(c)
}

// health reports liveness and, when a database is wired, whether it answers
// a ping.
func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
				err = sqlDB.PingContext(ctx)
				cancel()
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// limitBody caps request bodies at maxBytes; reads beyond it fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
