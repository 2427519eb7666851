package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// HeaderClientID lets trusted frontends identify the end client when many
// users share one egress IP.
const HeaderClientID = "X-Client-ID"

// keyFunc maps a request to its bucket.
type keyFunc func(*gin.Context) string

// KeyByClientIP buckets requests by client IP.
func KeyByClientIP() keyFunc {
	return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
}

// KeyByClientIDOrIP prefers the X-Client-ID header and falls back to the
// client IP. Keys are namespaced so the two never collide.
func KeyByClientIDOrIP() keyFunc {
	return func(c *gin.Context) string {
		if id := strings.TrimSpace(c.GetHeader(HeaderClientID)); id != "" && len(id) <= 128 {
			return "client:" + id
		}
		return "ip:" + c.ClientIP()
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a process-local token-bucket limiter with one bucket per
// key. Idle buckets are swept every sweepEvery lookups. Safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn keyFunc

	mu      sync.Mutex
	buckets map[string]*bucket
	idleTTL time.Duration
	lookups uint64
}

const sweepEvery = 5000

// NewRateLimiter builds a limiter refilling rps tokens per second with the
// given burst (coerced to at least 1). A nil keyFn buckets by client IP.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByClientIP()
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		buckets: make(map[string]*bucket),
		idleTTL: 10 * time.Minute,
	}
}

// limiterFor returns the bucket for key. The sweep runs before the lookup so
// a stale bucket is evicted even when it is the one requested.
func (rl *RateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= sweepEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lookups = 0
	}

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.buckets[key] = &bucket{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator exempted the request.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler enforces the limit, answering 429 with a Retry-After hint derived
// from the bucket's next token.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		now := time.Now()
		lim := rl.limiterFor(rl.keyFn(c), now)
		if lim.AllowN(now, 1) {
			c.Next()
			return
		}

		retry := 1
		if rl.rps > 0 {
			if secs := int(1/float64(rl.rps) + 0.999); secs > retry {
				retry = secs
			}
		}
		rid, _ := c.Get(requestIDKey)
		c.Header("Retry-After", strconv.Itoa(retry))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": asString(rid),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
