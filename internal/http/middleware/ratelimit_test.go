package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestKeyByClientIDOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "203.0.113.9:1234"

	if got := KeyByClientIDOrIP()(c); got != "ip:203.0.113.9" {
		t.Fatalf("ip fallback key = %q", got)
	}
	c.Request.Header.Set(HeaderClientID, "web-42")
	if got := KeyByClientIDOrIP()(c); got != "client:web-42" {
		t.Fatalf("client key = %q", got)
	}
	if got := KeyByClientIP()(c); got != "ip:203.0.113.9" {
		t.Fatalf("ip key = %q", got)
	}
}

func TestRateLimiter_BucketReuseAndSweep(t *testing.T) {
	rl := NewRateLimiter(1, 0, nil)
	if rl.burst != 1 {
		t.Fatalf("burst = %d; want 1", rl.burst)
	}
	now := time.Now()
	a := rl.limiterFor("a", now)
	if rl.limiterFor("a", now) != a {
		t.Fatalf("bucket not reused")
	}

	rl.idleTTL = time.Minute
	rl.lookups = sweepEvery - 1
	b := rl.limiterFor("b", now.Add(2*time.Minute))
	if _, ok := rl.buckets["a"]; ok {
		t.Fatalf("idle bucket should have been swept")
	}
	if rl.buckets["b"].limiter != b || rl.lookups != 0 {
		t.Fatalf("sweep left inconsistent state")
	}
}

func TestRateLimiter_HandlerLimitsAndHonorsBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(0.5, 1, KeyByClientIP())

	r := gin.New()
	r.Use(RequestID())
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-Test-Bypass") != "" {
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	})
	r.Use(rl.Handler())
	r.GET("/moods", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(bypass bool) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/moods", nil)
		req.RemoteAddr = "198.51.100.7:9999"
		if bypass {
			req.Header.Set("X-Test-Bypass", "1")
		}
		r.ServeHTTP(w, req)
		return w
	}

	if w := do(false); w.Code != http.StatusOK {
		t.Fatalf("first request = %d", w.Code)
	}
	w := do(false)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d; want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "2" {
		t.Fatalf("Retry-After = %q; want 2", w.Header().Get("Retry-After"))
	}
	if w := do(true); w.Code != http.StatusOK {
		t.Fatalf("bypassed request = %d", w.Code)
	}
}
