package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestFail_EnvelopeAndServerErrorLogging(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-1")
		c.Set("logger", &logger)
		c.Next()
	})
	r.GET("/boom", func(c *gin.Context) { fail(c, http.StatusInternalServerError, ErrCodeInternal, "kaboom") })
	r.GET("/bad", func(c *gin.Context) { Fail(c, http.StatusBadRequest, ErrCodeBadRequest, "nope") })

	cases := []struct {
		path   string
		status int
		code   string
		logged bool
	}{
		{"/boom", http.StatusInternalServerError, ErrCodeInternal, true},
		{"/bad", http.StatusBadRequest, ErrCodeBadRequest, false},
	}
	for _, tc := range cases {
		buf.Reset()
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if w.Code != tc.status {
			t.Fatalf("%s: status=%d", tc.path, w.Code)
		}
		var resp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: json: %v", tc.path, err)
		}
		if resp.RequestID != "rid-1" || resp.Code != tc.code {
			t.Fatalf("%s: unexpected body %+v", tc.path, resp)
		}
		if got := strings.Contains(buf.String(), `"api error"`); got != tc.logged {
			t.Fatalf("%s: logged=%v want %v (%s)", tc.path, got, tc.logged, buf.String())
		}
	}
}
