// Package feeds implements the thin HTTP clients for the external
// collaborators: the ratings feed, the metadata lookup, the showtime feed
// and the availability feed. Every outbound call carries a client timeout
// and runs through a circuit breaker; callers treat errors as missing data.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrNotFound is returned when the upstream answers 404. It does not count
// as a breaker failure.
var ErrNotFound = errors.New("not found upstream")

// maxBody caps how much of a response body is read.
const maxBody = 8 << 20

// BreakerConfig configures the circuit breaker of one collaborator.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig trips after 5 consecutive failures and probes again
// after 30 seconds.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{Name: name, MaxRequests: 1, Interval: time.Minute, Timeout: 30 * time.Second, FailureThreshold: 5}
}

// NewBreaker creates a circuit breaker that logs state changes.
func NewBreaker[T any](cfg BreakerConfig) *gobreaker.CircuitBreaker[T] {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
}

// fetcher performs GET requests through a breaker.
type fetcher struct {
	http *http.Client
	cb   *gobreaker.CircuitBreaker[[]byte]
}

func newFetcher(client *http.Client, cfg BreakerConfig) fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return fetcher{http: client, cb: NewBreaker[[]byte](cfg)}
}

// get returns the body of a 200 response. 404 maps to ErrNotFound.
func (f fetcher) get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	return f.cb.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		resp, err := f.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrNotFound
		case resp.StatusCode != http.StatusOK:
			snippet := body
			if len(snippet) > 256 {
				snippet = snippet[:256]
			}
			return nil, fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, string(snippet))
		}
		return body, nil
	})
}
