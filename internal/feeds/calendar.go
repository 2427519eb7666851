package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-movie-matcher/internal/availability"
	"github.com/tbourn/go-movie-matcher/internal/domain"
)

// CalendarAvailability reads busy events per member from
// GET <base>/busy?user=&days= and intersects the members' free time.
type CalendarAvailability struct {
	f       fetcher
	baseURL string
	loc     *time.Location
	limit   int
	now     func() time.Time
}

// NewCalendarAvailability builds the availability feed client. limit bounds
// concurrent member requests.
func NewCalendarAvailability(client *http.Client, cb BreakerConfig, baseURL string, loc *time.Location, limit int) *CalendarAvailability {
	if loc == nil {
		loc = time.Local
	}
	if limit <= 0 {
		limit = 4
	}
	return &CalendarAvailability{
		f:       newFetcher(client, cb),
		baseURL: strings.TrimRight(baseURL, "/"),
		loc:     loc,
		limit:   limit,
		now:     time.Now,
	}
}

type busyResponse struct {
	User string      `json:"user"`
	Busy []busyEvent `json:"busy"`
}

type busyEvent struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// FreeSlots returns the slots of at least minDuration in which every member
// is free. Any member failing fails the whole call.
func (c *CalendarAvailability) FreeSlots(ctx context.Context, members []string, daysAhead int, minDuration time.Duration) ([]domain.Interval, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("availability feed not configured")
	}
	busy := make([][]domain.Interval, len(members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)
	for i, m := range members {
		g.Go(func() error {
			b, err := c.busy(gctx, m, daysAhead)
			if err != nil {
				return fmt.Errorf("busy times for %s: %w", m, err)
			}
			busy[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	perMember := make(map[string][]domain.Interval, len(members))
	for i, m := range members {
		perMember[m] = busy[i]
	}
	return availability.CommonFreeSlots(perMember, c.now().In(c.loc), daysAhead, minDuration), nil
}

func (c *CalendarAvailability) busy(ctx context.Context, user string, daysAhead int) ([]domain.Interval, error) {
	q := url.Values{}
	q.Set("user", user)
	q.Set("days", strconv.Itoa(daysAhead))
	body, err := c.f.get(ctx, c.baseURL+"/busy?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var br busyResponse
	if err := json.Unmarshal(body, &br); err != nil {
		return nil, fmt.Errorf("decode busy times: %w", err)
	}
	out := make([]domain.Interval, 0, len(br.Busy))
	for _, ev := range br.Busy {
		start, err1 := ParseTimestamp(ev.Start, c.loc)
		end, err2 := ParseTimestamp(ev.End, c.loc)
		if err1 != nil || err2 != nil {
			continue
		}
		iv, err := domain.NewInterval(start, end)
		if err != nil {
			continue
		}
		out = append(out, iv)
	}
	return out, nil
}
