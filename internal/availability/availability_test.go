package availability

import (
	"math/rand/v2"
	"reflect"
	"testing"
	"time"

	"github.com/tbourn/go-movie-matcher/internal/domain"
)

var base = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time { return base.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

func iv(sh, sm, eh, em int) domain.Interval {
	return domain.Interval{Start: at(sh, sm), End: at(eh, em)}
}

func TestMerge(t *testing.T) {
	cases := []struct {
		name string
		in   []domain.Interval
		want []domain.Interval
	}{
		{"empty", nil, nil},
		{"single", []domain.Interval{iv(9, 0, 10, 0)}, []domain.Interval{iv(9, 0, 10, 0)}},
		{"overlap", []domain.Interval{iv(9, 0, 11, 0), iv(10, 0, 12, 0)}, []domain.Interval{iv(9, 0, 12, 0)}},
		{"touching", []domain.Interval{iv(9, 0, 10, 0), iv(10, 0, 11, 0)}, []domain.Interval{iv(9, 0, 11, 0)}},
		{"contained", []domain.Interval{iv(9, 0, 13, 0), iv(10, 0, 11, 0)}, []domain.Interval{iv(9, 0, 13, 0)}},
		{"unsorted disjoint", []domain.Interval{iv(14, 0, 15, 0), iv(9, 0, 10, 0)}, []domain.Interval{iv(9, 0, 10, 0), iv(14, 0, 15, 0)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Merge(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Merge = %v; want %v", got, tc.want)
			}
		})
	}
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	in := []domain.Interval{iv(14, 0, 15, 0), iv(9, 0, 10, 0)}
	orig := append([]domain.Interval(nil), in...)
	_ = Merge(in)
	if !reflect.DeepEqual(in, orig) {
		t.Fatalf("input mutated: %v", in)
	}
}

func TestMerge_IdempotentAndDisjoint(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 7))
	for round := 0; round < 200; round++ {
		var in []domain.Interval
		for i := 0; i < r.IntN(12); i++ {
			s := r.IntN(24 * 60)
			d := 1 + r.IntN(180)
			in = append(in, domain.Interval{Start: base.Add(time.Duration(s) * time.Minute), End: base.Add(time.Duration(s+d) * time.Minute)})
		}
		once := Merge(in)
		twice := Merge(once)
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("not idempotent: %v vs %v", once, twice)
		}
		for i := 1; i < len(once); i++ {
			if !once[i-1].End.Before(once[i].Start) {
				t.Fatalf("not strictly disjoint: %v", once)
			}
		}
	}
}

func TestFreeSlots(t *testing.T) {
	busy := []domain.Interval{iv(12, 0, 13, 0), iv(9, 0, 10, 0), iv(12, 30, 14, 0)}
	got := FreeSlots(busy, at(8, 0), at(18, 0), 90*time.Minute)
	want := []domain.Interval{iv(10, 0, 12, 0), iv(14, 0, 18, 0)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FreeSlots = %v; want %v", got, want)
	}

	// The leading 8:00-9:00 gap qualifies at 60 minutes exactly.
	got = FreeSlots(busy, at(8, 0), at(18, 0), 60*time.Minute)
	want = []domain.Interval{iv(8, 0, 9, 0), iv(10, 0, 12, 0), iv(14, 0, 18, 0)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FreeSlots = %v; want %v", got, want)
	}
}

func TestFreeSlots_ClipsToWindow(t *testing.T) {
	busy := []domain.Interval{iv(6, 0, 9, 0), iv(17, 0, 23, 0)}
	got := FreeSlots(busy, at(8, 0), at(18, 0), time.Hour)
	want := []domain.Interval{iv(9, 0, 17, 0)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FreeSlots = %v; want %v", got, want)
	}
	if len(FreeSlots(nil, at(10, 0), at(10, 0), 0)) != 0 {
		t.Fatalf("empty window must yield no slots")
	}
}

func TestFreeSlots_EverySlotLongEnoughAndFree(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	minDur := 90 * time.Minute
	for round := 0; round < 200; round++ {
		var busy []domain.Interval
		for i := 0; i < r.IntN(10); i++ {
			s := r.IntN(48 * 60)
			busy = append(busy, domain.Interval{Start: base.Add(time.Duration(s) * time.Minute), End: base.Add(time.Duration(s+1+r.IntN(240)) * time.Minute)})
		}
		ws, we := base, base.Add(48*time.Hour)
		for _, s := range FreeSlots(busy, ws, we, minDur) {
			if s.Duration() < minDur {
				t.Fatalf("slot %v shorter than %v", s, minDur)
			}
			if s.Start.Before(ws) || s.End.After(we) {
				t.Fatalf("slot %v outside window", s)
			}
			for _, b := range busy {
				if s.Start.Before(b.End) && b.Start.Before(s.End) {
					t.Fatalf("slot %v overlaps busy %v", s, b)
				}
			}
		}
	}
}

func TestCommonFreeSlots_UnionsMembers(t *testing.T) {
	now := at(8, 0)
	busy := map[string][]domain.Interval{
		"alice": {iv(9, 0, 11, 0)},
		"bob":   {iv(10, 0, 12, 0)},
	}
	got := CommonFreeSlots(busy, now, 1, 2*time.Hour)
	if len(got) != 1 || !got[0].Start.Equal(at(12, 0)) || !got[0].End.Equal(now.AddDate(0, 0, 1)) {
		t.Fatalf("CommonFreeSlots = %v", got)
	}
}

func TestPolicy_StandardVsStartInside(t *testing.T) {
	slot := iv(10, 0, 12, 0)
	show := at(10, 30)
	dur := 90 * time.Minute

	std := DefaultPolicy()
	if std.Fits(show, dur, slot, time.UTC) {
		t.Fatalf("standard rule should reject 10:30 + 90m + 30m buffer in 10:00-12:00")
	}
	relaxed := std
	relaxed.AllowStartInside = true
	if !relaxed.Fits(show, dur, slot, time.UTC) {
		t.Fatalf("start-inside rule should accept 10:30 in 10:00-12:00")
	}
	if relaxed.Fits(at(12, 1), dur, slot, time.UTC) {
		t.Fatalf("start-inside rule should reject starts after the slot")
	}
}

func TestPolicy_Tolerances(t *testing.T) {
	slot := iv(10, 0, 12, 0)
	p := Policy{Buffer: 30 * time.Minute}
	if !p.Fits(at(10, 0), 90*time.Minute, slot, time.UTC) {
		t.Fatalf("exact fit must be accepted")
	}
	if p.Fits(at(9, 50), 60*time.Minute, slot, time.UTC) {
		t.Fatalf("early start must be rejected without advance tolerance")
	}
	p.StartAdvance = 15 * time.Minute
	if !p.Fits(at(9, 50), 60*time.Minute, slot, time.UTC) {
		t.Fatalf("early start within tolerance must be accepted")
	}
	p.EndOverrun = 30 * time.Minute
	if !p.Fits(at(10, 30), 90*time.Minute, slot, time.UTC) {
		t.Fatalf("overrun within tolerance must be accepted")
	}
}

func TestNaive_ComparesByLocalWallClock(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	aware := time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC) // 20:00 in CET
	naive := time.Date(2025, 3, 1, 20, 0, 0, 0, berlin)
	if !Naive(aware, berlin).Equal(Naive(naive, berlin)) {
		t.Fatalf("expected equal wall clocks: %v vs %v", Naive(aware, berlin), Naive(naive, berlin))
	}
	if Naive(aware, berlin).Hour() != 20 {
		t.Fatalf("hour = %d", Naive(aware, berlin).Hour())
	}
}

func TestFilterSchedules(t *testing.T) {
	c := domain.Candidate{
		Title: "Dune",
		Schedules: map[string][]time.Time{
			"Roxy":  {at(16, 0), at(10, 0)},
			"Lumen": {at(11, 0)},
		},
	}
	slots := []domain.Interval{iv(9, 30, 12, 30), iv(15, 0, 19, 0)}
	got := FilterSchedules(c, 2*time.Hour, slots, DefaultPolicy(), time.UTC)
	want := map[string][]time.Time{"Roxy": {at(10, 0), at(16, 0)}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FilterSchedules = %v; want %v", got, want)
	}
	if len(FilterSchedules(c, time.Hour, nil, DefaultPolicy(), time.UTC)) != 0 {
		t.Fatalf("no slots must yield no schedules")
	}
}

func TestWithinWindowAndFlatten(t *testing.T) {
	c := domain.Candidate{Schedules: map[string][]time.Time{
		"B": {at(20, 0), at(7, 0)},
		"A": {at(20, 0)},
	}}
	w := WithinWindow(c, at(8, 0), at(22, 0), time.UTC)
	if len(w["B"]) != 1 || len(w["A"]) != 1 {
		t.Fatalf("WithinWindow = %v", w)
	}
	flat := Flatten(w)
	if len(flat) != 2 || flat[0].Cinema != "A" || flat[1].Cinema != "B" {
		t.Fatalf("Flatten = %v", flat)
	}
}
