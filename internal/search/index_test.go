package search

import "testing"

func yr(y int) *int { return &y }

func TestOptionsAndDefaults(t *testing.T) {
	def := defaultConfig()
	if def.minScore != 0.34 || len(def.stopwords) != 3 {
		t.Fatalf("defaultConfig unexpected: %#v", def)
	}

	cfg := def
	WithMinScore(0.5)(&cfg)
	if cfg.minScore != 0.5 {
		t.Fatalf("WithMinScore failed: %v", cfg.minScore)
	}
	WithMinScore(-1)(&cfg) // no-op
	if cfg.minScore != 0.5 {
		t.Fatalf("negative minScore should be ignored")
	}

	WithStopwords([]string{"  Der ", "", "Die"})(&cfg)
	if _, ok := cfg.stopwords["der"]; !ok {
		t.Fatalf("WithStopwords failed (missing 'der'): %#v", cfg.stopwords)
	}
	if _, ok := cfg.stopwords["the"]; ok {
		t.Fatalf("WithStopwords should replace the defaults")
	}
}

func TestBestTitle_Empty(t *testing.T) {
	if _, ok := BestTitle("Dune", nil, nil); ok {
		t.Fatalf("no hits must not match")
	}
}

func TestBestTitle_PrefersCloserTitle(t *testing.T) {
	hits := []Hit{
		{Title: "Dune: Part Two", Year: yr(2024)},
		{Title: "Dune", Year: yr(2021)},
	}
	m, ok := BestTitle("Dune", nil, hits)
	if !ok || m.Index != 1 {
		t.Fatalf("BestTitle = %+v, %v; want index 1", m, ok)
	}
}

func TestBestTitle_YearBreaksTies(t *testing.T) {
	hits := []Hit{
		{Title: "Dune", Year: yr(1984)},
		{Title: "Dune", Year: yr(2021)},
	}
	m, _ := BestTitle("Dune", yr(2021), hits)
	if m.Index != 1 {
		t.Fatalf("year match should win, got %+v", m)
	}
	m, _ = BestTitle("Dune", yr(2022), hits)
	if m.Index != 1 {
		t.Fatalf("off-by-one year should win, got %+v", m)
	}
	m, _ = BestTitle("Dune", nil, hits)
	if m.Index != 0 {
		t.Fatalf("without year the first hit wins ties, got %+v", m)
	}
}

func TestBestTitle_OriginalTitleAndStopwords(t *testing.T) {
	hits := []Hit{
		{Title: "Something Else"},
		{Title: "Anatomy of a Fall", OriginalTitle: "Anatomie d'une chute"},
	}
	m, _ := BestTitle("Anatomie d'une chute", nil, hits)
	if m.Index != 1 {
		t.Fatalf("original title should match, got %+v", m)
	}
	m, _ = BestTitle("The Zone of Interest", nil, []Hit{{Title: "Zone of Interest"}})
	if m.Score != 1 {
		t.Fatalf("stop words should be ignored, score %v", m.Score)
	}
}

func TestBestTitle_FallsBackToFirstHit(t *testing.T) {
	hits := []Hit{{Title: "Completely Different"}, {Title: "Unrelated"}}
	m, ok := BestTitle("Perfect Days", nil, hits)
	if !ok || m.Index != 0 {
		t.Fatalf("fallback should return first hit, got %+v %v", m, ok)
	}
}

func TestHelpers_TokenizeOverlap(t *testing.T) {
	toks := tokenize("2001: A Space Odyssey", map[string]struct{}{"a": {}})
	for _, w := range []string{"2001", "space", "odyssey"} {
		if _, ok := toks[w]; !ok {
			t.Fatalf("missing token %q in %v", w, toks)
		}
	}
	if _, ok := toks["a"]; ok {
		t.Fatalf("stop word kept")
	}
	if tokenize("!!!", nil) != nil {
		t.Fatalf("punctuation only should yield nil")
	}
	a := map[string]struct{}{"x": {}, "y": {}, "z": {}}
	b := map[string]struct{}{"y": {}}
	if overlap(a, b) != 1 || overlap(b, a) != 1 || overlap(nil, a) != 0 {
		t.Fatalf("overlap wrong")
	}
	if j := jaccard(a, b); j != 1.0/3.0 {
		t.Fatalf("jaccard = %v", j)
	}
}
