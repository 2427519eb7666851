// Package search picks the metadata search hit that best matches a movie
// title. It is deterministic, dependency-free and safe for concurrent use:
//
//   - No logging in the library (callers decide how/what to log)
//   - Functional options for stop words and the acceptance threshold
//   - Unicode-aware tokenization
//   - Stable order for ties (earlier hits win, as ranked upstream)
//
// Scoring uses Jaccard similarity between the query token set and each
// hit's token set, score = |Q ∩ H| / |Q ∪ H|, plus a small bonus when the
// release year agrees.
package search

import (
	"regexp"
	"strings"
)

// Hit is one candidate returned by a metadata search.
type Hit struct {
	Title         string
	OriginalTitle string
	Year          *int
}

// Match is the chosen hit and its score.
type Match struct {
	Index int
	Score float64
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	stopwords   map[string]struct{}
	minScore    float64
	yearBonus   float64
	nearbyBonus float64
}

func defaultConfig() config {
	return config{
		stopwords:   map[string]struct{}{"the": {}, "a": {}, "an": {}},
		minScore:    0.34,
		yearBonus:   0.25,
		nearbyBonus: 0.1,
	}
}

// WithStopwords replaces the default stop words ("the", "a", "an").
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		c.stopwords = m
	}
}

// WithMinScore sets the score below which a hit is not considered a match.
func WithMinScore(s float64) Option {
	return func(c *config) {
		if s >= 0 {
			c.minScore = s
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

// BestTitle returns the hit that best matches title and year. When no hit
// reaches the threshold the first hit is returned, so the upstream ranking
// decides. ok is false only when hits is empty.
func BestTitle(title string, year *int, hits []Hit, opts ...Option) (Match, bool) {
	if len(hits) == 0 {
		return Match{}, false
	}
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	q := tokenize(title, cfg.stopwords)
	best := Match{Index: -1}
	for i, h := range hits {
		s := max(jaccard(q, tokenize(h.Title, cfg.stopwords)), jaccard(q, tokenize(h.OriginalTitle, cfg.stopwords)))
		if s == 0 {
			continue
		}
		if year != nil && h.Year != nil {
			switch d := *year - *h.Year; {
			case d == 0:
				s += cfg.yearBonus
			case d == 1 || d == -1:
				s += cfg.nearbyBonus
			}
		}
		if s > best.Score {
			best = Match{Index: i, Score: s}
		}
	}
	if best.Index < 0 || best.Score < cfg.minScore {
		return Match{Index: 0, Score: best.Score}, true
	}
	return best, true
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*|\p{N}+`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	s = strings.ToLower(s)
	words := wordRE.FindAllString(s, -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	over := overlap(a, b)
	if over == 0 {
		return 0
	}
	return float64(over) / float64(len(a)+len(b)-over)
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
