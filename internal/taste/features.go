package taste

import (
	"math"
	"sort"

	"github.com/tbourn/go-movie-matcher/internal/domain"
)

// featureSpace maps metadata to fixed-width vectors: one column per genre of
// the vocabulary, then release year, vote average and popularity.
type featureSpace struct {
	genres []int
	column map[int]int
}

func newFeatureSpace(metas []*domain.MovieMetadata) featureSpace {
	seen := map[int]struct{}{}
	for _, m := range metas {
		if m == nil {
			continue
		}
		for _, g := range m.GenreIDs {
			seen[g] = struct{}{}
		}
	}
	fs := featureSpace{column: make(map[int]int, len(seen))}
	for g := range seen {
		fs.genres = append(fs.genres, g)
	}
	sort.Ints(fs.genres)
	for i, g := range fs.genres {
		fs.column[g] = i
	}
	return fs
}

func (fs featureSpace) width() int { return len(fs.genres) + 3 }

func (fs featureSpace) vector(m *domain.MovieMetadata) []float64 {
	v := make([]float64, fs.width())
	if m == nil {
		return v
	}
	for _, g := range m.GenreIDs {
		if i, ok := fs.column[g]; ok {
			v[i] = 1
		}
	}
	n := len(fs.genres)
	if m.ReleaseYear != nil {
		v[n] = float64(*m.ReleaseYear-1980) / 45
	}
	if m.VoteAverage != nil {
		v[n+1] = *m.VoteAverage / 10
	}
	if m.Popularity != nil && *m.Popularity > 0 {
		v[n+2] = math.Log1p(*m.Popularity) / 10
	}
	return v
}
