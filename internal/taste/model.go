// Package taste builds per-member preference models from rating histories
// and movie metadata, and predicts a 0–2 preference score for candidates.
//
// Prediction walks an ordered list of strategies: an explicit rating of the
// same movie, the trained regressor, the genre-weight table and finally the
// member's mean rating. The first strategy that can answer wins.
package taste

import (
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-movie-matcher/internal/domain"
)

// Source names the strategy that produced a prediction.
type Source string

const (
	SourceExplicit     Source = "explicit"
	SourceRegressor    Source = "regressor"
	SourceGenreWeights Source = "genre_weights"
	SourceMean         Source = "mean"
)

const (
	// MinTrainingSamples is the number of rated movies with metadata needed
	// before the regressor is trained.
	MinTrainingSamples = 5
	// NeutralScore is returned for members without any explicit rating.
	NeutralScore = 1.0
	// MaxScore is the top of the preference scale.
	MaxScore = 2.0
)

// Rescale maps a 0.5–5.0 star rating to the 0–2 preference scale.
func Rescale(stars float64) float64 { return stars / 5 * 2 }

type strategy struct {
	source Source
	fn     func(m *Model, k Key, hasYear bool, meta *domain.MovieMetadata) (float64, bool)
}

var strategies = []strategy{
	{SourceExplicit, (*Model).explicit},
	{SourceRegressor, (*Model).regressor},
	{SourceGenreWeights, (*Model).genreWeighted},
	{SourceMean, (*Model).meanScore},
}

// Model is the trained taste of one member. It is immutable after Build and
// safe for concurrent use.
type Model struct {
	Username string

	// exact holds rescaled ratings by (title, year); year 0 entries come from
	// ratings logged without a year.
	exact map[Key]float64

	features     featureSpace
	forest       *Forest
	genreWeights map[int]float64
	maxWeight    float64
	mean         float64
	samples      int
}

// Build trains the model of username from ratings. metas holds the metadata
// found for rated movies, keyed by KeyOf(title, year); missing entries are
// tolerated. Unrated entries are ignored and duplicates keep the highest
// rating.
func Build(username string, ratings []domain.RatedMovie, metas map[Key]*domain.MovieMetadata, p ForestParams) *Model {
	m := &Model{
		Username:     username,
		exact:        map[Key]float64{},
		genreWeights: map[int]float64{},
		mean:         NeutralScore,
	}

	for _, r := range ratings {
		if r.Rating == nil || *r.Rating <= 0 {
			continue
		}
		score := Rescale(*r.Rating)
		k := KeyOf(r.Title, r.Year)
		if old, ok := m.exact[k]; !ok || score > old {
			m.exact[k] = score
		}
	}
	if len(m.exact) == 0 {
		return m
	}

	keys := make([]Key, 0, len(m.exact))
	var sum float64
	for k, s := range m.exact {
		keys = append(keys, k)
		sum += s
	}
	m.mean = sum / float64(len(m.exact))
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Title != keys[j].Title {
			return keys[i].Title < keys[j].Title
		}
		return keys[i].Year < keys[j].Year
	})

	var found []*domain.MovieMetadata
	for _, k := range keys {
		if meta := metas[k]; meta != nil {
			found = append(found, meta)
		}
	}
	m.features = newFeatureSpace(found)

	genreSum := map[int]float64{}
	genreCount := map[int]int{}
	var X [][]float64
	var y []float64
	for _, k := range keys {
		meta := metas[k]
		if meta == nil {
			continue
		}
		score := m.exact[k]
		X = append(X, m.features.vector(meta))
		y = append(y, score)
		for _, g := range meta.GenreIDs {
			genreSum[g] += score
			genreCount[g]++
		}
	}
	for g, s := range genreSum {
		w := s / float64(genreCount[g])
		m.genreWeights[g] = w
		if w > m.maxWeight {
			m.maxWeight = w
		}
	}

	m.samples = len(X)
	if m.samples >= MinTrainingSamples {
		m.forest = TrainForest(X, y, p)
	}
	log.Debug().
		Str("user", username).
		Int("ratings", len(m.exact)).
		Int("samples", m.samples).
		Bool("regressor", m.forest != nil).
		Msg("taste model built")
	return m
}

// Trained reports whether the regressor is available.
func (m *Model) Trained() bool { return m.forest != nil }

// Predict returns the member's preference for a movie in [0, 2].
func (m *Model) Predict(title string, year *int, meta *domain.MovieMetadata) float64 {
	s, _ := m.PredictWithSource(title, year, meta)
	return s
}

// PredictWithSource is Predict plus the strategy that answered.
func (m *Model) PredictWithSource(title string, year *int, meta *domain.MovieMetadata) (float64, Source) {
	k := KeyOf(title, year)
	for _, s := range strategies {
		if v, ok := s.fn(m, k, year != nil, meta); ok {
			return v, s.source
		}
	}
	return NeutralScore, SourceMean
}

func (m *Model) explicit(k Key, hasYear bool, _ *domain.MovieMetadata) (float64, bool) {
	if hasYear {
		if s, ok := m.exact[k]; ok {
			return s, true
		}
	}
	s, ok := m.exact[Key{Title: k.Title}]
	return s, ok
}

func (m *Model) regressor(_ Key, _ bool, meta *domain.MovieMetadata) (float64, bool) {
	if m.forest == nil || meta == nil {
		return 0, false
	}
	return clamp(m.forest.Predict(m.features.vector(meta)), 0, MaxScore), true
}

func (m *Model) genreWeighted(_ Key, _ bool, meta *domain.MovieMetadata) (float64, bool) {
	if meta == nil || len(meta.GenreIDs) == 0 || len(m.genreWeights) == 0 {
		return 0, false
	}
	var sum float64
	for _, g := range meta.GenreIDs {
		sum += m.genreWeights[g]
	}
	denom := float64(len(meta.GenreIDs)) * (math.Abs(m.maxWeight) + 1e-6)
	return clamp(sum/denom, 0, MaxScore), true
}

func (m *Model) meanScore(Key, bool, *domain.MovieMetadata) (float64, bool) {
	return m.mean, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
