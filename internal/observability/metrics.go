package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// recommendations counts completed pipeline runs by calendar mode.
	recommendations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_matcher_recommendations_total",
			Help: "Completed recommendation runs by calendar mode.",
		},
		[]string{"calendar_mode"},
	)

	stageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movie_matcher_pipeline_stage_seconds",
			Help:    "Duration of recommendation pipeline stages in seconds.",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"stage"},
	)

	// candidates observes how many movies survive each phase.
	candidates = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movie_matcher_candidates",
			Help:    "Number of candidate movies per pipeline phase.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
		[]string{"phase"},
	)

	collaboratorFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_matcher_collaborator_failures_total",
			Help: "Failed calls to external collaborators, treated as missing data.",
		},
		[]string{"collaborator"},
	)
)

func init() {
	prometheus.MustRegister(recommendations, stageLatency, candidates, collaboratorFailures)
}

// CountRecommendation records a finished pipeline run.
func CountRecommendation(calendarMode string) {
	recommendations.WithLabelValues(calendarMode).Inc()
}

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, d time.Duration) {
	stageLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveCandidates records the candidate count after phase.
func ObserveCandidates(phase string, n int) {
	candidates.WithLabelValues(phase).Observe(float64(n))
}

// CollaboratorFailed counts a failed collaborator call.
func CollaboratorFailed(collaborator string) {
	collaboratorFailures.WithLabelValues(collaborator).Inc()
}
