// Package services – RecommendationService
//
// This file implements the recommendation pipeline. One call runs the fixed
// stage sequence for a group of members and returns a ranked, truncated
// list of candidate screenings:
//
//	ResolveHistory → BuildProfiles → ComputeAvailability → FetchCandidates →
//	FilterFeasible → ScorePerUser → AggregateGroupScore → [ApplyMood] →
//	[ApplyHistory] → Normalize → RankAndTruncate
//
// Collaborator failures never fail the request: a member whose ratings
// cannot be fetched gets no profile, a title whose metadata cannot be found
// is scored without it, and an availability failure switches the run to the
// unfiltered calendar mode.
//
// Observability: every stage is an OpenTelemetry span and a Prometheus
// latency observation.
package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/go-movie-matcher/internal/availability"
	"github.com/tbourn/go-movie-matcher/internal/domain"
	"github.com/tbourn/go-movie-matcher/internal/history"
	"github.com/tbourn/go-movie-matcher/internal/mood"
	"github.com/tbourn/go-movie-matcher/internal/observability"
	"github.com/tbourn/go-movie-matcher/internal/repo"
	"github.com/tbourn/go-movie-matcher/internal/scoring"
	"github.com/tbourn/go-movie-matcher/internal/taste"
)

const recTracer = "services/RecommendationService"

// Calendar modes reported with every result.
const (
	CalendarFiltered   = "filtered"
	CalendarUnfiltered = "unfiltered"
)

// Pipeline stage names, in execution order.
const (
	StageResolveHistory      = "resolve_history"
	StageBuildProfiles       = "build_profiles"
	StageComputeAvailability = "compute_availability"
	StageFetchCandidates     = "fetch_candidates"
	StageFilterFeasible      = "filter_feasible"
	StageScorePerUser        = "score_per_user"
	StageAggregate           = "aggregate_group_score"
	StageApplyMood           = "apply_mood"
	StageApplyHistory        = "apply_history"
	StageNormalize           = "normalize"
	StageRank                = "rank_and_truncate"
)

// RatingsFeed returns a member's rating history.
type RatingsFeed interface {
	Ratings(ctx context.Context, username string) ([]domain.RatedMovie, error)
}

// MetadataLookup returns metadata for a title, or nil when unknown.
type MetadataLookup interface {
	Lookup(ctx context.Context, title string, year *int) (*domain.MovieMetadata, error)
}

// ShowtimeFeed returns the movies screening in the next daysAhead days.
type ShowtimeFeed interface {
	Candidates(ctx context.Context, daysAhead int, region string) ([]domain.Candidate, error)
}

// AvailabilityFeed returns the slots in which every member is free.
type AvailabilityFeed interface {
	FreeSlots(ctx context.Context, members []string, daysAhead int, minDuration time.Duration) ([]domain.Interval, error)
}

// MatchDefaults holds the request parameters used when a request omits them.
type MatchDefaults struct {
	DaysAhead   int
	MinSlot     time.Duration
	MaxResults  int
	UseCalendar bool
	Region      string
}

// DefaultMatchDefaults looks a week ahead for two-hour slots and returns at
// most 20 movies.
func DefaultMatchDefaults() MatchDefaults {
	return MatchDefaults{DaysAhead: 7, MinSlot: 2 * time.Hour, MaxResults: 20, UseCalendar: true}
}

// RecommendRequest is one recommendation query. Nil and zero fields take
// the service defaults.
type RecommendRequest struct {
	Members          []string
	Mood             string
	AggressiveMood   bool
	DaysAhead        int
	UseCalendar      *bool
	MaxResults       int
	Region           string
	LearnFromHistory *bool
}

// RecommendResult is the outcome of one pipeline run.
type RecommendResult struct {
	GroupID         string
	CalendarMode    string
	Recommendations []*domain.GroupMatchedMovie
	History         *domain.GroupHistory
	Stages          []string
}

// RecommendationService runs the recommendation pipeline. Ratings,
// Metadata and Showtimes are required; Availability and DB are optional.
type RecommendationService struct {
	DB           *gorm.DB
	Ratings      RatingsFeed
	Metadata     MetadataLookup
	Showtimes    ShowtimeFeed
	Availability AvailabilityFeed

	Forest      taste.ForestParams
	Weights     scoring.Weights
	Normalizer  scoring.NormalizePolicy
	Feasibility availability.Policy
	Mood        *mood.Adjuster
	Learner     *history.Learner

	Defaults    MatchDefaults
	Location    *time.Location
	Concurrency int
	Timeout     time.Duration
	Now         func() time.Time
}

// NewRecommendationService wires the collaborators with default policies.
func NewRecommendationService(db *gorm.DB, ratings RatingsFeed, meta MetadataLookup, shows ShowtimeFeed, avail AvailabilityFeed) *RecommendationService {
	return &RecommendationService{
		DB:           db,
		Ratings:      ratings,
		Metadata:     meta,
		Showtimes:    shows,
		Availability: avail,
		Forest:       taste.DefaultForestParams(),
		Weights:      scoring.DefaultWeights(),
		Normalizer:   scoring.DefaultNormalizePolicy(),
		Feasibility:  availability.DefaultPolicy(),
		Mood:         mood.NewAdjuster(),
		Learner:      history.NewLearner(),
		Defaults:     DefaultMatchDefaults(),
		Location:     time.Local,
		Concurrency:  4,
		Now:          time.Now,
	}
}

// run carries the state of one pipeline execution.
type run struct {
	s       *RecommendationService
	req     RecommendRequest
	members []string
	days    int
	useCal  bool
	learn   bool
	limit   int
	region  string
	now     time.Time

	res      *RecommendResult
	profiles map[string]*taste.Model
	metas    map[taste.Key]*domain.MovieMetadata
	slots    []domain.Interval
	cands    []domain.Candidate
	movies   []*domain.GroupMatchedMovie
}

// Recommend runs the pipeline for req. It fails only on caller mistakes
// (ErrNoMembers) or when the request deadline expires; every other problem
// yields fewer or no recommendations.
func (s *RecommendationService) Recommend(ctx context.Context, req RecommendRequest) (*RecommendResult, error) {
	members := domain.NormalizeMembers(req.Members)
	if len(members) == 0 {
		return nil, ErrNoMembers
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	tr := otel.Tracer(recTracer)
	ctx, span := tr.Start(ctx, "Recommend",
		trace.WithAttributes(
			attribute.StringSlice("members", members),
			attribute.String("mood", req.Mood),
		),
	)
	defer span.End()

	r := s.newRun(req, members)
	steps := []struct {
		name string
		fn   func(context.Context) bool
		skip func() bool
	}{
		{StageResolveHistory, r.resolveHistory, nil},
		{StageBuildProfiles, r.buildProfiles, nil},
		{StageComputeAvailability, r.computeAvailability, nil},
		{StageFetchCandidates, r.fetchCandidates, nil},
		{StageFilterFeasible, r.filterFeasible, nil},
		{StageScorePerUser, r.scorePerUser, nil},
		{StageAggregate, r.aggregate, nil},
		{StageApplyMood, r.applyMood, r.skipMood},
		{StageApplyHistory, r.applyHistory, r.skipHistory},
		{StageNormalize, r.normalize, nil},
		{StageRank, r.rank, nil},
	}
	for _, st := range steps {
		if st.skip != nil && st.skip() {
			continue
		}
		if !r.stage(ctx, st.name, st.fn) {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	span.SetAttributes(
		attribute.String("calendar_mode", r.res.CalendarMode),
		attribute.Int("results", len(r.res.Recommendations)),
	)
	observability.CountRecommendation(r.res.CalendarMode)
	ctxLogger(ctx).Info().
		Str("group_id", r.res.GroupID).
		Str("calendar_mode", r.res.CalendarMode).
		Int("results", len(r.res.Recommendations)).
		Strs("stages", r.res.Stages).
		Msg("recommendation finished")
	return r.res, nil
}

func (s *RecommendationService) newRun(req RecommendRequest, members []string) *run {
	d := s.Defaults
	r := &run{
		s:        s,
		req:      req,
		members:  members,
		days:     d.DaysAhead,
		useCal:   d.UseCalendar,
		learn:    true,
		limit:    d.MaxResults,
		region:   d.Region,
		profiles: map[string]*taste.Model{},
		metas:    map[taste.Key]*domain.MovieMetadata{},
	}
	if req.DaysAhead > 0 {
		r.days = req.DaysAhead
	}
	if r.days <= 0 {
		r.days = 7
	}
	if req.UseCalendar != nil {
		r.useCal = *req.UseCalendar
	}
	if req.LearnFromHistory != nil {
		r.learn = *req.LearnFromHistory
	}
	if req.MaxResults > 0 {
		r.limit = req.MaxResults
	}
	if req.Region != "" {
		r.region = req.Region
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	r.now = now()
	r.res = &RecommendResult{
		GroupID:         domain.GroupID(members),
		CalendarMode:    CalendarUnfiltered,
		Recommendations: []*domain.GroupMatchedMovie{},
	}
	return r
}

// stage runs fn under its own span and records it as visited. fn returns
// false to end the pipeline early with the current result.
func (r *run) stage(ctx context.Context, name string, fn func(context.Context) bool) bool {
	r.res.Stages = append(r.res.Stages, name)
	ctx, span := otel.Tracer(recTracer).Start(ctx, name)
	start := time.Now()
	cont := fn(ctx)
	observability.ObserveStage(name, time.Since(start))
	span.End()
	return cont
}

func (r *run) loc() *time.Location {
	if r.s.Location != nil {
		return r.s.Location
	}
	return time.Local
}

func (r *run) limitN() int {
	if r.s.Concurrency > 0 {
		return r.s.Concurrency
	}
	return 4
}

func (r *run) failed(ctx context.Context, collaborator string, err error, msg string) {
	observability.CollaboratorFailed(collaborator)
	ctxLogger(ctx).Warn().Err(err).Str("collaborator", collaborator).Msg(msg)
}

// ----------------------------------------------------------------------------
// Stages

func (r *run) resolveHistory(ctx context.Context) bool {
	gid := r.res.GroupID
	if r.s.DB == nil {
		r.res.History = domain.NewGroupHistory(gid)
		return true
	}
	h, err := repo.LoadHistory(ctx, r.s.DB, gid)
	if err != nil {
		ctxLogger(ctx).Warn().Err(err).Str("group_id", gid).Msg("group history unreadable, starting fresh")
		h = domain.NewGroupHistory(gid)
	}
	r.res.History = h
	return true
}

func (r *run) buildProfiles(ctx context.Context) bool {
	ratings := make([][]domain.RatedMovie, len(r.members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limitN())
	for i, m := range r.members {
		g.Go(func() error {
			rs, err := r.s.Ratings.Ratings(gctx, m)
			if err != nil {
				r.failed(gctx, "ratings", err, "ratings unavailable for "+m)
				return nil
			}
			ratings[i] = rs
			return nil
		})
	}
	_ = g.Wait()

	var keys []lookupKey
	for _, rs := range ratings {
		for _, rm := range rs {
			if rm.Rating != nil {
				keys = append(keys, lookupKey{title: rm.Title, year: rm.Year})
			}
		}
	}
	r.lookupAll(ctx, keys)

	// Members without ratings still get a profile that answers with the
	// neutral mean, so they keep weighing on the group minimum and spread.
	rated := 0
	for i, m := range r.members {
		if len(ratings[i]) > 0 {
			rated++
		}
		r.profiles[m] = taste.Build(m, ratings[i], r.metas, r.s.Forest)
	}
	ctxLogger(ctx).Debug().Int("profiles", len(r.profiles)).Int("rated", rated).Msg("taste profiles built")
	return rated > 0
}

func (r *run) computeAvailability(ctx context.Context) bool {
	if !r.useCal || r.s.Availability == nil {
		return true
	}
	slots, err := r.s.Availability.FreeSlots(ctx, r.members, r.days, r.s.Defaults.MinSlot)
	if err != nil {
		r.failed(ctx, "availability", err, "availability unavailable, falling back to no calendar filtering")
		return true
	}
	r.slots = slots
	r.res.CalendarMode = CalendarFiltered
	return true
}

func (r *run) fetchCandidates(ctx context.Context) bool {
	cands, err := r.s.Showtimes.Candidates(ctx, r.days, r.region)
	if err != nil {
		r.failed(ctx, "showtimes", err, "showtimes unavailable")
		return false
	}
	r.cands = cands
	observability.ObserveCandidates("fetched", len(cands))

	keys := make([]lookupKey, 0, len(cands))
	for _, c := range cands {
		keys = append(keys, lookupKey{title: c.Title, year: c.Year})
	}
	r.lookupAll(ctx, keys)
	return len(cands) > 0
}

func (r *run) filterFeasible(ctx context.Context) bool {
	loc := r.loc()
	end := r.now.AddDate(0, 0, r.days)
	for _, c := range r.cands {
		if c.Title == "" {
			continue
		}
		meta := r.metas[taste.KeyOf(c.Title, c.Year)]
		var sched map[string][]time.Time
		if r.res.CalendarMode == CalendarFiltered {
			sched = availability.FilterSchedules(c, c.Duration(meta), r.slots, r.s.Feasibility, loc)
		} else {
			sched = availability.WithinWindow(c, r.now, end, loc)
		}
		shows := availability.Flatten(sched)
		if len(shows) == 0 {
			continue
		}
		r.movies = append(r.movies, &domain.GroupMatchedMovie{
			Title:     c.Title,
			Year:      c.Year,
			Showtimes: shows,
			Metadata:  meta,
		})
	}
	observability.ObserveCandidates("feasible", len(r.movies))
	ctxLogger(ctx).Debug().Int("feasible", len(r.movies)).Int("fetched", len(r.cands)).Msg("feasibility filter applied")
	return len(r.movies) > 0
}

func (r *run) scorePerUser(ctx context.Context) bool {
	lg := ctxLogger(ctx)
	for _, m := range r.movies {
		m.PerUserScores = make(map[string]float64, len(r.profiles))
		for user, model := range r.profiles {
			score, src := model.PredictWithSource(m.Title, m.Year, m.Metadata)
			m.PerUserScores[user] = score
			lg.Debug().Str("user", user).Str("title", m.Title).Str("source", string(src)).Float64("score", score).Msg("predicted")
		}
	}
	return true
}

func (r *run) aggregate(context.Context) bool {
	for _, m := range r.movies {
		m.GroupScore = r.s.Weights.Raw(m.PerUserScores)
	}
	return true
}

func (r *run) applyMood(context.Context) bool {
	r.movies = r.s.Mood.Apply(r.movies, r.req.Mood, r.req.AggressiveMood)
	return len(r.movies) > 0
}

func (r *run) skipMood() bool { return r.req.Mood == "" || r.s.Mood == nil }

// skipHistory holds until the group has at least one recorded session.
func (r *run) skipHistory() bool {
	h := r.res.History
	return !r.learn || r.s.Learner == nil || h == nil || h.Preferences.SessionCount < 1
}

func (r *run) applyHistory(context.Context) bool {
	r.s.Learner.Apply(r.res.History, r.movies, r.members)
	return true
}

func (r *run) normalize(context.Context) bool {
	r.s.Normalizer.Normalize(r.movies)
	return true
}

func (r *run) rank(context.Context) bool {
	r.res.Recommendations = scoring.Rank(r.movies, r.limit)
	observability.ObserveCandidates("ranked", len(r.res.Recommendations))
	return true
}

// ----------------------------------------------------------------------------
// Metadata fan-out

type lookupKey struct {
	title string
	year  *int
}

// lookupAll fetches metadata for every key not yet known. Failures leave the
// key without metadata.
func (r *run) lookupAll(ctx context.Context, keys []lookupKey) {
	var todo []lookupKey
	var todoKeys []taste.Key
	seen := map[taste.Key]bool{}
	for _, k := range keys {
		tk := taste.KeyOf(k.title, k.year)
		if _, known := r.metas[tk]; known || seen[tk] || tk.Title == "" {
			continue
		}
		seen[tk] = true
		todo = append(todo, k)
		todoKeys = append(todoKeys, tk)
	}
	if len(todo) == 0 {
		return
	}

	found := make([]*domain.MovieMetadata, len(todo))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limitN())
	for i, k := range todo {
		g.Go(func() error {
			meta, err := r.s.Metadata.Lookup(gctx, k.title, k.year)
			if err != nil {
				r.failed(gctx, "metadata", err, "metadata unavailable for "+k.title)
				return nil
			}
			found[i] = meta
			return nil
		})
	}
	_ = g.Wait()
	for i, tk := range todoKeys {
		r.metas[tk] = found[i]
	}
}
