package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-movie-matcher/internal/domain"
	"github.com/tbourn/go-movie-matcher/internal/history"
	"github.com/tbourn/go-movie-matcher/internal/services"
)

// RecommendRequest is the JSON payload of POST /recommendations.
type RecommendRequest struct {
	// Letterboxd usernames of the group.
	Members []string `json:"members" binding:"required,min=1,max=20" example:"alice,bob"`
	// Mood name or alias, e.g. "happy" or "spooky".
	Mood string `json:"mood" example:"happy"`
	// Drop movies that barely match the mood.
	AggressiveMood bool `json:"aggressive_mood"`
	// Lookahead in days; 0 uses the server default.
	DaysAhead int `json:"days_ahead" binding:"min=0,max=30" example:"7"`
	// Intersect member calendars; nil uses the server default.
	UseCalendar *bool `json:"use_calendar"`
	// Result cap; 0 uses the server default.
	MaxResults int `json:"max_results" binding:"min=0,max=100" example:"10"`
	// City filter for showtimes.
	Region string `json:"region" example:"Amsterdam"`
	// Apply the group's learned preferences; nil means true.
	LearnFromHistory *bool `json:"learn_from_history"`
}

// Recommendation is one ranked movie with display helpers.
type Recommendation struct {
	*domain.GroupMatchedMovie
	GenreNames      []string `json:"genre_names,omitempty"`
	MoodExplanation string   `json:"mood_explanation,omitempty"`
}

// RecommendResponse is the result of POST /recommendations.
type RecommendResponse struct {
	GroupID         string           `json:"group_id" example:"alice_bob"`
	CalendarMode    string           `json:"calendar_mode" example:"filtered"`
	Recommendations []Recommendation `json:"recommendations"`
	GroupHistory    *history.Summary `json:"group_history,omitempty"`
}

// MoodInfo describes one supported mood.
type MoodInfo struct {
	Name            string   `json:"name" example:"happy"`
	Description     string   `json:"description" example:"Uplifting, fun, and feel-good"`
	PrimaryGenres   []string `json:"primary_genres"`
	SecondaryGenres []string `json:"secondary_genres"`
}

// MoodsResponse lists the mood catalog.
type MoodsResponse struct {
	Moods []MoodInfo `json:"moods"`
}

// Recommend godoc
// @ID          recommend
// @Summary     Recommend movies for a group
// @Description Builds taste profiles of every member, intersects their free time and ranks the movies playing nearby.
// @Tags        Recommendations
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RecommendRequest  true  "Group and options"
//
// @Success     200  {object}  handlers.RecommendResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Failure     504  {object}  handlers.ErrorResponse  "Timed out"
// @Router      /recommendations [post]
func (h *Handlers) Recommend(c *gin.Context) {
	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	res, err := h.recSvc.Recommend(c.Request.Context(), services.RecommendRequest{
		Members:          req.Members,
		Mood:             req.Mood,
		AggressiveMood:   req.AggressiveMood,
		DaysAhead:        req.DaysAhead,
		UseCalendar:      req.UseCalendar,
		MaxResults:       req.MaxResults,
		Region:           req.Region,
		LearnFromHistory: req.LearnFromHistory,
	})
	if err != nil {
		serviceError(c, err, ErrCodeRecommendFailed)
		return
	}

	resp := RecommendResponse{
		GroupID:         res.GroupID,
		CalendarMode:    res.CalendarMode,
		Recommendations: make([]Recommendation, 0, len(res.Recommendations)),
	}
	for _, m := range res.Recommendations {
		resp.Recommendations = append(resp.Recommendations, Recommendation{
			GroupMatchedMovie: m,
			GenreNames:        genreNames(m.Genres()),
			MoodExplanation:   h.moods.Explain(m.MoodMatch),
		})
	}
	if res.History != nil {
		sum := history.Summarize(res.History)
		resp.GroupHistory = &sum
	}
	ok(c, http.StatusOK, resp)
}

// ListMoods godoc
// @ID          listMoods
// @Summary     List supported moods
// @Tags        Recommendations
// @Produce     json
// @Success     200  {object}  handlers.MoodsResponse
// @Router      /moods [get]
func (h *Handlers) ListMoods(c *gin.Context) {
	profiles := h.moods.Catalog.Available()
	out := MoodsResponse{Moods: make([]MoodInfo, 0, len(profiles))}
	for _, p := range profiles {
		out.Moods = append(out.Moods, MoodInfo{
			Name:            p.Name,
			Description:     p.Description,
			PrimaryGenres:   genreNames(p.Primary),
			SecondaryGenres: genreNames(p.Secondary),
		})
	}
	ok(c, http.StatusOK, out)
}

func genreNames(ids []int) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = domain.GenreName(id)
	}
	return out
}
