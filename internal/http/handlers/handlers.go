package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-movie-matcher/internal/domain"
	"github.com/tbourn/go-movie-matcher/internal/history"
	"github.com/tbourn/go-movie-matcher/internal/mood"
	"github.com/tbourn/go-movie-matcher/internal/services"
	"github.com/tbourn/go-movie-matcher/internal/utils"
)

//
// Service contracts (context-aware)
//

// Recommender runs the recommendation pipeline for a group.
type Recommender interface {
	Recommend(ctx context.Context, req services.RecommendRequest) (*services.RecommendResult, error)
}

// ChoiceRecorder persists group choices and reads the learned history back.
type ChoiceRecorder interface {
	// Record stores a choice. replay is true when idemKey matched an
	// earlier choice of the same group and nothing new was written.
	Record(ctx context.Context, in services.ChoiceInput, idemKey string) (row *domain.ChoiceRow, replay bool, err error)
	// History returns a page of choices, the total and the preferences.
	History(ctx context.Context, groupID string, page, pageSize int) ([]domain.ChoiceRow, int64, domain.Preferences, error)
	// Summary digests the group's history.
	Summary(ctx context.Context, groupID string) (history.Summary, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints of the API.
type Handlers struct {
	recSvc    Recommender
	choiceSvc ChoiceRecorder
	moods     *mood.Adjuster
}

// New binds the handlers to their services. A nil adjuster falls back to the
// built-in mood catalog.
func New(recSvc Recommender, choiceSvc ChoiceRecorder, moods *mood.Adjuster) *Handlers {
	if moods == nil {
		moods = mood.NewAdjuster()
	}
	return &Handlers{recSvc: recSvc, choiceSvc: choiceSvc, moods: moods}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses page and page_size, defaulting to 1 and 20 and
// capping page_size at 100.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.BoundedInt(c.Query("page"), defaultPage, 1, 0)
	pageSize = utils.BoundedInt(c.Query("page_size"), defaultPageSize, 1, maxPageSize)
	return
}

// serviceError maps a service error onto the error envelope. Caller
// mistakes become 4xx, an expired request budget 504, anything else a 500
// with fallbackCode.
func serviceError(c *gin.Context, err error, fallbackCode string) {
	switch {
	case errors.Is(err, services.ErrNoMembers), errors.Is(err, services.ErrEmptyChoice):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidChoice):
		fail(c, http.StatusBadRequest, ErrCodeInvalidChoice, err.Error())
	case errors.Is(err, services.ErrChoiceNotFound):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusGatewayTimeout, ErrCodeTimeout, "request timed out")
	default:
		fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}
