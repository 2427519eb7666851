package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-movie-matcher/internal/domain"
	"github.com/tbourn/go-movie-matcher/internal/http/middleware"
	"github.com/tbourn/go-movie-matcher/internal/services"
)

// HeaderIdempotencyReplayed is set on a 200 response that returns a choice
// recorded by an earlier request with the same Idempotency-Key.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// RecordChoiceRequest is the JSON payload of POST /groups/choices.
type RecordChoiceRequest struct {
	Members []string                    `json:"members" binding:"required,min=1" example:"alice,bob"`
	Options []*domain.GroupMatchedMovie `json:"options"`
	Chosen  *domain.GroupMatchedMovie   `json:"chosen" binding:"required"`
}

// ChoiceResponse is a stored choice.
type ChoiceResponse struct {
	ID      string `json:"id" example:"8d6c1f0e-1f5e-4d0c-9b8f-0b0c4c3b2a1d"`
	GroupID string `json:"group_id" example:"alice_bob"`
	Seq     int    `json:"seq" example:"3"`
	domain.ChoiceRecord
}

// HistoryResponse is a page of a group's choices plus its preferences.
type HistoryResponse struct {
	GroupID     string             `json:"group_id"`
	Choices     []ChoiceResponse   `json:"choices"`
	Preferences domain.Preferences `json:"preferences"`
	Pagination  Pagination         `json:"pagination"`
}

func toChoiceResponse(row *domain.ChoiceRow) ChoiceResponse {
	return ChoiceResponse{ID: row.ID, GroupID: row.GroupID, Seq: row.Seq, ChoiceRecord: row.Record}
}

// RecordChoice godoc
// @ID          recordChoice
// @Summary     Record the movie a group picked
// @Description Stores the choice and updates the group's learned preferences. With an Idempotency-Key, a retried request returns the stored choice with 200.
// @Tags        Groups
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false  "Deduplicates retries for 24h"  example(7d1f3a2e-choice)
// @Param       body             body    handlers.RecordChoiceRequest  true  "Choice"
//
// @Success     201  {object}  handlers.ChoiceResponse
// @Success     200  {object}  handlers.ChoiceResponse  "Replayed"
// @Header      200  {string}  Idempotency-Replayed  "true"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Conflict"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /groups/choices [post]
func (h *Handlers) RecordChoice(c *gin.Context) {
	var req RecordChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	row, replay, err := h.choiceSvc.Record(c.Request.Context(), services.ChoiceInput{
		Members: req.Members,
		Options: req.Options,
		Chosen:  req.Chosen,
	}, key)
	if err != nil {
		serviceError(c, err, ErrCodeRecordFailed)
		return
	}
	if replay {
		c.Header(HeaderIdempotencyReplayed, "true")
		ok(c, http.StatusOK, toChoiceResponse(row))
		return
	}
	ok(c, http.StatusCreated, toChoiceResponse(row))
}

// GroupHistory godoc
// @ID          groupHistory
// @Summary     List a group's choices (paginated)
// @Tags        Groups
// @Produce     json
//
// @Param       group      path   string  true   "Group id (sorted lowercase members joined by _)"  example(alice_bob)
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.HistoryResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /groups/{group}/history [get]
func (h *Handlers) GroupHistory(c *gin.Context) {
	groupID := strings.TrimSpace(c.Param("group"))
	if groupID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "group id required")
		return
	}
	page, pageSize := clampPagination(c)

	rows, total, prefs, err := h.choiceSvc.History(c.Request.Context(), groupID, page, pageSize)
	if err != nil {
		serviceError(c, err, ErrCodeListFailed)
		return
	}
	out := HistoryResponse{
		GroupID:     strings.ToLower(groupID),
		Choices:     make([]ChoiceResponse, 0, len(rows)),
		Preferences: prefs,
		Pagination:  newPagination(page, pageSize, total),
	}
	for i := range rows {
		out.Choices = append(out.Choices, toChoiceResponse(&rows[i]))
	}
	ok(c, http.StatusOK, out)
}

// GroupSummary godoc
// @ID          groupSummary
// @Summary     Summarize what a group has learned
// @Tags        Groups
// @Produce     json
// @Param       group  path  string  true  "Group id"  example(alice_bob)
// @Success     200  {object}  history.Summary
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /groups/{group}/summary [get]
func (h *Handlers) GroupSummary(c *gin.Context) {
	groupID := strings.TrimSpace(c.Param("group"))
	if groupID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "group id required")
		return
	}
	sum, err := h.choiceSvc.Summary(c.Request.Context(), groupID)
	if err != nil {
		serviceError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, sum)
}
