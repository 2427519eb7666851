package handlers

// Error codes returned in ErrorResponse.Code. Clients branch on these, so
// they are stable and snake_case.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeTimeout          = "timeout"

	// Domain-specific:
	ErrCodeInvalidChoice   = "invalid_choice"
	ErrCodeRecommendFailed = "recommend_failed"
	ErrCodeRecordFailed    = "record_failed"
	ErrCodeListFailed      = "list_failed"
)
