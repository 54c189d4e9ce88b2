package handlers

// Error codes returned in ErrorResponse.Code.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"

	ErrCodeInvalidSettings = "invalid_settings"
	ErrCodeUpdateFailed    = "update_failed"
	ErrCodeListFailed      = "list_failed"
)
