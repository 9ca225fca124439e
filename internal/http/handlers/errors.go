// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case strings returned in ErrorResponse.Code next
// to the HTTP status. Generic codes mirror HTTP semantics; domain codes cover
// failures that the status alone does not describe. Clients branch on these
// codes, so existing values must not change.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "content_too_long",
//	  "message": "content too long: max 4000 runes"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeContentTooLong = "content_too_long"
	ErrCodeInvalidAuthor  = "invalid_author_kind"
	ErrCodeCreateFailed   = "create_failed"
	ErrCodeListFailed     = "list_failed"
	ErrCodeClassifyFailed = "classify_failed"
	ErrCodeRejectPartial  = "reject_not_applied"
)
