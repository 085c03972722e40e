// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and mirror HTTP status semantics, except
// storage_unavailable, which tells clients the status-check store could not be
// reached and the request may be retried later. Clients branch on these codes;
// messages are for display only.
package handlers

const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeNotFound           = "not_found"
	ErrCodeMethodNotAllowed   = "method_not_allowed"
	ErrCodeRateLimited        = "too_many_requests"
	ErrCodeInternal           = "internal_error"
	ErrCodeStorageUnavailable = "storage_unavailable"
)
