// Package handlers defines the HTTP-layer error codes used across all API
// endpoints. Every error response carries one of these codes next to a
// human-readable message, so clients can branch without parsing text.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "invalid_vin",
//	  "message": "vin must be a 17 character Alfa Romeo VIN"
//	}
package handlers

const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeNotFound           = "not_found"
	ErrCodeInternal           = "internal_error"
	ErrCodeMethodNotAllowed   = "method_not_allowed"
	ErrCodeServiceUnavailable = "service_unavailable"

	// Domain-specific:
	ErrCodeInvalidVIN       = "invalid_vin"
	ErrCodeInvalidUserID    = "invalid_user_id"
	ErrCodeCacheUnavailable = "cache_unavailable"
	ErrCodeListFailed       = "list_failed"
	ErrCodeListUnsupported  = "list_unsupported"
)
