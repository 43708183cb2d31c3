// Package handlers provides HTTP handler implementations for the webhook
// intake and the admin API.
//
// This file defines the response helpers shared by every endpoint. Errors
// always use ErrorResponse with a stable code; fail logs 5xx responses with
// the request-scoped logger.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-vin-sticker-bot/internal/http/middleware"
	"github.com/tbourn/go-vin-sticker-bot/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"result not found"`
}

// fail aborts the request with an ErrorResponse. Server errors (>= 500) are
// logged with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	failErr(c, status, code, msg, nil)
}

// failErr is fail with the underlying cause attached to the log line only;
// clients never see it.
func failErr(c *gin.Context, status int, code, msg string, cause error) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Err(cause).
			Int("status", status).
			Str("code", code).
			Msg(msg)
	}
	rid := middleware.RequestIDFrom(c)
	if rid == "" {
		rid = c.Writer.Header().Get("X-Request-ID")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{RequestID: rid, Code: code, Message: msg})
}

// Fail is the exported variant of fail for router-level fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failFor maps a service error onto its HTTP status and code.
func failFor(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidVIN):
		fail(c, http.StatusBadRequest, ErrCodeInvalidVIN, "vin must be a 17 character Alfa Romeo VIN")
	case errors.Is(err, services.ErrInvalidUserID):
		fail(c, http.StatusBadRequest, ErrCodeInvalidUserID, "user id must be a positive integer")
	case errors.Is(err, services.ErrResultNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "result not found")
	case errors.Is(err, services.ErrListUnsupported):
		fail(c, http.StatusNotImplemented, ErrCodeListUnsupported, services.ErrListUnsupported.Error())
	case errors.Is(err, services.ErrCacheUnavailable):
		failErr(c, http.StatusServiceUnavailable, ErrCodeCacheUnavailable, "result cache unavailable, retry later", err)
	default:
		failErr(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error", err)
	}
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
