// Package services defines the business logic of the VIN sticker bot.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrResultNotFound indicates that no cached result exists for the VIN.
	ErrResultNotFound = errors.New("result not found")

	// ErrInvalidVIN is returned when a VIN does not match the accepted
	// pattern.
	ErrInvalidVIN = errors.New("invalid vin")

	// ErrInvalidUserID is returned for a non-positive user identifier.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrCacheUnavailable wraps result store failures so handlers can answer
	// with a retryable status.
	ErrCacheUnavailable = errors.New("result cache unavailable")

	// ErrListUnsupported is returned by listing when results live in a store
	// that cannot be enumerated (Redis).
	ErrListUnsupported = errors.New("result listing not supported by this backend")

	// ErrBadCallback is returned for callback data the bot did not produce.
	ErrBadCallback = errors.New("unrecognised callback data")
)
