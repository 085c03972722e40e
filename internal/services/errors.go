// Package services holds the use-cases behind the HTTP API: recording and
// listing status checks, and turning contact-form submissions into operator
// notifications. This file centralizes the service-level error values so
// handlers can map them to HTTP results with errors.Is.
package services

import "errors"

var (
	// ErrInvalidSubmission is returned when a contact submission has a blank
	// field or a malformed email address.
	ErrInvalidSubmission = errors.New("invalid contact submission")

	// ErrStorageUnavailable wraps any failure of the status-check store.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
