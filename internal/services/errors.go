// Package services defines the business logic for the live message log and
// the duplicate-message filter. This file centralizes service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrEmptyContent is returned when a message or preview request carries
	// no text after trimming.
	ErrEmptyContent = errors.New("content is empty")

	// ErrContentTooLong is returned when content exceeds the configured
	// maximum length.
	ErrContentTooLong = errors.New("content too long")

	// ErrInvalidRoom is returned when a room identifier is missing.
	ErrInvalidRoom = errors.New("room id is required")

	// ErrInvalidAuthorKind is returned when an explicit author kind is not
	// one of human, automated or system.
	ErrInvalidAuthorKind = errors.New("author kind must be human, automated or system")

	// ErrMessageNotFound indicates that the requested message does not exist
	// in the live log (never written, or already removed).
	ErrMessageNotFound = errors.New("message not found")

	// ErrRejectNotApplied is returned when a duplicate was audited but the
	// message could not be removed from the log. Redelivery of the same
	// event retries only the removal.
	ErrRejectNotApplied = errors.New("duplicate audited but message not deleted")
)
