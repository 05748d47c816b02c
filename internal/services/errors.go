// Package services defines the business logic for quotes and listeners.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrAlreadyExists is returned when a submission's fingerprint matches a
	// record that is already stored.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotFound is returned when no matching record exists (for example a
	// random quote requested from an empty store).
	ErrNotFound = errors.New("not found")

	// ErrInvalidFormat is returned when a listener contact value does not
	// match the accepted pattern.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrEmptyText is returned when a quote submission has no text after
	// normalization.
	ErrEmptyText = errors.New("quote text is empty")

	// ErrEmptyAuthor is returned when a quote submission has no author name.
	ErrEmptyAuthor = errors.New("author name is empty")

	// ErrInvalidPage is returned when page < 1 or page size is outside
	// [1, MaxPageSize].
	ErrInvalidPage = errors.New("invalid page or page size")
)
