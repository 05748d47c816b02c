package client

import (
	"errors"
	"fmt"
)

// ErrDone is returned by Cursor.NextPage once the traversal is complete.
var ErrDone = errors.New("client: traversal done")

// ErrNoContent indicates the store holds no quotes.
var ErrNoContent = errors.New("client: no content")

// StatusError is a non-success response from the store.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Code       string // error code from the store's envelope, if any
	Message    string
}

// Error implements error.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// TraversalError aborts a listener traversal at Page.
type TraversalError struct {
	Page int
	Err  error
}

// Error implements error.
func (e *TraversalError) Error() string {
	return fmt.Sprintf("listener traversal aborted at page %d: %v", e.Page, e.Err)
}

// Unwrap returns the page fetch error.
func (e *TraversalError) Unwrap() error { return e.Err }
