// Package errors defines the error taxonomy crossing component boundaries.
//
// ErrNotFound intentionally covers both "entity absent" and "caller lacks
// visibility into it", so non-members cannot probe for existence.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = fmt.Errorf("not found")
	ErrForbidden   = fmt.Errorf("forbidden")
	ErrBadRequest  = fmt.Errorf("bad request")
	ErrAuthFailure = fmt.Errorf("authentication failed")
)

// NotFound wraps ErrNotFound with a caller-safe message.
func NotFound(msg string) error { return fmt.Errorf("%w: %s", ErrNotFound, msg) }

// Forbidden wraps ErrForbidden with a caller-safe message.
func Forbidden(msg string) error { return fmt.Errorf("%w: %s", ErrForbidden, msg) }

// BadRequest wraps ErrBadRequest with a caller-safe message.
func BadRequest(msg string) error { return fmt.Errorf("%w: %s", ErrBadRequest, msg) }

// ClientMessage converts any error into the message emitted on a socket-error
// event. Taxonomy errors pass through as-is; anything else is masked so
// internal detail (keys, storage errors) never reaches a client.
func ClientMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrAuthFailure):
		return err.Error()
	default:
		return "internal error"
	}
}
