// Package apperr holds the single error type the client surfaces to callers.
// Every failure carries a message that can be shown to the user as-is; the
// transport or server cause is kept for logging only.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// InvalidCredentialsMessage is shown when login is rejected with 401.
const InvalidCredentialsMessage = "Invalid email or password"

// ErrInvalidCredentials is returned by login on HTTP 401.
var ErrInvalidCredentials = &Error{Message: InvalidCredentialsMessage}

// Error carries a display message. Detail is set when the message came
// from the server rather than a fallback.
type Error struct {
	Message string
	Detail  bool
	Cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Cause }

// Is matches errors with the same display message so callers can compare
// against ErrInvalidCredentials.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == e.Message
}

// New creates a display error.
func New(message string) error {
	return &Error{Message: message}
}

// Wrap creates a display error keeping cause for logs.
func Wrap(message string, cause error) error {
	return &Error{Message: message, Cause: cause}
}

// Message extracts the display message from err, or fallback when err is
// not an *Error.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

// StatusError is the cause attached to server failures.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
}

// StatusCode returns the HTTP status behind err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// ErrorBody is the backend's error envelope. Detail is either a string or a
// list of validation items.
type ErrorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type validationItem struct {
	Msg string `json:"msg"`
}

// DetailMessage returns the human readable detail, or "" when absent.
func (b *ErrorBody) DetailMessage() string {
	if b == nil || len(b.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(b.Detail, &s); err == nil {
		return s
	}
	var items []validationItem
	if err := json.Unmarshal(b.Detail, &items); err == nil {
		for _, it := range items {
			if it.Msg != "" {
				return it.Msg
			}
		}
	}
	return ""
}

// FromResponse classifies a failed response: the server detail when present,
// otherwise fallback.
func FromResponse(op string, status int, body *ErrorBody, raw string, fallback string) error {
	cause := &StatusError{Op: op, StatusCode: status, Body: raw}
	if detail := body.DetailMessage(); detail != "" {
		return &Error{Message: detail, Detail: true, Cause: cause}
	}
	return &Error{Message: fallback, Cause: cause}
}

// FromTransport wraps a network-level failure.
func FromTransport(op string, err error, fallback string) error {
	return &Error{Message: fallback, Cause: fmt.Errorf("%s network error: %w", op, err)}
}

// WithFallback keeps a server-provided message and replaces any other
// message with fallback.
func WithFallback(err error, fallback string) error {
	var e *Error
	if errors.As(err, &e) && e.Detail {
		return err
	}
	return &Error{Message: fallback, Cause: err}
}

// IsUnauthorized reports whether err was caused by HTTP 401.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}
