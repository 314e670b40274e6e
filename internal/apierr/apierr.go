// Package apierr implements the closed error taxonomy shared by every service: a tagged variant carrying an HTTP
// status and message, plus variant-specific fields.
package apierr

import (
	"errors"
	"net/http"
)

// Kind identifies one of the closed set of error variants.
type Kind string

const (
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindMisdirected  Kind = "MISDIRECTED"
	KindValidation   Kind = "VALIDATION"
	KindRateLimited  Kind = "RATE_LIMITED"
	KindServer       Kind = "SERVER"
)

var statusForKind = map[Kind]int{
	KindUnauthorized: http.StatusUnauthorized,
	KindForbidden:    http.StatusForbidden,
	KindNotFound:     http.StatusNotFound,
	KindConflict:     http.StatusConflict,
	KindMisdirected:  421,
	KindValidation:   http.StatusUnprocessableEntity,
	KindRateLimited:  http.StatusTooManyRequests,
	KindServer:       http.StatusInternalServerError,
}

// Error is the single error type used across every domain package for caller-visible failures.
type Error struct {
	Kind    Kind
	Message string

	// Item is set on CONFLICT: the duplicate field ("username" or "email").
	Item string
	// Info is set on MISDIRECTED, VALIDATION, and SERVER: extra detail.
	Info string
	// ValueName is set on VALIDATION: which input field failed.
	ValueName string
	// RetryAfterMS is set on RATE_LIMITED.
	RetryAfterMS int64
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

// Status returns the HTTP status code for this error's Kind.
func (e *Error) Status() int {
	if s, ok := statusForKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(item string) *Error {
	return &Error{Kind: KindConflict, Message: "a resource with this " + item + " already exists", Item: item}
}

func Misdirected(info string) *Error {
	return &Error{Kind: KindMisdirected, Message: "instance is not configured for this operation", Info: info}
}

func Validation(valueName, info string) *Error {
	return &Error{Kind: KindValidation, Message: info, ValueName: valueName, Info: info}
}

func RateLimited(retryAfterMS int64) *Error {
	return &Error{Kind: KindRateLimited, Message: "too many requests", RetryAfterMS: retryAfterMS}
}

// Server wraps an unexpected internal fault. Callers should pass a generic public message; the detailed cause should
// be logged separately rather than placed in Info, which is still exposed to clients.
func Server(info string) *Error {
	return &Error{Kind: KindServer, Message: "an internal error occurred", Info: info}
}

// As extracts an *Error from err, following the same contract as errors.As.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
