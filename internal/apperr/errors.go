// Package apperr defines the error kinds shared by repositories, services and
// handlers. Each kind maps to exactly one HTTP status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation          Kind = "validation_error"
	KindUnknownBooking      Kind = "unknown_booking"
	KindDuplicateIdentifier Kind = "duplicate_identifier"
	KindInvalidTransition   Kind = "invalid_transition"
	KindNotFound            Kind = "not_found"
	KindUnauthorized        Kind = "unauthorized"
	KindForbidden           Kind = "forbidden"
	KindStorageUnavailable  Kind = "storage_unavailable"
	KindTransitionFailed    Kind = "transition_failed"
)

var statusByKind = map[Kind]int{
	KindValidation:          http.StatusBadRequest,
	KindUnknownBooking:      http.StatusBadRequest,
	KindDuplicateIdentifier: http.StatusConflict,
	KindInvalidTransition:   http.StatusConflict,
	KindNotFound:            http.StatusNotFound,
	KindUnauthorized:        http.StatusUnauthorized,
	KindForbidden:           http.StatusForbidden,
	KindStorageUnavailable:  http.StatusInternalServerError,
	KindTransitionFailed:    http.StatusInternalServerError,
}

// Error carries a kind, a message safe to show to callers, and the
// underlying cause (if any).
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind so that errors.Is(err, ErrDuplicateIdentifier)
// works for any duplicate regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrValidation          = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrUnknownBooking      = &Error{Kind: KindUnknownBooking, Message: "unknown booking"}
	ErrDuplicateIdentifier = &Error{Kind: KindDuplicateIdentifier, Message: "duplicate identifier"}
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition, Message: "invalid transition"}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "not found"}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrForbidden           = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrStorageUnavailable  = &Error{Kind: KindStorageUnavailable, Message: "storage unavailable"}
	ErrTransitionFailed    = &Error{Kind: KindTransitionFailed, Message: "transition failed"}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(format string, args ...any) *Error {
	return Newf(KindValidation, format, args...)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// KindOf returns the kind of the first *Error in the chain, or
// KindStorageUnavailable for anything untyped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorageUnavailable
}

// HTTPStatus returns the status code for err.
func HTTPStatus(err error) int {
	if status, ok := statusByKind[KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Message returns the caller-facing message of err without the wrapped cause.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}
