package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping. Every failure the core can
// report falls into exactly one of these.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidArgument
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindInvalidTransition
	KindConflict
)

// Error carries a kind and a caller-facing message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func E(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Ef(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func InvalidArgument(message string) error   { return E(KindInvalidArgument, message) }
func Unauthorized(message string) error      { return E(KindUnauthorized, message) }
func Forbidden(message string) error         { return E(KindForbidden, message) }
func NotFound(message string) error          { return E(KindNotFound, message) }
func InvalidTransition(message string) error { return E(KindInvalidTransition, message) }
func Conflict(message string) error          { return E(KindConflict, message) }

// KindOf returns the kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HTTPStatus maps a kind to its response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidArgument:
		return 400
	case KindUnauthorized:
		return 401
	case KindForbidden:
		return 403
	case KindNotFound:
		return 404
	case KindConflict:
		return 409
	case KindInvalidTransition:
		return 422
	default:
		return 500
	}
}
