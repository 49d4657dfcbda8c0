package errors

import (
	"errors"
)

// Error kinds surfaced by moderation operations.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrTargetNotFound      = errors.New("target not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflictingState    = errors.New("conflicting state")
	ErrPlatformTransient   = errors.New("platform transient error")
	ErrPlatformRateLimited = errors.New("platform rate limited")
	ErrPlatformPermanent   = errors.New("platform permanent error")
)

// Error pairs a kind with a short reason that is safe to show to a chat user.
type Error struct {
	Kind   error
	Reason string
	Err    error
}

func New(kind error, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

func Wrap(kind error, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ReasonOf returns the user-facing reason carried by err, or an empty string.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// KindOf returns the taxonomy kind of err, or nil for errors outside of it.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrUnauthorized,
		ErrTargetNotFound,
		ErrInvalidInput,
		ErrConflictingState,
		ErrPlatformRateLimited,
		ErrPlatformPermanent,
		ErrPlatformTransient,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
