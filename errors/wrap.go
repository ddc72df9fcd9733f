package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context while preserving the error chain.
// If err is nil, Wrap returns nil.
// If err is already a ShutdownError, the wrapper keeps its code and participant.
// Otherwise the wrapper is a PARTICIPANT_FAILED error.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		wrapped := &Error{
			code:        se.code,
			category:    se.category,
			message:     message,
			cause:       err,
			metadata:    se.Metadata(),
			participant: se.participant,
			timestamp:   se.timestamp,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	return New(ErrCodeParticipantFailed, message, append(opts, WithCause(err))...)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific error code.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	opts = append(opts, WithCause(err))
	return New(code, message, opts...)
}

// AsShutdownError extracts a ShutdownError from an error chain.
// Returns nil if none is found.
func AsShutdownError(err error) ShutdownError {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return nil
}

// Is checks if the first ShutdownError in the chain has the given code.
func Is(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.code == code
	}
	return false
}

// IsFatal checks if the error ends an episode.
func IsFatal(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.category.IsFatal()
	}
	return false
}

// Code extracts the error code from an error, if available.
// Returns empty string if err is not a ShutdownError.
func Code(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.code
	}
	return ""
}

// Participant extracts the participant name from an error, if available.
func Participant(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.participant
	}
	return ""
}
