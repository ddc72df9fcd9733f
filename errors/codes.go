package errors

// ErrorCategory classifies errors by their effect on a shutdown episode.
type ErrorCategory string

// Error categories define how the coordinator reacts to an error.
const (
	// CategoryRecoverable errors degrade the exit status but let the episode continue.
	// Examples: a participant acknowledging with an error, a recovered panic.
	CategoryRecoverable ErrorCategory = "recoverable"

	// CategoryFatal errors end the episode immediately.
	// Examples: timeout exceeded, exit forced by a repeated signal.
	CategoryFatal ErrorCategory = "fatal"

	// CategoryConfig errors are raised before any episode starts.
	// Examples: negative timeout, unknown signal name.
	CategoryConfig ErrorCategory = "config"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsFatal returns true if errors in this category terminate the episode.
func (c ErrorCategory) IsFatal() bool {
	return c == CategoryFatal
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

// Error codes for shutdown failure scenarios.
const (
	// Recoverable
	ErrCodeParticipantFailed ErrorCode = "PARTICIPANT_FAILED" // Participant acknowledged with an error
	ErrCodePanic             ErrorCode = "PANIC"              // Recovered from a participant panic

	// Fatal
	ErrCodeTimeout  ErrorCode = "TIMEOUT"  // Episode deadline exceeded
	ErrCodeForced   ErrorCode = "FORCED"   // Repeated signal forced exit
	ErrCodeInternal ErrorCode = "INTERNAL" // Unexpected internal error

	// Config
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG" // Configuration rejected
	ErrCodeUnknownSignal ErrorCode = "UNKNOWN_SIGNAL" // Signal name not recognized
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeParticipantFailed, ErrCodePanic:
		return CategoryRecoverable
	case ErrCodeTimeout, ErrCodeForced, ErrCodeInternal:
		return CategoryFatal
	case ErrCodeInvalidConfig, ErrCodeUnknownSignal:
		return CategoryConfig
	default:
		return CategoryFatal
	}
}

// codeDescriptions provides human-readable descriptions for error codes.
var codeDescriptions = map[ErrorCode]string{
	ErrCodeParticipantFailed: "participant failed",
	ErrCodePanic:             "recovered from panic",
	ErrCodeTimeout:           "shutdown timeout exceeded",
	ErrCodeForced:            "shutdown forced",
	ErrCodeInternal:          "internal error",
	ErrCodeInvalidConfig:     "invalid configuration",
	ErrCodeUnknownSignal:     "unknown signal",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
