package errors

import (
	"errors"
	"fmt"
	"testing"
)

// ============================================================================
// 1. Error creation with different codes/categories
// ============================================================================

func TestNew(t *testing.T) {
	tests := []struct {
		name         string
		code         ErrorCode
		message      string
		wantCategory ErrorCategory
	}{
		{"participant_failed", ErrCodeParticipantFailed, "disk full", CategoryRecoverable},
		{"panic", ErrCodePanic, "boom", CategoryRecoverable},
		{"timeout", ErrCodeTimeout, "deadline", CategoryFatal},
		{"forced", ErrCodeForced, "second signal", CategoryFatal},
		{"invalid_config", ErrCodeInvalidConfig, "bad timeout", CategoryConfig},
		{"unknown_signal", ErrCodeUnknownSignal, "SIGFOO", CategoryConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message)
			if err.Code() != tt.code {
				t.Errorf("Code() = %v, want %v", err.Code(), tt.code)
			}
			if err.Category() != tt.wantCategory {
				t.Errorf("Category() = %v, want %v", err.Category(), tt.wantCategory)
			}
			if err.Error() != tt.message {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.message)
			}
			if err.Timestamp().IsZero() {
				t.Error("Timestamp() should not be zero")
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(ErrCodeUnknownSignal, "unknown signal %q", "SIGFOO")
	want := `unknown signal "SIGFOO"`
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestFromCode(t *testing.T) {
	err := FromCode(ErrCodeTimeout)
	if err.Error() != "shutdown timeout exceeded" {
		t.Errorf("Error() = %v, want default description", err.Error())
	}
}

func TestUnknownCodeDefaults(t *testing.T) {
	code := ErrorCode("SOMETHING_ELSE")
	if code.DefaultCategory() != CategoryFatal {
		t.Errorf("DefaultCategory() = %v, want fatal", code.DefaultCategory())
	}
	if code.Description() != "unknown error" {
		t.Errorf("Description() = %v", code.Description())
	}
}

func TestWithCategoryOverride(t *testing.T) {
	err := New(ErrCodeInternal, "soft", WithCategory(CategoryRecoverable))
	if err.Category() != CategoryRecoverable {
		t.Errorf("Category() = %v, want recoverable", err.Category())
	}
	if IsFatal(err) {
		t.Error("overridden error should not be fatal")
	}
}

// ============================================================================
// 2. Panic conversion
// ============================================================================

func TestPanicFromValue(t *testing.T) {
	err := Panic("boom", WithParticipant("cache"))
	if err.Code() != ErrCodePanic {
		t.Errorf("Code() = %v, want PANIC", err.Code())
	}
	if err.Error() != "panic during shutdown: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Participant() != "cache" {
		t.Errorf("Participant() = %q, want cache", err.Participant())
	}
	if err.Unwrap() != nil {
		t.Error("non-error panic value should not become a cause")
	}
}

func TestPanicFromError(t *testing.T) {
	cause := errors.New("nil map write")
	err := Panic(cause)
	if !errors.Is(err, cause) {
		t.Error("panic error should wrap the recovered error")
	}
}

// ============================================================================
// 3. Metadata handling
// ============================================================================

func TestMetadata(t *testing.T) {
	err := New(ErrCodeTimeout, "test",
		WithMetadata("timeout", "50ms"),
		WithMetadata("abandoned", "queue"),
	)

	meta := err.Metadata()
	if meta["timeout"] != "50ms" || meta["abandoned"] != "queue" {
		t.Errorf("Metadata() = %v", meta)
	}
}

func TestMetadataImmutability(t *testing.T) {
	err := New(ErrCodeInternal, "test", WithMetadata("original", "value"))

	meta := err.Metadata()
	meta["injected"] = "evil"

	if err.Metadata()["injected"] != "" {
		t.Error("Metadata() should return a copy, not the original map")
	}
}

func TestNilMetadata(t *testing.T) {
	err := New(ErrCodeInternal, "test")
	meta := err.Metadata()
	if meta == nil {
		t.Error("Metadata() should return empty map, not nil")
	}
}

// ============================================================================
// 4. Error wrapping and unwrapping
// ============================================================================

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(cause, "flush journal")

	if err.Error() != "flush journal: disk full" {
		t.Errorf("Error() = %v", err.Error())
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap() should return original error")
	}
	if err.Code() != ErrCodeParticipantFailed {
		t.Errorf("Code() = %v, want %v", err.Code(), ErrCodeParticipantFailed)
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(nil, "message"); err != nil {
		t.Error("Wrap(nil, ...) should return nil")
	}
	if err := WrapWithCode(nil, ErrCodeTimeout, "message"); err != nil {
		t.Error("WrapWithCode(nil, ...) should return nil")
	}
}

func TestWrapShutdownError(t *testing.T) {
	original := New(ErrCodePanic, "boom",
		WithMetadata("id", "123"),
		WithParticipant("db"),
	)
	wrapped := Wrap(original, "participant db")

	if wrapped.Code() != ErrCodePanic {
		t.Errorf("wrapped.Code() = %v, want %v", wrapped.Code(), ErrCodePanic)
	}
	if wrapped.Metadata()["id"] != "123" {
		t.Error("wrapped error should preserve metadata")
	}
	if wrapped.Participant() != "db" {
		t.Error("wrapped error should preserve participant")
	}
	if !errors.Is(wrapped, original) {
		t.Error("errors.Is should find the original")
	}
}

func TestWrapfAndWrapWithCode(t *testing.T) {
	sentinel := errors.New("shutdown timeout exceeded")

	err := WrapWithCode(sentinel, ErrCodeTimeout, "after 50ms")
	if !errors.Is(err, sentinel) {
		t.Error("WrapWithCode should keep the sentinel in the chain")
	}
	if !Is(err, ErrCodeTimeout) || !IsFatal(err) {
		t.Errorf("expected fatal TIMEOUT, got %v / %v", Code(err), err.Category())
	}

	f := Wrapf(sentinel, "participant %s", "db")
	if f.Error() != "participant db: shutdown timeout exceeded" {
		t.Errorf("Wrapf Error() = %q", f.Error())
	}
}

func TestHelpersOnPlainErrors(t *testing.T) {
	plain := errors.New("plain")
	if Is(plain, ErrCodeTimeout) {
		t.Error("plain error should not match a code")
	}
	if Code(plain) != "" {
		t.Error("plain error should have no code")
	}
	if Participant(plain) != "" {
		t.Error("plain error should have no participant")
	}
	if IsFatal(plain) {
		t.Error("plain error should not be fatal")
	}
	if AsShutdownError(plain) != nil {
		t.Error("AsShutdownError should be nil for plain errors")
	}
}

func TestAsShutdownErrorThroughFmtWrap(t *testing.T) {
	inner := New(ErrCodeForced, "second signal", WithParticipant("x"))
	outer := fmt.Errorf("exit: %w", inner)

	se := AsShutdownError(outer)
	if se == nil {
		t.Fatal("expected ShutdownError")
	}
	if se.Code() != ErrCodeForced || se.Participant() != "x" {
		t.Errorf("got %v / %v", se.Code(), se.Participant())
	}
}
