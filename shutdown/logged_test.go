package shutdown

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	serrors "github.com/vinayprograms/shutdownkit/errors"
	"github.com/vinayprograms/shutdownkit/logging"
)

func newCapturedLogger() (*logging.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	log := logging.New()
	log.SetOutput(buf)
	return log.WithComponent("shutdown"), buf
}

// TestLoggedSuccess tests the request and completion lines.
func TestLoggedSuccess(t *testing.T) {
	log, buf := newCapturedLogger()
	acks := newAckCollector()

	p := Logged("database", FromCallback(func(done func(error)) { done(nil) }), log)
	p.OnShutdown(context.Background(), acks.ack, os.Interrupt)

	if err := acks.wait(t); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "[shutdown][database] shutdown_requested") {
		t.Errorf("missing request line:\n%s", out)
	}
	if !strings.Contains(out, "signal="+SignalName(os.Interrupt)) {
		t.Errorf("missing signal field:\n%s", out)
	}
	if !strings.Contains(out, "[shutdown][database] shutdown_complete") {
		t.Errorf("missing completion line:\n%s", out)
	}
}

// TestLoggedFailurePassesErrorThrough tests that the error value is not rewritten.
func TestLoggedFailurePassesErrorThrough(t *testing.T) {
	log, buf := newCapturedLogger()
	acks := newAckCollector()
	want := errors.New("disk full")

	p := Logged("cache", Async(func(ctx context.Context) error { return want }), log)
	p.OnShutdown(context.Background(), acks.ack, os.Interrupt)

	if err := acks.wait(t); err != want {
		t.Fatalf("expected the same error value, got %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "ERROR") || !strings.Contains(out, "[shutdown][cache] shutdown_failed") {
		t.Errorf("missing failure line:\n%s", out)
	}
	if !strings.Contains(out, "error=disk full") {
		t.Errorf("missing error field:\n%s", out)
	}
}

// TestLoggedDelegatesOnce tests that composed decorators invoke the participant exactly once.
func TestLoggedDelegatesOnce(t *testing.T) {
	log, buf := newCapturedLogger()
	acks := newAckCollector()

	var calls atomic.Int32
	inner := ParticipantFunc(func(ctx context.Context, ack Ack, sig os.Signal) {
		calls.Add(1)
		ack(nil)
	})

	p := Logged("outer", Logged("inner", inner, log), log)
	p.OnShutdown(context.Background(), acks.ack, os.Interrupt)

	acks.wait(t)
	time.Sleep(10 * time.Millisecond)

	if calls.Load() != 1 {
		t.Fatalf("expected 1 delegation, got %d", calls.Load())
	}
	if acks.count() != 1 {
		t.Fatalf("expected 1 ack, got %d", acks.count())
	}

	out := buf.String()
	for _, tag := range []string{"[shutdown][outer]", "[shutdown][inner]"} {
		if strings.Count(out, tag) != 2 {
			t.Errorf("expected 2 lines tagged %s:\n%s", tag, out)
		}
	}
}

// TestLoggedInCoordinator tests that wrapping does not change the episode outcome.
func TestLoggedInCoordinator(t *testing.T) {
	for _, tt := range []struct {
		name   string
		err    error
		status int
	}{
		{"success", nil, ExitSuccess},
		{"failure", errors.New("x"), ExitFailure},
	} {
		t.Run(tt.name, func(t *testing.T) {
			coord, ex, _ := newTestCoordinator(t, Config{Timeout: time.Second})
			log, _ := newCapturedLogger()
			err := tt.err
			coord.Register("worker", Logged("worker", Async(func(ctx context.Context) error { return err }), log))

			coord.Trigger(nil)
			if status := ex.wait(t, time.Second); status != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, status)
			}
		})
	}
}

// TestLoggedPanicLogsFailure tests that a recovered panic gets the decorator's failure line.
func TestLoggedPanicLogsFailure(t *testing.T) {
	log, buf := newCapturedLogger()
	acks := newAckCollector()
	ctx := withFaultPolicy(context.Background(), FaultAcknowledge)

	p := Logged("x", ParticipantFunc(func(ctx context.Context, ack Ack, sig os.Signal) {
		panic("boom")
	}), log)
	p.OnShutdown(ctx, acks.ack, os.Interrupt)

	err := acks.wait(t)
	if !serrors.Is(err, serrors.ErrCodePanic) {
		t.Fatalf("expected PANIC error, got %v", err)
	}
	if got := serrors.Participant(err); got != "x" {
		t.Fatalf("expected participant x, got %q", got)
	}
	if out := buf.String(); !strings.Contains(out, "[shutdown][x] shutdown_failed") {
		t.Errorf("missing failure line:\n%s", out)
	}
}

// TestLoggedPanicPropagates tests that panics escape without FaultAcknowledge.
func TestLoggedPanicPropagates(t *testing.T) {
	log, _ := newCapturedLogger()
	p := Logged("x", ParticipantFunc(func(ctx context.Context, ack Ack, sig os.Signal) {
		panic("boom")
	}), log)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic to propagate")
		}
	}()
	p.OnShutdown(withFaultPolicy(context.Background(), FaultPropagate), func(error) {}, os.Interrupt)
}

func TestLoggedNilLogger(t *testing.T) {
	acks := newAckCollector()
	p := Logged("quiet", FromCallback(func(done func(error)) { done(nil) }), nil)

	// Should not panic
	p.OnShutdown(context.Background(), acks.ack, os.Interrupt)
	acks.wait(t)
}
