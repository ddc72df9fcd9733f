package shutdown

import (
	"context"
	"errors"
	"os"
	"time"
)

// Common errors.
var (
	// ErrTimeout indicates participants did not acknowledge within the timeout.
	ErrTimeout = errors.New("shutdown timeout exceeded")

	// ErrParticipantFailed indicates one or more participants acknowledged with an error.
	ErrParticipantFailed = errors.New("one or more participants failed")

	// ErrForced indicates a repeated signal forced exit before participants drained.
	ErrForced = errors.New("shutdown forced by repeated signal")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Exit statuses passed to the Terminator.
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitTimeout = 2
)

// Handle identifies a registered participant.
type Handle string

// Ack acknowledges that a participant finished its cleanup.
// A nil error means success. Only the first call per episode counts.
type Ack func(err error)

// Participant is implemented by components that need graceful shutdown.
type Participant interface {
	// OnShutdown is called once per episode with the triggering signal.
	// It must eventually call ack exactly once. It should return promptly;
	// long-running cleanup belongs on its own goroutine (see Async).
	// ctx carries the episode deadline and is cancelled when the episode ends.
	OnShutdown(ctx context.Context, ack Ack, sig os.Signal)
}

// ParticipantFunc is a convenience type for simple participants.
type ParticipantFunc func(ctx context.Context, ack Ack, sig os.Signal)

// OnShutdown implements Participant.
func (f ParticipantFunc) OnShutdown(ctx context.Context, ack Ack, sig os.Signal) {
	f(ctx, ack, sig)
}

// Terminator ends the process with the given status.
type Terminator func(status int)

// FaultPolicy decides what happens when a participant panics.
type FaultPolicy string

const (
	// FaultAcknowledge converts a panic into a failed acknowledgement.
	FaultAcknowledge FaultPolicy = "acknowledge"

	// FaultPropagate lets the panic escape. The participant is then resolved
	// only by the process crashing or the timeout.
	FaultPropagate FaultPolicy = "propagate"
)

// Valid reports whether p is a known policy.
func (p FaultPolicy) Valid() bool {
	return p == FaultAcknowledge || p == FaultPropagate
}

// Result contains a single participant's acknowledgement.
type Result struct {
	// Handle of the participant.
	Handle Handle

	// Name the participant was registered with.
	Name string

	// Duration from notification to acknowledgement.
	Duration time.Duration

	// Err is the error the participant acknowledged with.
	Err error
}

// Report describes a finished shutdown episode.
type Report struct {
	// Signal that started the episode.
	Signal os.Signal

	// Started is when the first signal arrived.
	Started time.Time

	// TotalDuration from the first signal to termination.
	TotalDuration time.Duration

	// Results for each participant that acknowledged, in arrival order.
	Results []Result

	// Failures is the number of acknowledgements that carried an error.
	Failures int

	// Abandoned lists participants still pending at termination.
	Abandoned []string

	// Status passed to the Terminator.
	Status int

	// TimedOut is true when the timeout ended the episode.
	TimedOut bool

	// Forced is true when a repeated signal ended the episode.
	Forced bool

	// Err is the overall error (nil on success).
	Err error
}

// Failed returns true if the episode did not end cleanly.
func (r *Report) Failed() bool {
	return r.Err != nil
}

// FailedParticipants returns the names of participants that acknowledged with an error.
func (r *Report) FailedParticipants() []string {
	var failed []string
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res.Name)
		}
	}
	return failed
}
