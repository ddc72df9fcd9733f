package shutdown

import (
	"context"
	"os"
	"reflect"

	serrors "github.com/vinayprograms/shutdownkit/errors"
)

// CallbackFunc performs cleanup and reports completion through done.
type CallbackFunc func(done func(err error))

// FromCallback adapts a callback-style cleanup function to a Participant.
// An absent error, including a typed nil such as (*MyErr)(nil), counts as success.
func FromCallback(fn CallbackFunc) Participant {
	return ParticipantFunc(func(_ context.Context, ack Ack, _ os.Signal) {
		fn(func(err error) {
			ack(normalize(err))
		})
	})
}

// AsyncFunc is a unit of cleanup work that runs to completion.
type AsyncFunc func(ctx context.Context) error

// Async adapts an operation to a Participant. The operation runs on its own
// goroutine and its result is acknowledged exactly once.
//
// Inside a coordinator using FaultAcknowledge, a panic in op is acknowledged
// as an ErrCodePanic failure. Otherwise the panic propagates.
func Async(op AsyncFunc) Participant {
	return ParticipantFunc(func(ctx context.Context, ack Ack, _ os.Signal) {
		recoverPanics := faultPolicyFrom(ctx) == FaultAcknowledge
		go func() {
			if recoverPanics {
				defer func() {
					if r := recover(); r != nil {
						ack(serrors.Panic(r, serrors.WithParticipant(participantFrom(ctx))))
					}
				}()
			}
			ack(normalize(op(ctx)))
		}()
	})
}

// normalize maps typed nil errors to a plain nil.
func normalize(err error) error {
	if err == nil {
		return nil
	}
	v := reflect.ValueOf(err)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		if v.IsNil() {
			return nil
		}
	}
	return err
}

type faultPolicyKey struct{}

func withFaultPolicy(ctx context.Context, p FaultPolicy) context.Context {
	return context.WithValue(ctx, faultPolicyKey{}, p)
}

// faultPolicyFrom returns the policy set by the coordinator, or "" outside one.
func faultPolicyFrom(ctx context.Context) FaultPolicy {
	if ctx == nil {
		return ""
	}
	p, _ := ctx.Value(faultPolicyKey{}).(FaultPolicy)
	return p
}

type participantKey struct{}

func withParticipant(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, participantKey{}, name)
}

// participantFrom returns the name the coordinator registered the participant under.
func participantFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	name, _ := ctx.Value(participantKey{}).(string)
	return name
}
