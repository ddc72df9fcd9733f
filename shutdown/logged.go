package shutdown

import (
	"context"
	"os"
	"time"

	serrors "github.com/vinayprograms/shutdownkit/errors"
	"github.com/vinayprograms/shutdownkit/logging"
)

// Logged wraps p so that its shutdown request and acknowledgement are logged
// under [shutdown][name]. The acknowledged error reaches the coordinator unchanged.
// A nil log uses a default logger.
//
// Under FaultAcknowledge a panic in p is logged as a failure here and
// acknowledged as an ErrCodePanic error.
func Logged(name string, p Participant, log *logging.Logger) Participant {
	if log == nil {
		log = logging.New().WithComponent("shutdown")
	}
	log = log.Named(name)

	return ParticipantFunc(func(ctx context.Context, ack Ack, sig os.Signal) {
		log.ShutdownRequested(SignalName(sig))
		start := time.Now()

		logAck := func(err error) {
			if err != nil {
				log.ShutdownFailed(time.Since(start), err)
			} else {
				log.ShutdownComplete(time.Since(start))
			}
			ack(err)
		}
		if faultPolicyFrom(ctx) == FaultAcknowledge {
			defer func() {
				if r := recover(); r != nil {
					logAck(serrors.Panic(r, serrors.WithParticipant(name)))
				}
			}()
		}
		p.OnShutdown(ctx, logAck, sig)
	})
}
