// Package errors provides the structured error taxonomy used by shutdownkit.
//
// # Error Categories
//
//   - Recoverable: a participant failed or panicked; the exit status degrades
//     but the episode keeps waiting for the remaining participants.
//   - Fatal: the episode ends now (timeout exceeded, forced by a repeated signal).
//   - Config: the coordinator could not be constructed.
//
// # Usage
//
// Create a new error:
//
//	err := errors.New(errors.ErrCodeTimeout, "shutdown timeout exceeded")
//
// Convert a recovered panic:
//
//	defer func() {
//	    if r := recover(); r != nil {
//	        ack(errors.Panic(r, errors.WithParticipant("database")))
//	    }
//	}()
//
// Inspect an error:
//
//	if errors.Is(err, errors.ErrCodePanic) {
//	    log.Printf("participant %s panicked", errors.Participant(err))
//	}
package errors
