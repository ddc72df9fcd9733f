// Package shutdown coordinates graceful process termination.
//
// # Overview
//
// When a termination signal arrives the Coordinator notifies every registered
// Participant, waits for each one to acknowledge, and terminates the process
// with an aggregated exit status. If the participants do not all acknowledge
// within the configured timeout, the process is terminated anyway with
// ExitTimeout. A hung participant never prevents exit.
//
// # Architecture
//
//	             SIGINT / SIGTERM / SIGQUIT / Trigger()
//	                              │
//	                              ▼
//	┌──────────────────────────────────────────────────────────────────┐
//	│                          Coordinator                             │
//	│   arm timeout ──► broadcast (registration order) ──► drain check │
//	├──────────────────────────────────────────────────────────────────┤
//	│  ┌─────────────┐  ┌─────────────┐  ┌─────────────┐               │
//	│  │Participant A│  │Participant B│  │Participant C│  (concurrent) │
//	│  └──────┬──────┘  └──────┬──────┘  └──────┬──────┘               │
//	│         └──── ack(err) ──┴──── ack(err) ──┘                      │
//	└──────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	            Terminator(0 | ExitFailure | ExitTimeout)
//
// # Usage
//
//	coord, err := shutdown.NewCoordinator(shutdown.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Blocking cleanup, run on its own goroutine
//	coord.RegisterFunc("http", server.Shutdown)
//
//	// Callback style
//	coord.RegisterCallback("pool", func(done func(error)) {
//	    pool.Drain(done)
//	})
//
//	// With progress logging under [shutdown][cache]
//	coord.Register("cache", shutdown.Logged("cache", cacheParticipant, nil))
//
//	coord.HandleSignals()
//	<-coord.Done()
//
// # Exit Status
//
//   - ExitSuccess (0): every participant acknowledged without error
//   - ExitFailure (1): one or more participants failed, or a repeated signal
//     forced exit (Config.ForceOnRepeat)
//   - ExitTimeout (2): the timeout fired first
//
// # Repeated Signals
//
// Signals received while an episode runs are logged and published as notices.
// They never re-notify participants or re-arm the timeout. With ForceOnRepeat
// the second signal ends the episode immediately, even while a participant
// is still blocked in OnShutdown: HandleSignals notifies participants on a
// separate goroutine.
//
// # Panics
//
// Under FaultAcknowledge (the default) a panic in OnShutdown or in an Async
// operation is acknowledged as a failure with code PANIC naming the
// participant. Logged recovers first, so its failure line is written. Under
// FaultPropagate the panic escapes and only the timeout resolves that
// participant.
//
// # Late Registration
//
// Participants registered after the first signal stay registered but are not
// notified and do not hold the episode open.
package shutdown
