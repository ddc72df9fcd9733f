// Package bus carries shutdown notices out of the process.
//
// # Overview
//
// A shutdown coordinator can publish what happens during an episode (signal
// received, participant acknowledged, timeout, exit status) so that sibling
// processes, supervisors or tests can observe it. The MessageBus interface is
// fire-and-forget pub/sub with a channel-based subscription API.
//
// # Available Implementations
//
//   - NATSBus: publishes to a NATS server; Flush waits for the server ack so the
//     final exit notice is not lost when the process terminates right after.
//   - MemoryBus: in-process delivery for tests and single-process observers.
//
// # Usage
//
//	b := bus.NewMemoryBus(bus.DefaultConfig())
//	sub, _ := b.Subscribe("shutdown")
//	go func() {
//	    for msg := range sub.Messages() {
//	        fmt.Println(string(msg.Data))
//	    }
//	}()
package bus
