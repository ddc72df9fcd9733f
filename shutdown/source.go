package shutdown

import (
	"os"
	"os/signal"
	"sync"
)

// SignalSource delivers termination signals to a channel.
// Its method set matches os/signal so a fake can stand in during tests.
type SignalSource interface {
	Notify(ch chan<- os.Signal, sigs ...os.Signal)
	Stop(ch chan<- os.Signal)
}

// OSSignals is the process-wide signal source backed by os/signal.
type OSSignals struct{}

// Notify implements SignalSource.
func (OSSignals) Notify(ch chan<- os.Signal, sigs ...os.Signal) {
	signal.Notify(ch, sigs...)
}

// Stop implements SignalSource.
func (OSSignals) Stop(ch chan<- os.Signal) {
	signal.Stop(ch)
}

// ManualSource is an in-process SignalSource. Send delivers a signal to
// every channel subscribed to it, without touching real OS handlers.
type ManualSource struct {
	mu   sync.Mutex
	subs map[chan<- os.Signal][]os.Signal
}

// NewManualSource creates an empty ManualSource.
func NewManualSource() *ManualSource {
	return &ManualSource{subs: make(map[chan<- os.Signal][]os.Signal)}
}

// Notify implements SignalSource. An empty signal list subscribes to all signals.
func (m *ManualSource) Notify(ch chan<- os.Signal, sigs ...os.Signal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[ch] = append(m.subs[ch], sigs...)
}

// Stop implements SignalSource.
func (m *ManualSource) Stop(ch chan<- os.Signal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, ch)
}

// Send delivers sig and returns how many channels received it.
// Like os/signal, delivery never blocks; a full channel misses the signal.
func (m *ManualSource) Send(sig os.Signal) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	delivered := 0
	for ch, sigs := range m.subs {
		if !wants(sigs, sig) {
			continue
		}
		select {
		case ch <- sig:
			delivered++
		default:
		}
	}
	return delivered
}

func wants(sigs []os.Signal, sig os.Signal) bool {
	if len(sigs) == 0 {
		return true
	}
	for _, s := range sigs {
		if s == sig {
			return true
		}
	}
	return false
}
