package bus

import (
	"sync"
	"testing"
	"time"
)

// --- Unit Tests ---

func TestValidateSubject(t *testing.T) {
	tests := []struct {
		subject string
		wantErr bool
	}{
		{"shutdown", false},
		{"shutdown.node-1", false},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateSubject(tt.subject)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateSubject(%q) = %v, wantErr %v", tt.subject, err, tt.wantErr)
		}
	}
}

func TestMemoryBus_Publish(t *testing.T) {
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	// Publish without subscribers should not error
	if err := bus.Publish("shutdown", []byte("hello")); err != nil {
		t.Errorf("Publish error: %v", err)
	}
}

func TestMemoryBus_PublishInvalidSubject(t *testing.T) {
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	if err := bus.Publish("", []byte("hello")); err != ErrInvalidSubject {
		t.Errorf("expected ErrInvalidSubject, got %v", err)
	}
	if _, err := bus.Subscribe(""); err != ErrInvalidSubject {
		t.Errorf("expected ErrInvalidSubject, got %v", err)
	}
}

// --- Integration Tests ---

func TestMemoryBus_Subscribe(t *testing.T) {
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	sub, err := bus.Subscribe("shutdown")
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	defer sub.Unsubscribe()

	bus.Publish("shutdown", []byte("hello"))

	select {
	case msg := <-sub.Messages():
		if string(msg.Data) != "hello" {
			t.Errorf("data = %q, want %q", msg.Data, "hello")
		}
		if msg.Subject != "shutdown" {
			t.Errorf("subject = %q, want %q", msg.Subject, "shutdown")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestMemoryBus_MultipleSubscribers(t *testing.T) {
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	sub1, _ := bus.Subscribe("shutdown")
	sub2, _ := bus.Subscribe("shutdown")
	other, _ := bus.Subscribe("other")

	bus.Publish("shutdown", []byte("x"))

	for i, sub := range []Subscription{sub1, sub2} {
		select {
		case <-sub.Messages():
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive", i)
		}
	}

	select {
	case msg := <-other.Messages():
		t.Fatalf("unexpected delivery on other subject: %v", msg)
	default:
	}
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	sub, _ := bus.Subscribe("shutdown")
	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("Unsubscribe error: %v", err)
	}
	// Idempotent
	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("second Unsubscribe error: %v", err)
	}

	if _, ok := <-sub.Messages(); ok {
		t.Error("channel should be closed after Unsubscribe")
	}

	// Publishing afterwards must not panic on the closed channel
	if err := bus.Publish("shutdown", []byte("late")); err != nil {
		t.Errorf("Publish error: %v", err)
	}
}

func TestMemoryBus_BufferFullDrops(t *testing.T) {
	bus := NewMemoryBus(Config{BufferSize: 1})
	defer bus.Close()

	sub, _ := bus.Subscribe("shutdown")
	bus.Publish("shutdown", []byte("1"))
	bus.Publish("shutdown", []byte("2"))

	msg := <-sub.Messages()
	if string(msg.Data) != "1" {
		t.Errorf("data = %q, want 1", msg.Data)
	}
	select {
	case msg := <-sub.Messages():
		t.Errorf("expected drop, got %q", msg.Data)
	default:
	}
}

func TestMemoryBus_Close(t *testing.T) {
	bus := NewMemoryBus(DefaultConfig())
	sub, _ := bus.Subscribe("shutdown")

	if err := bus.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}

	if _, ok := <-sub.Messages(); ok {
		t.Error("subscription should be closed with the bus")
	}
	if err := bus.Publish("shutdown", nil); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := bus.Subscribe("shutdown"); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := bus.Flush(); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := sub.Unsubscribe(); err != nil {
		t.Errorf("Unsubscribe after Close error: %v", err)
	}
}

func TestMemoryBus_ConcurrentPublish(t *testing.T) {
	bus := NewMemoryBus(Config{BufferSize: 1000})
	defer bus.Close()

	sub, _ := bus.Subscribe("shutdown")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish("shutdown", []byte("x"))
		}()
	}
	wg.Wait()

	if got := len(sub.Messages()); got != 100 {
		t.Errorf("received %d messages, want 100", got)
	}
}
