package shutdown

import (
	"encoding/json"
	"time"
)

// NoticeKind names an episode event published on the notice bus.
type NoticeKind string

const (
	NoticeSignal  NoticeKind = "signal"
	NoticeRepeat  NoticeKind = "repeat"
	NoticeAck     NoticeKind = "ack"
	NoticeTimeout NoticeKind = "timeout"
	NoticeExit    NoticeKind = "exit"
)

// Notice is the JSON payload published for each episode event.
type Notice struct {
	Kind        NoticeKind `json:"kind"`
	Signal      string     `json:"signal,omitempty"`
	Participant string     `json:"participant,omitempty"`
	Error       string     `json:"error,omitempty"`
	Status      *int       `json:"status,omitempty"`
	At          time.Time  `json:"at"`
}

// DecodeNotice parses a notice published by a coordinator.
func DecodeNotice(data []byte) (Notice, error) {
	var n Notice
	err := json.Unmarshal(data, &n)
	return n, err
}

// queueNotice appends a notice to the outbox. Caller holds c.mu.
func (c *Coordinator) queueNotice(n Notice) {
	if c.notices == nil {
		return
	}
	n.At = time.Now()
	c.outbox = append(c.outbox, n)
}

// flushNotices publishes queued notices in the order they were queued.
func (c *Coordinator) flushNotices() {
	if c.notices == nil {
		return
	}

	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	batch := c.outbox
	c.outbox = nil
	c.mu.Unlock()

	for _, n := range batch {
		data, err := json.Marshal(n)
		if err != nil {
			c.log.Debug("notice_encode_failed", map[string]interface{}{"kind": string(n.Kind), "error": err.Error()})
			continue
		}
		if err := c.notices.Publish(c.config.Event, data); err != nil {
			c.log.Debug("notice_publish_failed", map[string]interface{}{"kind": string(n.Kind), "error": err.Error()})
		}
	}
}

func intPtr(v int) *int {
	return &v
}
