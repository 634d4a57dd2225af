package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message is one event on the wire. The key is the booking reference so all
// of one booking's events land on the same partition in order.
type Message struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Header keys shared with downstream consumers. Consumers deduplicate on
// (event-id) or (key, event-type, timestamp) since delivery is at-least-once.
const (
	HeaderEventID       = "event-id"
	HeaderEventType     = "event-type"
	HeaderSource        = "source"
	HeaderTimestamp     = "timestamp"
	HeaderOriginalTopic = "original-topic"
)

// NewMessage builds a wire message for one outbox entry.
func NewMessage(key, eventType string, payload []byte) Message {
	now := time.Now()
	return Message{
		Key:       key,
		Value:     payload,
		Timestamp: now,
		Headers: map[string]string{
			HeaderEventID:   uuid.NewString(),
			HeaderEventType: eventType,
			HeaderSource:    "bookings",
			HeaderTimestamp: now.Format(time.RFC3339),
		},
	}
}

// DecodeValue decodes the message value into the provided struct.
func (m *Message) DecodeValue(v any) error {
	return json.Unmarshal(m.Value, v)
}
