package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the broker envelope. Consumers receive Payload as a generic JSON
// value and decode it with DecodePayload.
type Event struct {
	Event         string    `json:"event"`   // e.g., "ledger.item.created"
	Version       string    `json:"version"` // e.g., "v1"
	Source        string    `json:"source,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Payload       any       `json:"payload"`
	TraceID       string    `json:"traceId"`
	CorrelationID string    `json:"correlationId"`
}

type Headers struct {
	TraceID       string
	CorrelationID string
	Service       string
}

func NewEvent(eventName, version string, payload any, headers Headers) *Event {
	return &Event{
		Event:         eventName,
		Version:       version,
		Source:        headers.Service,
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
		TraceID:       headers.TraceID,
		CorrelationID: headers.CorrelationID,
	}
}

func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// GetRoutingKey is the event name suffixed with its version, for example
// "ledger.item.transferred.v1".
func (e *Event) GetRoutingKey() string {
	return e.Event + "." + e.Version
}

func GenerateTraceID() string {
	return uuid.New().String()
}

func GenerateCorrelationID() string {
	return uuid.New().String()
}
