// Package event provides the observation events a process emits and the
// interfaces for storing and listening to them.
package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is one observation emitted by a process.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// ProcessID is the process this event belongs to.
	ProcessID string `json:"process_id"`

	// Type classifies the event.
	Type Type `json:"type"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Payload contains the event-specific data.
	Payload json.RawMessage `json:"payload"`

	// Sequence orders events within the process stream. Stores assign it.
	Sequence uint64 `json:"sequence"`

	// Version is the payload schema version.
	Version int `json:"version,omitempty"`
}

// New creates an event with a JSON encoded payload.
func New(processID string, eventType Type, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	return Event{
		ProcessID: processID,
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   data,
		Version:   1,
	}, nil
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Validate checks the fields every store requires.
func (e *Event) Validate() error {
	if e.ProcessID == "" {
		return fmt.Errorf("%w: missing process ID", ErrInvalidEvent)
	}
	if e.Type == "" {
		return fmt.Errorf("%w: missing type", ErrInvalidEvent)
	}
	return nil
}
