package event

import "context"

// Store defines event persistence.
type Store interface {
	// Append persists one or more events. Stores assign sequence numbers
	// per process in order of appearance.
	Append(ctx context.Context, events ...Event) error

	// LoadEvents retrieves all events for a process in sequence order.
	LoadEvents(ctx context.Context, processID string) ([]Event, error)

	// LoadEventsFrom retrieves events with a sequence at or after fromSeq.
	LoadEventsFrom(ctx context.Context, processID string, fromSeq uint64) ([]Event, error)

	// Subscribe returns a channel receiving new events for a process.
	// The channel is closed when ctx is cancelled.
	Subscribe(ctx context.Context, processID string) (<-chan Event, error)
}
