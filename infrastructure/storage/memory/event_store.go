package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/goap/domain/event"
)

// subscriberBuffer bounds each subscription channel. Events that do not fit
// are dropped for that subscriber.
const subscriberBuffer = 100

// EventStore is an in-memory implementation of event.Store.
type EventStore struct {
	events      map[string][]event.Event
	subscribers map[string][]chan event.Event
	mu          sync.RWMutex
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		events:      make(map[string][]event.Event),
		subscribers: make(map[string][]chan event.Event),
	}
}

// Append persists events, assigning IDs and per-process sequence numbers.
// Either all events are stored or none.
func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i := range events {
		if err := events[i].Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		e.Sequence = uint64(len(s.events[e.ProcessID])) + 1
		s.events[e.ProcessID] = append(s.events[e.ProcessID], e)

		for _, sub := range s.subscribers[e.ProcessID] {
			select {
			case sub <- e:
			default:
			}
		}
	}
	return nil
}

// LoadEvents retrieves all events for a process in sequence order.
func (s *EventStore) LoadEvents(ctx context.Context, processID string) ([]event.Event, error) {
	return s.LoadEventsFrom(ctx, processID, 0)
}

// LoadEventsFrom retrieves events with a sequence at or after fromSeq.
func (s *EventStore) LoadEventsFrom(ctx context.Context, processID string, fromSeq uint64) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]event.Event, 0, len(s.events[processID]))
	for _, e := range s.events[processID] {
		if e.Sequence >= fromSeq {
			result = append(result, e)
		}
	}
	return result, nil
}

// Subscribe returns a channel that receives new events for a process.
func (s *EventStore) Subscribe(ctx context.Context, processID string) (<-chan event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan event.Event, subscriberBuffer)
	s.subscribers[processID] = append(s.subscribers[processID], ch)

	go func() {
		<-ctx.Done()
		s.unsubscribe(processID, ch)
	}()

	return ch, nil
}

func (s *EventStore) unsubscribe(processID string, ch chan event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.subscribers[processID]
	for i, sub := range subs {
		if sub == ch {
			s.subscribers[processID] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}
	if len(s.subscribers[processID]) == 0 {
		delete(s.subscribers, processID)
	}
}

// ProcessIDs returns the IDs of processes with stored events.
func (s *EventStore) ProcessIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.events))
	for id := range s.events {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the total number of events across all processes.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	for _, events := range s.events {
		count += len(events)
	}
	return count
}

var _ event.Store = (*EventStore)(nil)
