package event

import "context"

// Listener observes process events. Handle is called synchronously from
// the process loop, so implementations should return quickly and must not
// mutate process state.
type Listener interface {
	Handle(ctx context.Context, e Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, e Event)

// Handle implements Listener.
func (f ListenerFunc) Handle(ctx context.Context, e Event) {
	f(ctx, e)
}

// Multicast fans an event out to several listeners in order.
type Multicast []Listener

// Handle implements Listener.
func (m Multicast) Handle(ctx context.Context, e Event) {
	for _, l := range m {
		if l != nil {
			l.Handle(ctx, e)
		}
	}
}

// Filter forwards only the listed event types.
func Filter(next Listener, types ...Type) Listener {
	allowed := make(map[Type]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}
	return ListenerFunc(func(ctx context.Context, e Event) {
		if _, ok := allowed[e.Type]; ok {
			next.Handle(ctx, e)
		}
	})
}

// Publisher publishes events to a backend.
type Publisher interface {
	// Publish sends events.
	Publish(ctx context.Context, events ...Event) error

	// Close releases any resources held by the publisher.
	Close() error
}
