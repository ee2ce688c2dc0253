// Package event records process events into an event store.
package event

import (
	"context"
	"errors"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/goap/domain/event"
	"github.com/felixgeelhaar/goap/infrastructure/logging"
)

// Publisher appends events to an event store. With a buffer it batches
// appends and flushes when the buffer fills or a process terminates.
type Publisher struct {
	store   event.Store
	buffer  []event.Event
	bufSize int
	logger  *bolt.Logger
	closed  bool
	mu      sync.Mutex
}

// PublisherOption configures the publisher.
type PublisherOption func(*Publisher)

// WithBufferSize sets the event buffer size.
func WithBufferSize(size int) PublisherOption {
	return func(p *Publisher) {
		p.bufSize = size
	}
}

// WithLogger sets the logger used for listener-side append failures.
func WithLogger(logger *bolt.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a new event publisher.
func NewPublisher(store event.Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize > 0 {
		p.buffer = make([]event.Event, 0, p.bufSize)
	}
	return p
}

// Publish sends events to the event store.
func (p *Publisher) Publish(ctx context.Context, events ...event.Event) error {
	if len(events) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return event.ErrPublisherClosed
	}

	if p.bufSize == 0 {
		return p.store.Append(ctx, events...)
	}

	p.buffer = append(p.buffer, events...)
	if len(p.buffer) >= p.bufSize {
		return p.flush(ctx)
	}
	return nil
}

// Handle implements event.Listener. A terminated process flushes the
// buffer so its stream is complete once Run returns.
func (p *Publisher) Handle(ctx context.Context, e event.Event) {
	err := p.Publish(ctx, e)
	if err == nil && e.Type == event.TypeProcessTerminated {
		err = p.Flush(ctx)
	}
	if err == nil || errors.Is(err, event.ErrPublisherClosed) {
		return
	}

	logger := p.logger
	if logger == nil {
		logger = logging.Get()
	}
	logging.NewEvent(logger.Warn()).
		Add(logging.Component("event_store")).
		Add(logging.ProcessID(e.ProcessID)).
		Add(logging.Str("event_type", string(e.Type))).
		Add(logging.ErrorField(err)).
		Msg("failed to record event")
}

// Flush writes all buffered events to the store.
func (p *Publisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flush(ctx)
}

// flush must be called with mu held. The buffer is kept on failure.
func (p *Publisher) flush(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}

	if err := p.store.Append(ctx, p.buffer...); err != nil {
		return err
	}
	p.buffer = p.buffer[:0]
	return nil
}

// Buffered returns the number of events waiting to be flushed.
func (p *Publisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffer)
}

// Close flushes remaining events. Later publishes fail with
// event.ErrPublisherClosed.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.flush(context.Background())
}

var (
	_ event.Publisher = (*Publisher)(nil)
	_ event.Listener  = (*Publisher)(nil)
)
