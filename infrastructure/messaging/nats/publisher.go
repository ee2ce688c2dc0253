// Package nats fans process events out over NATS subjects.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/nats-io/nats.go"

	"github.com/felixgeelhaar/goap/domain/event"
	"github.com/felixgeelhaar/goap/infrastructure/logging"
)

// DefaultSubjectPrefix precedes the process ID in event subjects.
const DefaultSubjectPrefix = "goap.events"

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
	Flush() error
	Close()
}

// Publisher publishes each event as JSON to <prefix>.<process id>.
type Publisher struct {
	conn   Conn
	prefix string
	logger *bolt.Logger

	mu     sync.Mutex
	closed bool
}

// Option configures the publisher.
type Option func(*Publisher)

// WithSubjectPrefix sets the subject prefix.
func WithSubjectPrefix(prefix string) Option {
	return func(p *Publisher) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

// WithLogger sets the logger used for listener-side publish failures.
func WithLogger(logger *bolt.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher over conn.
func NewPublisher(conn Conn, opts ...Option) *Publisher {
	p := &Publisher{conn: conn, prefix: DefaultSubjectPrefix}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Connect dials a NATS server with reconnect settings suited to a CLI.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", event.ErrConnectionFailed, err)
	}
	return nc, nil
}

// Subject returns the subject events of processID are published on.
func (p *Publisher) Subject(processID string) string {
	return p.prefix + "." + processID
}

// Publish implements event.Publisher.
func (p *Publisher) Publish(ctx context.Context, events ...event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return event.ErrPublisherClosed
	}
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.Validate(); err != nil {
			return err
		}
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("%w: %w", event.ErrInvalidEvent, err)
		}
		if err := p.conn.Publish(p.Subject(e.ProcessID), data); err != nil {
			return fmt.Errorf("publishing %s: %w", e.Type, err)
		}
	}
	return nil
}

// Handle implements event.Listener. Publish failures are logged, never
// propagated into the process loop.
func (p *Publisher) Handle(ctx context.Context, e event.Event) {
	if err := p.Publish(ctx, e); err != nil && !errors.Is(err, event.ErrPublisherClosed) {
		logger := p.logger
		if logger == nil {
			logger = logging.Get()
		}
		logging.NewEvent(logger.Warn()).
			Add(logging.Component("nats")).
			Add(logging.ProcessID(e.ProcessID)).
			Add(logging.Str("event_type", string(e.Type))).
			Add(logging.ErrorField(err)).
			Msg("failed to publish event")
	}
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	err := p.conn.Flush()
	p.conn.Close()
	return err
}

var (
	_ event.Publisher = (*Publisher)(nil)
	_ event.Listener  = (*Publisher)(nil)
	_ Conn            = (*nats.Conn)(nil)
)
