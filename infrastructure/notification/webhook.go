// Package notification delivers process events to HTTP webhooks.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/goap/domain/event"
	"github.com/felixgeelhaar/goap/infrastructure/logging"
)

var (
	// ErrInvalidEndpoint indicates a malformed endpoint.
	ErrInvalidEndpoint = errors.New("invalid webhook endpoint")

	// ErrEndpointUnavailable indicates a transport failure or a 5xx response.
	ErrEndpointUnavailable = errors.New("webhook endpoint unavailable")

	// ErrEndpointRejected indicates a 4xx response. It is not retried.
	ErrEndpointRejected = errors.New("webhook endpoint rejected event")
)

// DefaultQueueSize is the number of events Handle buffers before dropping.
const DefaultQueueSize = 256

// Endpoint is one webhook receiver.
type Endpoint struct {
	Name    string
	URL     string
	Secret  string
	Headers map[string]string
	// Events lists the delivered types. Empty means process.terminated.
	Events []event.Type
}

// Accepts reports whether e should be delivered to the endpoint.
func (ep Endpoint) Accepts(e event.Event) bool {
	if len(ep.Events) == 0 {
		return e.Type == event.TypeProcessTerminated
	}
	for _, t := range ep.Events {
		if t == e.Type {
			return true
		}
	}
	return false
}

// Validate checks the endpoint URL.
func (ep Endpoint) Validate() error {
	u, err := url.Parse(ep.URL)
	if err != nil || ep.URL == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: url %q", ErrInvalidEndpoint, ep.URL)
	}
	return nil
}

// Notifier posts each event as JSON to every endpoint that accepts it.
// As a listener it queues events and delivers them from one goroutine, so
// a slow receiver never stalls the process loop.
type Notifier struct {
	endpoints []Endpoint
	sender    *Sender
	logger    *bolt.Logger
	queue     chan event.Event
	done      chan struct{}

	mu     sync.RWMutex
	closed bool
}

// Option configures the notifier.
type Option func(*notifierOptions)

type notifierOptions struct {
	sender    SenderConfig
	queueSize int
	logger    *bolt.Logger
}

// WithSenderConfig sets the HTTP delivery settings.
func WithSenderConfig(c SenderConfig) Option {
	return func(o *notifierOptions) {
		o.sender = c
	}
}

// WithQueueSize sets how many events Handle buffers.
func WithQueueSize(n int) Option {
	return func(o *notifierOptions) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(logger *bolt.Logger) Option {
	return func(o *notifierOptions) {
		o.logger = logger
	}
}

// NewNotifier validates endpoints and starts the delivery goroutine.
func NewNotifier(endpoints []Endpoint, opts ...Option) (*Notifier, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("%w: no endpoints", ErrInvalidEndpoint)
	}
	for _, ep := range endpoints {
		if err := ep.Validate(); err != nil {
			return nil, err
		}
	}

	o := notifierOptions{sender: DefaultSenderConfig(), queueSize: DefaultQueueSize}
	for _, opt := range opts {
		opt(&o)
	}

	n := &Notifier{
		endpoints: append([]Endpoint(nil), endpoints...),
		sender:    NewSender(o.sender),
		logger:    o.logger,
		queue:     make(chan event.Event, o.queueSize),
		done:      make(chan struct{}),
	}
	go n.loop()
	return n, nil
}

// Publish delivers events synchronously and joins the delivery errors.
func (n *Notifier) Publish(ctx context.Context, events ...event.Event) error {
	n.mu.RLock()
	closed := n.closed
	n.mu.RUnlock()
	if closed {
		return event.ErrPublisherClosed
	}

	var errs []error
	for _, e := range events {
		if err := n.deliver(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Handle implements event.Listener. A full queue drops the event.
func (n *Notifier) Handle(_ context.Context, e event.Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- e:
	default:
		n.warn(e, errors.New("delivery queue full"), "dropped webhook event")
	}
}

// Close delivers the queued events and stops the delivery goroutine.
func (n *Notifier) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	<-n.done
	return nil
}

// Sender exposes the underlying sender, mainly for circuit state.
func (n *Notifier) Sender() *Sender {
	return n.sender
}

func (n *Notifier) loop() {
	defer close(n.done)
	for e := range n.queue {
		if err := n.deliver(context.Background(), e); err != nil {
			n.warn(e, err, "webhook delivery failed")
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, e event.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: %w", event.ErrInvalidEvent, err)
	}

	var errs []error
	for _, ep := range n.endpoints {
		if !ep.Accepts(e) {
			continue
		}
		if _, err := n.sender.Send(ctx, ep, body); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ep.label(), err))
			continue
		}
		logging.Debug().
			Add(logging.Component("webhook")).
			Add(logging.ProcessID(e.ProcessID)).
			Add(logging.Str("endpoint", ep.label())).
			Add(logging.Str("event_type", string(e.Type))).
			Msg("webhook delivered")
	}
	return errors.Join(errs...)
}

func (n *Notifier) warn(e event.Event, err error, msg string) {
	logger := n.logger
	if logger == nil {
		logger = logging.Get()
	}
	logging.NewEvent(logger.Warn()).
		Add(logging.Component("webhook")).
		Add(logging.ProcessID(e.ProcessID)).
		Add(logging.Str("event_type", string(e.Type))).
		Add(logging.ErrorField(err)).
		Msg(msg)
}

func (ep Endpoint) label() string {
	if ep.Name != "" {
		return ep.Name
	}
	return ep.URL
}

var (
	_ event.Publisher = (*Notifier)(nil)
	_ event.Listener  = (*Notifier)(nil)
)
