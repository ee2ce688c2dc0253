package notification

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
)

// SenderConfig configures HTTP delivery.
type SenderConfig struct {
	// Timeout bounds a single request.
	Timeout time.Duration
	// MaxAttempts includes the first attempt.
	MaxAttempts int
	// RetryDelay is the initial backoff between attempts.
	RetryDelay time.Duration
	// BreakerThreshold is the consecutive failures that open an endpoint's circuit.
	BreakerThreshold int
	// BreakerTimeout is how long an open circuit rejects deliveries.
	BreakerTimeout time.Duration
	UserAgent      string
}

// DefaultSenderConfig returns the delivery defaults.
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		Timeout:          10 * time.Second,
		MaxAttempts:      3,
		RetryDelay:       500 * time.Millisecond,
		BreakerThreshold: 5,
		BreakerTimeout:   30 * time.Second,
		UserAgent:        "goap-webhook/1.0",
	}
}

// Sender posts payloads to endpoints, retrying server errors and keeping
// one circuit breaker per URL.
type Sender struct {
	config   SenderConfig
	client   *http.Client
	retrier  retry.Retry[int]
	mu       sync.Mutex
	breakers map[string]circuitbreaker.CircuitBreaker[int]
}

// NewSender creates a sender. Zero fields take DefaultSenderConfig values.
func NewSender(config SenderConfig) *Sender {
	def := DefaultSenderConfig()
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = def.RetryDelay
	}
	if config.BreakerThreshold <= 0 {
		config.BreakerThreshold = def.BreakerThreshold
	}
	if config.BreakerTimeout <= 0 {
		config.BreakerTimeout = def.BreakerTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = def.UserAgent
	}

	return &Sender{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		retrier: retry.New[int](retry.Config{
			MaxAttempts:        config.MaxAttempts,
			InitialDelay:       config.RetryDelay,
			BackoffPolicy:      retry.BackoffExponential,
			Multiplier:         2.0,
			NonRetryableErrors: []error{ErrEndpointRejected},
		}),
		breakers: make(map[string]circuitbreaker.CircuitBreaker[int]),
	}
}

// Send posts body to ep and returns the final status code. 4xx responses
// fail immediately with ErrEndpointRejected; 5xx and transport errors are
// retried.
func (s *Sender) Send(ctx context.Context, ep Endpoint, body []byte) (int, error) {
	if ep.URL == "" {
		return 0, ErrInvalidEndpoint
	}

	var headers map[string]string
	if ep.Secret != "" {
		headers = SignedHeaders(body, ep.Secret, time.Now())
	}

	return s.breaker(ep.URL).Execute(ctx, func(ctx context.Context) (int, error) {
		return s.retrier.Do(ctx, func(ctx context.Context) (int, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
			if err != nil {
				return 0, fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("User-Agent", s.config.UserAgent)
			for k, v := range ep.Headers {
				req.Header.Set(k, v)
			}
			for k, v := range headers {
				req.Header.Set(k, v)
			}

			resp, err := s.client.Do(req)
			if err != nil {
				return 0, fmt.Errorf("%w: %w", ErrEndpointUnavailable, err)
			}
			defer resp.Body.Close()
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

			switch {
			case resp.StatusCode < 300:
				return resp.StatusCode, nil
			case resp.StatusCode >= 500:
				return resp.StatusCode, fmt.Errorf("%w: status %d: %s", ErrEndpointUnavailable, resp.StatusCode, msg)
			default:
				return resp.StatusCode, fmt.Errorf("%w: status %d: %s", ErrEndpointRejected, resp.StatusCode, msg)
			}
		})
	})
}

// BreakerState reports the circuit state of url, or "unknown" before the
// first delivery.
func (s *Sender) BreakerState(url string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breakers[url]
	if !ok {
		return "unknown"
	}
	return b.State().String()
}

func (s *Sender) breaker(url string) circuitbreaker.CircuitBreaker[int] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.breakers[url]; ok {
		return b
	}
	threshold := uint32(s.config.BreakerThreshold) // #nosec G115 -- defaulted positive above
	b := circuitbreaker.New[int](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    s.config.BreakerTimeout,
		Timeout:     s.config.BreakerTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})
	s.breakers[url] = b
	return b
}
