// Package logging writes structured bolt logs for process runs.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"
)

// ErrUnknownLevel is returned for a level name bolt does not know.
var ErrUnknownLevel = errors.New("unknown log level")

var (
	mu      sync.RWMutex
	current *bolt.Logger
)

// Config selects the level, encoding and destination of the default logger.
type Config struct {
	// Level is trace, debug, info, warn or error. Empty means warn.
	Level string

	// Format is json or console.
	Format string

	// Output defaults to stderr.
	Output io.Writer
}

// DefaultConfig logs warnings and errors to stderr for a human reader.
func DefaultConfig() Config {
	return Config{
		Level:  "warn",
		Format: "console",
		Output: os.Stderr,
	}
}

// ParseLevel resolves a level name, case-insensitively.
func ParseLevel(s string) (bolt.Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return bolt.TRACE, nil
	case "debug":
		return bolt.DEBUG, nil
	case "info":
		return bolt.INFO, nil
	case "", "warn", "warning":
		return bolt.WARN, nil
	case "error":
		return bolt.ERROR, nil
	default:
		return bolt.WARN, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
}

// New builds a logger from cfg. The default logger is left alone.
func New(cfg Config) (*bolt.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var handler bolt.Handler
	switch cfg.Format {
	case "json":
		handler = bolt.NewJSONHandler(out)
	case "", "console":
		handler = bolt.NewConsoleHandler(out)
	default:
		return nil, fmt.Errorf("unknown log format: %q", cfg.Format)
	}
	return bolt.New(handler).SetLevel(level), nil
}

// Init installs a logger built from cfg as the default.
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	mu.Lock()
	current = l
	mu.Unlock()
	return nil
}

// Get returns the default logger, building one from DefaultConfig on first
// use.
func Get() *bolt.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		current, _ = New(DefaultConfig())
	}
	return current
}

// SetLevel changes the level of the default logger in place.
func SetLevel(name string) error {
	level, err := ParseLevel(name)
	if err != nil {
		return err
	}
	Get().SetLevel(level)
	return nil
}

// LogEvent is a wrapper that allows adding Fields to a bolt.Event.
type LogEvent struct {
	event *bolt.Event
}

// NewEvent wraps a bolt.Event for field application.
func NewEvent(e *bolt.Event) *LogEvent {
	return &LogEvent{event: e}
}

// Add applies a field to the event and returns the wrapper for chaining.
func (l *LogEvent) Add(f Field) *LogEvent {
	l.event = f(l.event)
	return l
}

// Msg sends the log event with a message.
func (l *LogEvent) Msg(msg string) {
	l.event.Msg(msg)
}

// Trace returns a LogEvent wrapper for trace level logging.
func Trace() *LogEvent {
	return &LogEvent{event: Get().Trace()}
}

// Debug returns a LogEvent wrapper for debug level logging.
func Debug() *LogEvent {
	return &LogEvent{event: Get().Debug()}
}

// Info returns a LogEvent wrapper for info level logging.
func Info() *LogEvent {
	return &LogEvent{event: Get().Info()}
}

// Warn returns a LogEvent wrapper for warn level logging.
func Warn() *LogEvent {
	return &LogEvent{event: Get().Warn()}
}

// Error returns a LogEvent wrapper for error level logging.
func Error() *LogEvent {
	return &LogEvent{event: Get().Error()}
}
