// Package badger provides a BadgerDB-backed event store.
package badger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/goap/infrastructure/logging"
)

// gcDiscardRatio is the fraction of a value log file that must be stale
// before GC rewrites it.
const gcDiscardRatio = 0.5

// Config configures BadgerDB storage.
type Config struct {
	// Dir holds the database files. Ignored when InMemory is set.
	Dir string

	// InMemory keeps everything in memory.
	InMemory bool

	// SyncWrites fsyncs every append, trading throughput for durability
	// across machine crashes.
	SyncWrites bool

	// GCInterval is the pause between value log GC passes. Zero disables GC.
	GCInterval time.Duration

	// KeyPrefix is added to all keys.
	KeyPrefix string

	// Logger receives badger's internal logs. Nil routes them to the
	// default bolt logger.
	Logger badger.Logger
}

// Option configures BadgerDB storage.
type Option func(*Config)

// WithDir sets the data directory.
func WithDir(dir string) Option {
	return func(c *Config) {
		c.Dir = dir
	}
}

// WithInMemory enables in-memory storage.
func WithInMemory() Option {
	return func(c *Config) {
		c.InMemory = true
	}
}

// WithSyncWrites sets whether every append is fsynced.
func WithSyncWrites(sync bool) Option {
	return func(c *Config) {
		c.SyncWrites = sync
	}
}

// WithGCInterval sets the GC interval.
func WithGCInterval(d time.Duration) Option {
	return func(c *Config) {
		c.GCInterval = d
	}
}

// WithKeyPrefix sets the key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) {
		c.KeyPrefix = prefix
	}
}

// WithLogger sets the logger.
func WithLogger(logger badger.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{GCInterval: 5 * time.Minute}
}

var (
	ErrConnectionFailed = errors.New("badger: open failed")
)

// options translates cfg into badger options. Events are append-only, so
// one version per key is enough.
func options(cfg Config) badger.Options {
	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1)

	logger := cfg.Logger
	if logger == nil {
		logger = boltLogger{}
	}
	return opts.WithLogger(logger)
}

// openDB opens a BadgerDB database with the given configuration.
func openDB(cfg Config) (*badger.DB, error) {
	db, err := badger.Open(options(cfg))
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return db, nil
}

// boltLogger forwards badger logs to the bolt logger. Badger's info output
// is chatty, so it is demoted to debug.
type boltLogger struct{}

func (boltLogger) Errorf(format string, args ...any) {
	logging.Error().Add(logging.Component("badger")).Msg(trim(format, args))
}

func (boltLogger) Warningf(format string, args ...any) {
	logging.Warn().Add(logging.Component("badger")).Msg(trim(format, args))
}

func (boltLogger) Infof(format string, args ...any) {
	logging.Debug().Add(logging.Component("badger")).Msg(trim(format, args))
}

func (boltLogger) Debugf(format string, args ...any) {
	logging.Trace().Add(logging.Component("badger")).Msg(trim(format, args))
}

func trim(format string, args []any) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
