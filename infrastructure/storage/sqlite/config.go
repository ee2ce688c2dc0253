// Package sqlite provides SQLite-backed process and event stores.
package sqlite

import (
	"database/sql"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Config configures SQLite storage.
type Config struct {
	// DSN is a file path or a file: URI.
	DSN string

	// TablePrefix is prepended to every table name.
	TablePrefix string

	// MaxOpenConns caps the pool. SQLite serialises writers, so a small pool
	// mostly trades memory for read concurrency.
	MaxOpenConns int

	// ConnMaxLifetime recycles pooled connections.
	ConnMaxLifetime time.Duration

	// JournalMode is passed to the driver as _journal_mode (WAL, DELETE, ...).
	JournalMode string

	// BusyTimeout is how long a connection waits on a locked database.
	BusyTimeout time.Duration

	// AutoMigrate creates missing tables on open.
	AutoMigrate bool
}

// Option configures SQLite storage.
type Option func(*Config)

// WithDSN sets the database location. Empty keeps the current one.
func WithDSN(dsn string) Option {
	return func(c *Config) {
		if dsn != "" {
			c.DSN = dsn
		}
	}
}

// WithTablePrefix sets the table name prefix.
func WithTablePrefix(prefix string) Option {
	return func(c *Config) {
		c.TablePrefix = prefix
	}
}

// WithPool sizes the connection pool. Zero values keep the current settings.
func WithPool(maxOpen int, lifetime time.Duration) Option {
	return func(c *Config) {
		if maxOpen > 0 {
			c.MaxOpenConns = maxOpen
		}
		if lifetime > 0 {
			c.ConnMaxLifetime = lifetime
		}
	}
}

// WithLocking sets the journal mode and busy timeout. Zero values keep the
// current settings.
func WithLocking(journalMode string, busyTimeout time.Duration) Option {
	return func(c *Config) {
		if journalMode != "" {
			c.JournalMode = strings.ToUpper(journalMode)
		}
		if busyTimeout > 0 {
			c.BusyTimeout = busyTimeout
		}
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		DSN:             "file:goap.db?mode=rwc",
		MaxOpenConns:    4,
		ConnMaxLifetime: time.Hour,
		JournalMode:     "WAL",
		BusyTimeout:     5 * time.Second,
		AutoMigrate:     true,
	}
}

var (
	ErrConnectionFailed = errors.New("sqlite: connection failed")
	ErrMigrationFailed  = errors.New("sqlite: migration failed")
)

// DataSource returns the DSN with the locking settings added as driver
// parameters, so every pooled connection gets them. Parameters already in
// the DSN win.
func DataSource(cfg Config) (string, error) {
	path, rawQuery, _ := strings.Cut(cfg.DSN, "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", errors.Join(ErrConnectionFailed, err)
	}
	setDefault := func(key, value string) {
		if value != "" && query.Get(key) == "" {
			query.Set(key, value)
		}
	}
	setDefault("_journal_mode", cfg.JournalMode)
	if cfg.BusyTimeout > 0 {
		setDefault("_busy_timeout", strconv.FormatInt(cfg.BusyTimeout.Milliseconds(), 10))
	}
	setDefault("_foreign_keys", "on")

	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + "?" + query.Encode(), nil
}

// openDB opens a SQLite database with the given configuration.
func openDB(cfg Config) (*sql.DB, error) {
	dsn, err := DataSource(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return db, nil
}
