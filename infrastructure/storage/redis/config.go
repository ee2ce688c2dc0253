// Package redis provides a Redis-backed process store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/goap/domain/process"
)

// Config holds Redis connection settings.
type Config struct {
	// URL is either a redis:// or rediss:// URL, which carries credentials
	// and the database index, or a bare host:port.
	URL string

	// PoolSize caps open connections. Zero keeps the client default.
	PoolSize int

	// Timeout bounds dialing, and every read and write.
	Timeout time.Duration

	// KeyPrefix namespaces every key.
	KeyPrefix string

	// TTL expires process records. Zero keeps them forever.
	TTL time.Duration
}

// DefaultConfig returns the local development settings.
func DefaultConfig() Config {
	return Config{
		URL:       "localhost:6379",
		Timeout:   3 * time.Second,
		KeyPrefix: "goap:",
	}
}

// ConfigOption configures the Redis connection.
type ConfigOption func(*Config)

// WithURL sets the server URL or address. Empty keeps the current one.
func WithURL(url string) ConfigOption {
	return func(c *Config) {
		if url != "" {
			c.URL = url
		}
	}
}

// WithKeyPrefix sets the key namespace. Empty keeps the current one.
func WithKeyPrefix(prefix string) ConfigOption {
	return func(c *Config) {
		if prefix != "" {
			c.KeyPrefix = prefix
		}
	}
}

// WithPoolSize caps open connections.
func WithPoolSize(size int) ConfigOption {
	return func(c *Config) {
		c.PoolSize = size
	}
}

// WithTTL expires process records after d.
func WithTTL(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.TTL = d
	}
}

// Options translates cfg into client options.
func Options(cfg Config) (*redis.Options, error) {
	var opts *redis.Options
	if strings.Contains(cfg.URL, "://") {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", process.ErrConnectionFailed, err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: cfg.URL}
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.Timeout > 0 {
		opts.DialTimeout = cfg.Timeout
		opts.ReadTimeout = cfg.Timeout
		opts.WriteTimeout = cfg.Timeout
	}
	return opts, nil
}

// NewClient opens a client and verifies it with a ping.
func NewClient(cfg Config) (*redis.Client, error) {
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(process.ErrConnectionFailed, err)
	}
	return client, nil
}
