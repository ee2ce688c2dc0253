// Package mongodb provides a MongoDB-backed process store.
package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/felixgeelhaar/goap/domain/process"
)

// Config configures the MongoDB connection.
type Config struct {
	// URI is the connection string (mongodb://host:port).
	URI string

	// Database holds the goap collections.
	Database string

	// ConnectTimeout bounds the initial connection and ping.
	ConnectTimeout time.Duration

	// QueryTimeout bounds every store operation.
	QueryTimeout time.Duration

	// MaxPoolSize is the maximum number of connections.
	MaxPoolSize uint64
}

// ConfigOption configures the MongoDB connection.
type ConfigOption func(*Config)

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		URI:            "mongodb://localhost:27017",
		Database:       "goap",
		ConnectTimeout: 10 * time.Second,
		QueryTimeout:   5 * time.Second,
		MaxPoolSize:    10,
	}
}

// WithURI sets the connection string.
func WithURI(uri string) ConfigOption {
	return func(c *Config) {
		c.URI = uri
	}
}

// WithDatabase sets the database name.
func WithDatabase(name string) ConfigOption {
	return func(c *Config) {
		c.Database = name
	}
}

// WithQueryTimeout sets the per-operation timeout. Zero keeps the current one.
func WithQueryTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		if d > 0 {
			c.QueryTimeout = d
		}
	}
}

// WithPoolSize caps open connections. Zero keeps the current size.
func WithPoolSize(n int) ConfigOption {
	return func(c *Config) {
		if n > 0 {
			c.MaxPoolSize = uint64(n)
		}
	}
}

// Client wraps a MongoDB client bound to one database.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
	config Config
}

// NewClient connects to MongoDB and verifies the connection.
func NewClient(ctx context.Context, cfg Config, opts ...ConfigOption) (*Client, error) {
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultConfig().QueryTimeout
	}

	clientOpts := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(cfg.ConnectTimeout)
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, errors.Join(process.ErrConnectionFailed, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Join(process.ErrConnectionFailed, err)
	}

	return &Client{
		client: client,
		db:     client.Database(cfg.Database),
		config: cfg,
	}, nil
}

// Collection returns a collection in the configured database.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.db.Collection(name)
}

// Close disconnects the client.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
