// Package storage opens the process and event stores selected by
// configuration.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/goap/domain/config"
	"github.com/felixgeelhaar/goap/domain/event"
	"github.com/felixgeelhaar/goap/domain/process"
	"github.com/felixgeelhaar/goap/infrastructure/storage/badger"
	"github.com/felixgeelhaar/goap/infrastructure/storage/dynamodb"
	"github.com/felixgeelhaar/goap/infrastructure/storage/memory"
	"github.com/felixgeelhaar/goap/infrastructure/storage/mongodb"
	"github.com/felixgeelhaar/goap/infrastructure/storage/postgres"
	"github.com/felixgeelhaar/goap/infrastructure/storage/redis"
	"github.com/felixgeelhaar/goap/infrastructure/storage/sqlite"
)

// ErrUnsupportedBackend is returned for an unknown backend type.
var ErrUnsupportedBackend = errors.New("unsupported storage backend")

// Stores holds the opened stores. A nil store means persistence of that
// kind is disabled.
type Stores struct {
	Processes process.Store
	Events    event.Store

	closers []func() error
}

// Close releases every backend connection.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Stores) onClose(c io.Closer) {
	s.closers = append(s.closers, c.Close)
}

// Open opens the configured backends. Empty backend types leave the
// corresponding store nil.
func Open(ctx context.Context, cfg config.StorageConfig) (*Stores, error) {
	s := &Stores{}

	procs, err := openProcessStore(ctx, cfg.Processes, s)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("process store: %w", err)
	}
	s.Processes = procs

	events, err := openEventStore(ctx, cfg.Events, s)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("event store: %w", err)
	}
	s.Events = events

	return s, nil
}

func openProcessStore(ctx context.Context, b config.BackendConfig, s *Stores) (process.Store, error) {
	switch b.Type {
	case "":
		return nil, nil
	case config.StorageMemory:
		return memory.NewProcessStore(), nil
	case config.StorageSQLite:
		store, err := sqlite.NewProcessStore(sqlite.DefaultConfig(), sqliteOptions(b)...)
		if err != nil {
			return nil, err
		}
		s.onClose(store)
		return store, nil
	case config.StoragePostgres:
		pool, schema, err := openPostgres(ctx, b, s)
		if err != nil {
			return nil, err
		}
		return postgres.NewProcessStore(pool, schema), nil
	case config.StorageRedis:
		cfg := redis.DefaultConfig()
		if b.Timeout > 0 {
			cfg.Timeout = b.Timeout.Duration()
		}
		store, err := redis.NewProcessStore(cfg,
			redis.WithURL(b.DSN),
			redis.WithKeyPrefix(b.Prefix),
			redis.WithPoolSize(b.MaxConns),
			redis.WithTTL(b.TTL.Duration()))
		if err != nil {
			return nil, err
		}
		s.onClose(store)
		return store, nil
	case config.StorageMongoDB:
		opts := []mongodb.ConfigOption{
			mongodb.WithURI(b.DSN),
			mongodb.WithPoolSize(b.MaxConns),
			mongodb.WithQueryTimeout(b.Timeout.Duration()),
		}
		if b.Database != "" {
			opts = append(opts, mongodb.WithDatabase(b.Database))
		}
		client, err := mongodb.NewClient(ctx, mongodb.DefaultConfig(), opts...)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() error { return client.Close(context.Background()) })

		store := mongodb.NewProcessStore(client, collection(b.Prefix, "processes"))
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageDynamoDB:
		cfg := dynamodb.DefaultConfig()
		for _, opt := range []dynamodb.ConfigOption{
			dynamodb.WithRegion(b.Region),
			dynamodb.WithEndpoint(b.DSN),
			dynamodb.WithTable(collection(b.Prefix, cfg.Table)),
		} {
			opt(&cfg)
		}
		if b.Timeout > 0 {
			cfg.QueryTimeout = b.Timeout.Duration()
		}
		api, err := dynamodb.NewAPI(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := dynamodb.CreateTable(ctx, api, cfg.Table); err != nil {
			return nil, err
		}
		return dynamodb.NewProcessStore(api, cfg), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, b.Type)
	}
}

func openEventStore(ctx context.Context, b config.BackendConfig, s *Stores) (event.Store, error) {
	switch b.Type {
	case "":
		return nil, nil
	case config.StorageMemory:
		return memory.NewEventStore(), nil
	case config.StorageSQLite:
		store, err := sqlite.NewEventStore(sqlite.DefaultConfig(), sqliteOptions(b)...)
		if err != nil {
			return nil, err
		}
		s.onClose(store)
		return store, nil
	case config.StoragePostgres:
		pool, schema, err := openPostgres(ctx, b, s)
		if err != nil {
			return nil, err
		}
		return postgres.NewEventStore(pool, schema), nil
	case config.StorageBadger:
		store, err := badger.NewEventStore(badger.DefaultConfig(),
			badger.WithDir(b.DSN), badger.WithKeyPrefix(b.Prefix), badger.WithSyncWrites(b.SyncWrites))
		if err != nil {
			return nil, err
		}
		s.onClose(store)
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, b.Type)
	}
}

// openPostgres opens a pool and migrates the schema named by the prefix.
func openPostgres(ctx context.Context, b config.BackendConfig, s *Stores) (*pgxpool.Pool, string, error) {
	schema := b.Prefix
	if schema == "" {
		schema = "public"
	}
	cfg := postgres.DefaultConfig()
	cfg.DSN = b.DSN
	if b.MaxConns > 0 {
		cfg.MaxConns = int32(b.MaxConns)
	}
	if b.ConnMaxLifetime > 0 {
		cfg.MaxConnLifetime = b.ConnMaxLifetime.Duration()
	}
	if b.Timeout > 0 {
		cfg.ConnectTimeout = b.Timeout.Duration()
	}
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, "", err
	}
	s.closers = append(s.closers, func() error { pool.Close(); return nil })

	if err := postgres.Migrate(ctx, pool, schema); err != nil {
		return nil, "", err
	}
	return pool, schema, nil
}

func sqliteOptions(b config.BackendConfig) []sqlite.Option {
	return []sqlite.Option{
		sqlite.WithDSN(b.DSN),
		sqlite.WithTablePrefix(b.Prefix),
		sqlite.WithPool(b.MaxConns, b.ConnMaxLifetime.Duration()),
		sqlite.WithLocking(b.JournalMode, b.BusyTimeout.Duration()),
	}
}

func collection(prefix, name string) string {
	return prefix + name
}
