// Package postgres provides PostgreSQL-backed process and event stores.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config configures the PostgreSQL connection pool.
type Config struct {
	// DSN is a postgres:// URL or keyword/value connection string.
	DSN string

	// MaxConns caps the pool. Zero keeps the pgx default.
	MaxConns int32

	// MaxConnLifetime recycles connections older than this.
	MaxConnLifetime time.Duration

	// ConnectTimeout bounds establishing one connection.
	ConnectTimeout time.Duration
}

// DefaultConfig returns the defaults applied on top of the DSN.
func DefaultConfig() Config {
	return Config{
		MaxConns:        10,
		MaxConnLifetime: time.Hour,
		ConnectTimeout:  10 * time.Second,
	}
}

var (
	ErrConnectionFailed = errors.New("postgres: connection failed")
	ErrMigrationFailed  = errors.New("postgres: migration failed")
)

// PoolConfig parses the DSN and applies the pool settings. Settings left at
// zero keep whatever the DSN or pgx chose.
func PoolConfig(cfg Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	return poolCfg, nil
}

// NewPool opens a connection pool and verifies it with a ping.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return pool, nil
}

// Migrate creates the process and event tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	if schema == "" {
		schema = "public"
	}
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s.processes (
			id TEXT PRIMARY KEY,
			goal TEXT NOT NULL,
			status TEXT NOT NULL,
			data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS processes_status_idx ON %[1]s.processes (status);
		CREATE INDEX IF NOT EXISTS processes_goal_idx ON %[1]s.processes (goal);
		CREATE INDEX IF NOT EXISTS processes_created_at_idx ON %[1]s.processes (created_at);

		CREATE TABLE IF NOT EXISTS %[1]s.events (
			id TEXT PRIMARY KEY,
			process_id TEXT NOT NULL,
			type TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			payload JSONB NOT NULL,
			sequence BIGINT NOT NULL,
			version INT NOT NULL DEFAULT 1,
			UNIQUE (process_id, sequence)
		);
	`, schema)

	if _, err := pool.Exec(ctx, ddl); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}
