package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/goap/domain/event"
)

// subscriberBuffer bounds each subscription channel.
const subscriberBuffer = 100

// EventStore is a SQLite-backed implementation of event.Store.
type EventStore struct {
	db          *sql.DB
	table       string
	subscribers map[string][]chan event.Event
	mu          sync.RWMutex
}

// NewEventStore creates a new SQLite event store with the given configuration.
func NewEventStore(cfg Config, opts ...Option) (*EventStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &EventStore{
		db:          db,
		table:       cfg.TablePrefix + "events",
		subscribers: make(map[string][]chan event.Event),
	}

	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return s, nil
}

// NewEventStoreFromDB creates an event store from an existing database connection.
func NewEventStoreFromDB(db *sql.DB) (*EventStore, error) {
	s := &EventStore{
		db:          db,
		table:       "events",
		subscribers: make(map[string][]chan event.Event),
	}

	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *EventStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS ` + s.table + ` (
			id TEXT PRIMARY KEY,
			process_id TEXT NOT NULL,
			type TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			timestamp INTEGER NOT NULL,
			data BLOB NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_` + s.table + `_type ON ` + s.table + `(type);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_` + s.table + `_process_seq ON ` + s.table + `(process_id, sequence);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	return nil
}

// Append persists one or more events atomically, assigning IDs and
// per-process sequence numbers.
func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	for i := range events {
		if err := events[i].Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO `+s.table+` (id, process_id, type, sequence, timestamp, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().Unix()
	sequences := make(map[string]uint64)
	stored := make([]event.Event, 0, len(events))

	for _, e := range events {
		seq, ok := sequences[e.ProcessID]
		if !ok {
			var maxSeq sql.NullInt64
			err := tx.QueryRowContext(ctx,
				"SELECT MAX(sequence) FROM "+s.table+" WHERE process_id = ?",
				e.ProcessID,
			).Scan(&maxSeq)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			if maxSeq.Valid {
				seq = uint64(maxSeq.Int64)
			}
		}

		seq++
		sequences[e.ProcessID] = seq
		e.Sequence = seq
		if e.ID == "" {
			e.ID = uuid.NewString()
		}

		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.ProcessID, string(e.Type), e.Sequence, e.Timestamp.UnixNano(), data, now,
		); err != nil {
			return err
		}
		stored = append(stored, e)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.notifySubscribers(stored)
	return nil
}

// LoadEvents retrieves all events for a process in sequence order.
func (s *EventStore) LoadEvents(ctx context.Context, processID string) ([]event.Event, error) {
	return s.LoadEventsFrom(ctx, processID, 0)
}

// LoadEventsFrom retrieves events with a sequence at or after fromSeq.
func (s *EventStore) LoadEventsFrom(ctx context.Context, processID string, fromSeq uint64) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT data FROM "+s.table+" WHERE process_id = ? AND sequence >= ? ORDER BY sequence",
		processID, fromSeq,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []event.Event
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}

		var e event.Event
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}

		events = append(events, e)
	}

	return events, rows.Err()
}

// Subscribe returns a channel that receives new events for a process.
func (s *EventStore) Subscribe(ctx context.Context, processID string) (<-chan event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	ch := make(chan event.Event, subscriberBuffer)
	s.subscribers[processID] = append(s.subscribers[processID], ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.unsubscribe(processID, ch)
	}()

	return ch, nil
}

func (s *EventStore) unsubscribe(processID string, ch chan event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.subscribers[processID]
	for i, sub := range subs {
		if sub == ch {
			s.subscribers[processID] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}

	if len(s.subscribers[processID]) == 0 {
		delete(s.subscribers, processID)
	}
}

func (s *EventStore) notifySubscribers(events []event.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range events {
		subs, ok := s.subscribers[e.ProcessID]
		if !ok {
			continue
		}

		for _, ch := range subs {
			select {
			case ch <- e:
			default:
			}
		}
	}
}

// CountEvents returns the number of events for a process.
func (s *EventStore) CountEvents(ctx context.Context, processID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+s.table+" WHERE process_id = ?",
		processID,
	).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *EventStore) Close() error {
	return s.db.Close()
}

var _ event.Store = (*EventStore)(nil)
