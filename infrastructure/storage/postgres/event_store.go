package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/goap/domain/event"
)

// subscriberBuffer bounds each subscription channel.
const subscriberBuffer = 100

// EventStore is a PostgreSQL-backed implementation of event.Store.
type EventStore struct {
	pool        *pgxpool.Pool
	schema      string
	subscribers map[string][]chan event.Event
	mu          sync.RWMutex
}

// NewEventStore creates a new PostgreSQL event store.
func NewEventStore(pool *pgxpool.Pool, schema string) *EventStore {
	if schema == "" {
		schema = "public"
	}
	return &EventStore{
		pool:        pool,
		schema:      schema,
		subscribers: make(map[string][]chan event.Event),
	}
}

func (s *EventStore) tableName() string {
	return fmt.Sprintf("%s.events", s.schema)
}

// Append persists one or more events atomically.
func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	if len(events) == 0 {
		return nil
	}
	for i := range events {
		if err := events[i].Validate(); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return s.wrapError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	sequences := make(map[string]uint64)
	for _, e := range events {
		if _, ok := sequences[e.ProcessID]; ok {
			continue
		}
		var maxSeq *int64
		err := tx.QueryRow(ctx,
			fmt.Sprintf("SELECT MAX(sequence) FROM %s WHERE process_id = $1", s.tableName()),
			e.ProcessID,
		).Scan(&maxSeq)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return s.wrapError(err)
		}
		if maxSeq != nil {
			sequences[e.ProcessID] = uint64(*maxSeq)
		} else {
			sequences[e.ProcessID] = 0
		}
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (id, process_id, type, timestamp, payload, sequence, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.tableName())

	stored := make([]event.Event, len(events))
	for i, e := range events {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		sequences[e.ProcessID]++
		e.Sequence = sequences[e.ProcessID]
		if e.Version == 0 {
			e.Version = 1
		}

		_, err := tx.Exec(ctx, insertQuery,
			e.ID, e.ProcessID, string(e.Type), e.Timestamp, []byte(e.Payload), int64(e.Sequence), e.Version,
		)
		if err != nil {
			return s.wrapError(err)
		}
		stored[i] = e
	}

	if err := tx.Commit(ctx); err != nil {
		return s.wrapError(err)
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
	query := fmt.Sprintf(`
		SELECT id, process_id, type, timestamp, payload, sequence, version
		FROM %s
		WHERE process_id = $1 AND sequence >= $2
		ORDER BY sequence ASC
	`, s.tableName())

	rows, err := s.pool.Query(ctx, query, processID, int64(fromSeq))
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Subscribe returns a channel that receives new events for a process.
func (s *EventStore) Subscribe(ctx context.Context, processID string) (<-chan event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan event.Event, subscriberBuffer)
	s.subscribers[processID] = append(s.subscribers[processID], ch)

	go func() {
		<-ctx.Done()
		s.unsubscribe(processID, ch)
	}()

	return ch, nil
}

// CountEvents returns the number of events for a process.
func (s *EventStore) CountEvents(ctx context.Context, processID string) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE process_id = $1`, s.tableName())

	var count int64
	if err := s.pool.QueryRow(ctx, query, processID).Scan(&count); err != nil {
		return 0, s.wrapError(err)
	}
	return count, nil
}

// ProcessIDs returns the IDs of processes with stored events.
func (s *EventStore) ProcessIDs(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT DISTINCT process_id FROM %s ORDER BY process_id`, s.tableName())

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, s.wrapError(err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanEvents(rows pgx.Rows) ([]event.Event, error) {
	var events []event.Event
	for rows.Next() {
		var e event.Event
		var eventType string
		var payload []byte
		var seq int64

		if err := rows.Scan(&e.ID, &e.ProcessID, &eventType, &e.Timestamp, &payload, &seq, &e.Version); err != nil {
			return nil, err
		}
		e.Type = event.Type(eventType)
		e.Payload = payload
		e.Sequence = uint64(seq)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *EventStore) notifySubscribers(events []event.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range events {
		for _, ch := range s.subscribers[e.ProcessID] {
			select {
			case ch <- e:
			default:
			}
		}
	}
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

func (s *EventStore) wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(event.ErrOperationTimeout, err)
	}
	return errors.Join(event.ErrConnectionFailed, err)
}

var _ event.Store = (*EventStore)(nil)
