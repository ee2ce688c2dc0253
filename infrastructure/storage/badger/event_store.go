package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/goap/domain/event"
)

// subscriberBuffer bounds each subscription channel.
const subscriberBuffer = 100

// EventStore is a BadgerDB-backed implementation of event.Store.
//
// Keys:
//
//	<prefix>events:<process>:<seq, 8 bytes big-endian>  event JSON
//	<prefix>seq:<process>                                last sequence
type EventStore struct {
	db          *badger.DB
	keyPrefix   string
	subscribers map[string][]chan event.Event
	mu          sync.RWMutex
	gcStop      chan struct{}
	gcWg        sync.WaitGroup
	closeOnce   sync.Once
}

// NewEventStore creates a new BadgerDB event store with the given configuration.
func NewEventStore(cfg Config, opts ...Option) (*EventStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := NewEventStoreFromDB(db, cfg.KeyPrefix)
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.startGC(cfg.GCInterval)
	}
	return s, nil
}

// NewEventStoreFromDB creates an event store from an existing BadgerDB database.
func NewEventStoreFromDB(db *badger.DB, keyPrefix string) *EventStore {
	return &EventStore{
		db:          db,
		keyPrefix:   keyPrefix,
		subscribers: make(map[string][]chan event.Event),
		gcStop:      make(chan struct{}),
	}
}

func (s *EventStore) startGC(interval time.Duration) {
	s.gcWg.Add(1)
	go func() {
		defer s.gcWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.gcStop:
				return
			case <-ticker.C:
				// Rewrite value log files until nothing is left to reclaim.
				for {
					if err := s.db.RunValueLogGC(gcDiscardRatio); err != nil {
						break
					}
				}
			}
		}
	}()
}

func (s *EventStore) streamPrefix(processID string) []byte {
	return []byte(s.keyPrefix + "events:" + processID + ":")
}

func (s *EventStore) eventKey(processID string, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(s.streamPrefix(processID), seq)
}

func (s *EventStore) seqKey(processID string) []byte {
	return []byte(s.keyPrefix + "seq:" + processID)
}

// Append persists one or more events atomically.
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

	var stored []event.Event

	err := s.db.Update(func(txn *badger.Txn) error {
		stored = make([]event.Event, 0, len(events))
		sequences := make(map[string]uint64)

		for _, e := range events {
			seq, ok := sequences[e.ProcessID]
			if !ok {
				var err error
				if seq, err = s.lastSeq(txn, e.ProcessID); err != nil {
					return err
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
			if err := txn.Set(s.eventKey(e.ProcessID, seq), data); err != nil {
				return err
			}
			stored = append(stored, e)
		}

		for processID, seq := range sequences {
			if err := txn.Set(s.seqKey(processID), binary.BigEndian.AppendUint64(nil, seq)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifySubscribers(stored)
	return nil
}

func (s *EventStore) lastSeq(txn *badger.Txn, processID string) (uint64, error) {
	item, err := txn.Get(s.seqKey(processID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var seq uint64
	err = item.Value(func(val []byte) error {
		if len(val) == 8 {
			seq = binary.BigEndian.Uint64(val)
		}
		return nil
	})
	return seq, err
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

	var events []event.Event
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.streamPrefix(processID)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(s.eventKey(processID, fromSeq)); it.Valid(); it.Next() {
			var e event.Event
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if err != nil {
				continue // Skip malformed entries
			}
			events = append(events, e)
		}
		return nil
	})
	return events, err
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
		for _, ch := range s.subscribers[e.ProcessID] {
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
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = s.streamPrefix(processID)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// ProcessIDs returns the IDs of processes with stored events.
func (s *EventStore) ProcessIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(s.keyPrefix + "seq:")
	var ids []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return ids, err
}

// DeleteProcess removes every event of a process and closes its subscriptions.
func (s *EventStore) DeleteProcess(ctx context.Context, processID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	for _, ch := range s.subscribers[processID] {
		close(ch)
	}
	delete(s.subscribers, processID)
	s.mu.Unlock()

	if err := s.db.DropPrefix(s.streamPrefix(processID)); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.seqKey(processID))
	})
}

// Close stops garbage collection, closes subscriptions and the database.
func (s *EventStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.gcStop)
		s.gcWg.Wait()

		s.mu.Lock()
		for _, subs := range s.subscribers {
			for _, ch := range subs {
				close(ch)
			}
		}
		s.subscribers = make(map[string][]chan event.Event)
		s.mu.Unlock()

		err = s.db.Close()
	})
	return err
}

var _ event.Store = (*EventStore)(nil)
