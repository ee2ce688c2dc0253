// Package memory provides in-memory process and event stores.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/felixgeelhaar/goap/domain/process"
)

// ProcessStore is an in-memory implementation of process.Store. Processes
// are stored as JSON so callers never share memory with the store.
type ProcessStore struct {
	processes map[string][]byte
	mu        sync.RWMutex
}

// NewProcessStore creates a new in-memory process store.
func NewProcessStore() *ProcessStore {
	return &ProcessStore{
		processes: make(map[string][]byte),
	}
}

// Save persists a new process.
func (s *ProcessStore) Save(ctx context.Context, p *process.Process) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.ID == "" {
		return process.ErrInvalidProcessID
	}

	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.processes[p.ID]; exists {
		return process.ErrProcessExists
	}
	s.processes[p.ID] = data
	return nil
}

// Get retrieves a process by ID.
func (s *ProcessStore) Get(ctx context.Context, id string) (*process.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, process.ErrInvalidProcessID
	}

	s.mu.RLock()
	data, ok := s.processes[id]
	s.mu.RUnlock()
	if !ok {
		return nil, process.ErrProcessNotFound
	}

	var p process.Process
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update replaces an existing process.
func (s *ProcessStore) Update(ctx context.Context, p *process.Process) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.ID == "" {
		return process.ErrInvalidProcessID
	}

	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.processes[p.ID]; !exists {
		return process.ErrProcessNotFound
	}
	s.processes[p.ID] = data
	return nil
}

// Delete removes a process by ID.
func (s *ProcessStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return process.ErrInvalidProcessID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.processes[id]; !exists {
		return process.ErrProcessNotFound
	}
	delete(s.processes, id)
	return nil
}

// List returns processes matching the filter.
func (s *ProcessStore) List(ctx context.Context, filter process.ListFilter) ([]*process.Process, error) {
	matched, err := s.matching(ctx, filter)
	if err != nil {
		return nil, err
	}
	return filter.Apply(matched), nil
}

// Count returns the number of processes matching the filter.
func (s *ProcessStore) Count(ctx context.Context, filter process.ListFilter) (int64, error) {
	matched, err := s.matching(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (s *ProcessStore) matching(ctx context.Context, filter process.ListFilter) ([]*process.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*process.Process, 0, len(s.processes))
	for _, data := range s.processes {
		var p process.Process
		if err := json.Unmarshal(data, &p); err != nil {
			continue
		}
		if filter.Matches(&p) {
			result = append(result, &p)
		}
	}
	return result, nil
}

// Len returns the number of stored processes.
func (s *ProcessStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.processes)
}

var _ process.Store = (*ProcessStore)(nil)
