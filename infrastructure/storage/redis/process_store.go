package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/goap/domain/process"
)

// ProcessStore is a Redis-backed implementation of process.Store.
// Each process is a JSON string at <prefix>process:<id>; a sorted set at
// <prefix>processes indexes IDs by creation time.
type ProcessStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewProcessStore connects to Redis and returns a process store.
func NewProcessStore(cfg Config, opts ...ConfigOption) (*ProcessStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewProcessStoreFromClient(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewProcessStoreFromClient creates a process store from an existing client.
func NewProcessStoreFromClient(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *ProcessStore {
	return &ProcessStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (s *ProcessStore) processKey(id string) string {
	return s.keyPrefix + "process:" + id
}

func (s *ProcessStore) indexKey() string {
	return s.keyPrefix + "processes"
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

	created, err := s.client.SetNX(ctx, s.processKey(p.ID), data, s.ttl).Result()
	if err != nil {
		return s.wrapError(err)
	}
	if !created {
		return process.ErrProcessExists
	}

	err = s.client.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(p.CreatedAt.UnixMilli()),
		Member: p.ID,
	}).Err()
	return s.wrapError(err)
}

// Get retrieves a process by ID.
func (s *ProcessStore) Get(ctx context.Context, id string) (*process.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, process.ErrInvalidProcessID
	}

	data, err := s.client.Get(ctx, s.processKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, process.ErrProcessNotFound
	}
	if err != nil {
		return nil, s.wrapError(err)
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

	updated, err := s.client.SetXX(ctx, s.processKey(p.ID), data, s.ttl).Result()
	if err != nil {
		return s.wrapError(err)
	}
	if !updated {
		return process.ErrProcessNotFound
	}
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

	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.processKey(id))
		pipe.ZRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return s.wrapError(err)
	}
	if del.Val() == 0 {
		return process.ErrProcessNotFound
	}
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

// matching loads the indexed processes inside the filter's time window and
// applies the remaining predicates. Index entries whose record expired are
// removed on the way.
func (s *ProcessStore) matching(ctx context.Context, filter process.ListFilter) ([]*process.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rng := &redis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if !filter.FromTime.IsZero() {
		rng.Min = formatScore(filter.FromTime.UnixMilli())
	}
	if !filter.ToTime.IsZero() {
		rng.Max = "(" + formatScore(filter.ToTime.UnixMilli())
	}

	ids, err := s.client.ZRangeByScore(ctx, s.indexKey(), rng).Result()
	if err != nil {
		return nil, s.wrapError(err)
	}
	if len(ids) == 0 {
		return []*process.Process{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.processKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, s.wrapError(err)
	}

	result := make([]*process.Process, 0, len(values))
	var expired []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var p process.Process
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			continue // Skip malformed entries
		}
		if filter.Matches(&p) {
			result = append(result, &p)
		}
	}

	if len(expired) > 0 {
		_ = s.client.ZRem(ctx, s.indexKey(), expired...).Err()
	}
	return result, nil
}

// Close closes the underlying client.
func (s *ProcessStore) Close() error {
	return s.client.Close()
}

func (s *ProcessStore) wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(process.ErrOperationTimeout, err)
	}
	return errors.Join(process.ErrConnectionFailed, err)
}

func formatScore(ms int64) string {
	return strconv.FormatInt(ms, 10)
}

var _ process.Store = (*ProcessStore)(nil)
