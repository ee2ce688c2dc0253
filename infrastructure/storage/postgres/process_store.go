package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/goap/domain/process"
)

// uniqueViolation is the SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// ProcessStore is a PostgreSQL-backed implementation of process.Store.
// The full record is kept as JSONB next to the columns used for filtering.
type ProcessStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewProcessStore creates a new PostgreSQL process store.
func NewProcessStore(pool *pgxpool.Pool, schema string) *ProcessStore {
	if schema == "" {
		schema = "public"
	}
	return &ProcessStore{
		pool:   pool,
		schema: schema,
	}
}

func (s *ProcessStore) tableName() string {
	return fmt.Sprintf("%s.processes", s.schema)
}

// Save persists a new process.
func (s *ProcessStore) Save(ctx context.Context, p *process.Process) error {
	if p.ID == "" {
		return process.ErrInvalidProcessID
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal process: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, goal, status, data, created_at, end_time, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, s.tableName())

	_, err = s.pool.Exec(ctx, query, p.ID, p.Goal, string(p.Status), data, p.CreatedAt, endTime(p))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return process.ErrProcessExists
		}
		return s.wrapError(err)
	}
	return nil
}

// Get retrieves a process by ID.
func (s *ProcessStore) Get(ctx context.Context, id string) (*process.Process, error) {
	if id == "" {
		return nil, process.ErrInvalidProcessID
	}

	query := fmt.Sprintf(`SELECT data FROM %s WHERE id = $1`, s.tableName())

	var data []byte
	if err := s.pool.QueryRow(ctx, query, id).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, process.ErrProcessNotFound
		}
		return nil, s.wrapError(err)
	}

	var p process.Process
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal process: %w", err)
	}
	return &p, nil
}

// Update replaces an existing process.
func (s *ProcessStore) Update(ctx context.Context, p *process.Process) error {
	if p.ID == "" {
		return process.ErrInvalidProcessID
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal process: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET goal = $2, status = $3, data = $4, end_time = $5, updated_at = now()
		WHERE id = $1
	`, s.tableName())

	result, err := s.pool.Exec(ctx, query, p.ID, p.Goal, string(p.Status), data, endTime(p))
	if err != nil {
		return s.wrapError(err)
	}
	if result.RowsAffected() == 0 {
		return process.ErrProcessNotFound
	}
	return nil
}

// Delete removes a process by ID.
func (s *ProcessStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return process.ErrInvalidProcessID
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.tableName())

	result, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return s.wrapError(err)
	}
	if result.RowsAffected() == 0 {
		return process.ErrProcessNotFound
	}
	return nil
}

// List returns processes matching the filter.
func (s *ProcessStore) List(ctx context.Context, filter process.ListFilter) ([]*process.Process, error) {
	query, args := s.buildListQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer rows.Close()

	processes := make([]*process.Process, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, s.wrapError(err)
		}
		var p process.Process
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal process: %w", err)
		}
		processes = append(processes, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrapError(err)
	}
	return processes, nil
}

// Count returns the number of processes matching the filter.
func (s *ProcessStore) Count(ctx context.Context, filter process.ListFilter) (int64, error) {
	query, args := s.buildCountQuery(filter)

	var count int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, s.wrapError(err)
	}
	return count, nil
}

func (s *ProcessStore) buildListQuery(filter process.ListFilter) (string, []any) {
	whereClause, args := s.buildWhereClause(filter)

	query := fmt.Sprintf(`SELECT data FROM %s %s`, s.tableName(), whereClause)

	orderBy := "created_at"
	switch filter.OrderBy {
	case process.OrderByEndTime:
		orderBy = "end_time"
	case process.OrderByID:
		orderBy = "id"
	case process.OrderByStatus:
		orderBy = "status"
	}

	direction := "ASC"
	if filter.Descending {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s NULLS LAST, id %s", orderBy, direction, direction)

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

func (s *ProcessStore) buildCountQuery(filter process.ListFilter) (string, []any) {
	whereClause, args := s.buildWhereClause(filter)
	return fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, s.tableName(), whereClause), args
}

func (s *ProcessStore) buildWhereClause(filter process.ListFilter) (string, []any) {
	var conditions []string
	var args []any

	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			statuses[i] = string(status)
		}
		args = append(args, statuses)
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.Goal != "" {
		args = append(args, filter.Goal)
		conditions = append(conditions, fmt.Sprintf("goal = $%d", len(args)))
	}
	if !filter.FromTime.IsZero() {
		args = append(args, filter.FromTime)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !filter.ToTime.IsZero() {
		args = append(args, filter.ToTime)
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
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

func endTime(p *process.Process) *time.Time {
	if p.EndTime.IsZero() {
		return nil
	}
	return &p.EndTime
}

var _ process.Store = (*ProcessStore)(nil)
