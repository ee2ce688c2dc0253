package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/felixgeelhaar/goap/domain/process"
)

// ProcessStore is a SQLite-backed implementation of process.Store.
type ProcessStore struct {
	db    *sql.DB
	table string
}

// NewProcessStore creates a new SQLite process store with the given configuration.
func NewProcessStore(cfg Config, opts ...Option) (*ProcessStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &ProcessStore{db: db, table: cfg.TablePrefix + "processes"}

	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return s, nil
}

// NewProcessStoreFromDB creates a process store from an existing database connection.
func NewProcessStoreFromDB(db *sql.DB) (*ProcessStore, error) {
	s := &ProcessStore{db: db, table: "processes"}

	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *ProcessStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS ` + s.table + ` (
			id TEXT PRIMARY KEY,
			goal TEXT NOT NULL,
			status TEXT NOT NULL,
			data BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			end_time INTEGER,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_` + s.table + `_status ON ` + s.table + `(status);
		CREATE INDEX IF NOT EXISTS idx_` + s.table + `_goal ON ` + s.table + `(goal);
		CREATE INDEX IF NOT EXISTS idx_` + s.table + `_created_at ON ` + s.table + `(created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO `+s.table+` (id, goal, status, data, created_at, end_time, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Goal, string(p.Status), data,
		p.CreatedAt.UnixNano(), nullTime(p.EndTime), time.Now().UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return process.ErrProcessExists
		}
		return err
	}
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

	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM "+s.table+" WHERE id = ?", id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, process.ErrProcessNotFound
	}
	if err != nil {
		return nil, err
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

	result, err := s.db.ExecContext(ctx,
		`UPDATE `+s.table+` SET goal = ?, status = ?, data = ?, end_time = ?, updated_at = ?
		 WHERE id = ?`,
		p.Goal, string(p.Status), data, nullTime(p.EndTime), time.Now().UnixNano(), p.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// Delete removes a process by ID.
func (s *ProcessStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return process.ErrInvalidProcessID
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM "+s.table+" WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// List returns processes matching the filter.
func (s *ProcessStore) List(ctx context.Context, filter process.ListFilter) ([]*process.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query, args := s.buildListQuery(filter, false)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	processes := make([]*process.Process, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}

		var p process.Process
		if err := json.Unmarshal(data, &p); err != nil {
			continue // Skip malformed entries
		}
		processes = append(processes, &p)
	}
	return processes, rows.Err()
}

// Count returns the number of processes matching the filter.
func (s *ProcessStore) Count(ctx context.Context, filter process.ListFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	query, args := s.buildListQuery(filter, true)
	var count int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

func (s *ProcessStore) buildListQuery(filter process.ListFilter, countOnly bool) (string, []any) {
	query := "SELECT data FROM " + s.table
	if countOnly {
		query = "SELECT COUNT(*) FROM " + s.table
	}

	where, args := buildWhereClause(filter)
	if where != "" {
		query += " WHERE " + where
	}
	if countOnly {
		return query, args
	}

	orderBy := "created_at"
	switch filter.OrderBy {
	case process.OrderByEndTime:
		orderBy = "end_time"
	case process.OrderByID:
		orderBy = "id"
	case process.OrderByStatus:
		orderBy = "status"
	}
	dir := ""
	if filter.Descending {
		dir = " DESC"
	}
	query += " ORDER BY " + orderBy + dir + ", id" + dir

	// SQLite requires LIMIT when using OFFSET
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}
	return query, args
}

func buildWhereClause(filter process.ListFilter) (string, []any) {
	var conditions []string
	var args []any

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.Goal != "" {
		conditions = append(conditions, "goal = ?")
		args = append(args, filter.Goal)
	}
	if !filter.FromTime.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.FromTime.UnixNano())
	}
	if !filter.ToTime.IsZero() {
		conditions = append(conditions, "created_at < ?")
		args = append(args, filter.ToTime.UnixNano())
	}

	return strings.Join(conditions, " AND "), args
}

// Close closes the database connection.
func (s *ProcessStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *ProcessStore) DB() *sql.DB {
	return s.db
}

func nullTime(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return process.ErrProcessNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

var _ process.Store = (*ProcessStore)(nil)
