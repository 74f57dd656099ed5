package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"quickplan/app/models"
)

// timeLayout is fixed width so that text comparison follows time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const taskColumns = `id, title, hours, notes, resource, parent_id, sort_order, created_at, updated_at`

// SQLiteOptions configures the SQLite backend.
type SQLiteOptions struct {
	Path         string
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// SQLiteStore keeps tasks in a single SQLite table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ TaskStore = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database file and applies the
// schema.
func OpenSQLite(ctx context.Context, opts SQLiteOptions) (*SQLiteStore, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 1
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=temp_store(MEMORY)",
		opts.Path, opts.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			hours REAL NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			resource TEXT NOT NULL DEFAULT '',
			parent_id INTEGER NULL,
			sort_order INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_parent_order ON tasks(parent_id, sort_order);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite schema: %w", err)
		}
	}
	return nil
}

// Insert creates a row ranked after its current siblings.
func (s *SQLiteStore) Insert(ctx context.Context, f models.Fields) (int64, error) {
	ts := s.now().UTC().Format(timeLayout)
	parent := nullableID(f.ParentID)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (title, hours, notes, resource, parent_id, sort_order, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(sort_order) + 1, 0) FROM tasks WHERE parent_id IS ?), ?, ?)`,
		f.Title, f.Hours, f.Notes, f.Resource, parent, parent, ts, ts,
	)
	if err != nil {
		return 0, wrap("insert", err)
	}
	id, err := res.LastInsertId()
	return id, wrap("insert", err)
}

// Update replaces the editable columns and refreshes updated_at.
func (s *SQLiteStore) Update(ctx context.Context, id int64, f models.Fields) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, hours = ?, notes = ?, resource = ?, updated_at = ? WHERE id = ?`,
		f.Title, f.Hours, f.Notes, f.Resource, s.now().UTC().Format(timeLayout), id,
	)
	return affected("update", res, err)
}

// SetRank writes sort_order only.
func (s *SQLiteStore) SetRank(ctx context.Context, id int64, rank int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET sort_order = ? WHERE id = ?`, rank, id)
	return affected("set rank", res, err)
}

func (s *SQLiteStore) DeleteOne(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	return affected("delete", res, err)
}

func (s *SQLiteStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks`)
	return affected("delete all", res, err)
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, wrap("get", err)
	}
	return &task, nil
}

func (s *SQLiteStore) Scan(ctx context.Context, filter Filter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	switch filter.Scope {
	case ScopeTopLevel:
		query += ` WHERE parent_id IS NULL`
	case ScopeChildren:
		query += ` WHERE parent_id = ?`
		args = append(args, filter.ParentID)
	}
	query += ` ORDER BY sort_order ASC, created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("scan", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, wrap("scan", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, wrap("scan", rows.Err())
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	var one int
	return wrap("ping", s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one))
}

func (s *SQLiteStore) Close(context.Context) error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (models.Task, error) {
	var (
		t                models.Task
		parent           sql.NullInt64
		created, updated string
	)
	if err := r.Scan(&t.ID, &t.Title, &t.Hours, &t.Notes, &t.Resource, &parent, &t.SortOrder, &created, &updated); err != nil {
		return t, err
	}
	if parent.Valid {
		p := parent.Int64
		t.ParentID = &p
	}
	var err error
	if t.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return t, fmt.Errorf("parse created_at: %w", err)
	}
	if t.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return t, fmt.Errorf("parse updated_at: %w", err)
	}
	return t, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func affected(op string, res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, wrap(op, err)
	}
	n, err := res.RowsAffected()
	return n, wrap(op, err)
}
