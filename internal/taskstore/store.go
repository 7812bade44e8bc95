package taskstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	args TEXT NOT NULL DEFAULT '{}',
	status TEXT NOT NULL,
	pid INTEGER DEFAULT NULL,
	started INTEGER DEFAULT NULL,
	completed INTEGER DEFAULT NULL,
	error TEXT DEFAULT NULL,
	created INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks (status, created);
CREATE INDEX IF NOT EXISTS idx_tasks_pid ON tasks (pid, status);
`

// Store persists tasks in a sqlite database. Every operation runs in its
// own transaction; transactions begin immediate so that claims from
// concurrent worker processes serialize on the write lock instead of
// failing with a busy snapshot.
type Store struct {
	db  *sql.DB
	log *zap.Logger
	now func() time.Time
}

// New opens (or creates) the task database at path and ensures the schema
// exists. The path may be a plain file path or a full sqlite DSN.
func New(ctx context.Context, path string, log *zap.Logger) (*Store, error) {
	if dir := parentDir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating task database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening task database: %w", err)
	}

	if strings.Contains(path, ":memory:") {
		// every in-memory connection is a distinct empty database,
		// so the pool must be pinned to a single connection
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating task schema: %w", err)
	}

	return &Store{
		db:  db,
		log: log.Named("store"),
		now: time.Now,
	}, nil
}

func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func parentDir(path string) string {
	if strings.Contains(path, ":memory:") || strings.Contains(path, "?") {
		return ""
	}
	if dir := filepath.Dir(path); dir != "." {
		return dir
	}
	return ""
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Submit enqueues a new task of the given kind.
func (s *Store) Submit(ctx context.Context, kind string, args json.RawMessage) (*Task, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	task := &Task{
		ID:      uuid.NewString(),
		Kind:    kind,
		Args:    args,
		Status:  StatusQueued,
		Created: s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, kind, args, status, created) VALUES (?, ?, ?, ?, ?)`,
		task.ID, task.Kind, string(task.Args), task.Status, task.Created.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting task: %w", err)
	}

	return task, nil
}

// Claim atomically assigns the oldest queued task to the given pid and
// marks it active. Returns ErrNoTask if the queue is empty.
func (s *Store) Claim(ctx context.Context, pid int) (*Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer s.rollback(tx)

	task, err := scanTask(tx.QueryRowContext(ctx,
		selectTask+`WHERE status = ? ORDER BY created ASC LIMIT 1`, StatusQueued,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoTask
	}
	if err != nil {
		return nil, fmt.Errorf("selecting queued task: %w", err)
	}

	started := s.now().UTC()

	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET status = ?, pid = ?, started = ? WHERE id = ?`,
		StatusActive, pid, started.UnixNano(), task.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("claiming task %s: %w", task.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	task.Status = StatusActive
	task.Pid = &pid
	task.Started = &started

	return task, nil
}

// Get returns the task with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Task, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx, selectTask+`WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("selecting task %s: %w", id, err)
	}
	return task, nil
}

// List returns up to limit tasks, newest first, optionally filtered by
// status (empty status means all).
func (s *Store) List(ctx context.Context, status Status, limit int) ([]*Task, error) {
	query := selectTask
	args := []any{}
	if status != "" {
		query += `WHERE status = ? `
		args = append(args, status)
	}
	query += `ORDER BY created DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// CountByStatus returns the number of tasks per status.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

// Complete marks an active task as completed. Returns ErrNotFound if the
// task is no longer active, e.g. because the manager failed it for
// exceeding its time budget while the worker was finishing up.
func (s *Store) Complete(ctx context.Context, id string) error {
	return s.finish(ctx, id, StatusCompleted, nil)
}

// Fail marks an active task as failed with the given message.
func (s *Store) Fail(ctx context.Context, id string, msg string) error {
	return s.finish(ctx, id, StatusFailed, &msg)
}

func (s *Store) finish(ctx context.Context, id string, status Status, msg *string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, completed = ?, error = ? WHERE id = ? AND status = ?`,
		status, s.now().UTC().UnixNano(), msg, id, StatusActive,
	)
	if err != nil {
		return fmt.Errorf("finishing task %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// FailIfOverdue checks whether the ACTIVE task owned by pid has been
// running longer than limit and, if so, fails it in the same transaction.
// It returns the task (nil if pid owns none) and whether it was failed.
func (s *Store) FailIfOverdue(ctx context.Context, pid int, limit time.Duration) (*Task, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer s.rollback(tx)

	task, err := scanTask(tx.QueryRowContext(ctx,
		selectTask+`WHERE pid = ? AND status = ?`, pid, StatusActive,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("selecting active task for pid %d: %w", pid, err)
	}

	if task.Started == nil {
		return task, false, nil
	}

	now := s.now().UTC()
	if now.Sub(*task.Started) <= limit {
		return task, false, nil
	}

	msg := fmt.Sprintf("Task terminated after exceeding time limit of %g seconds", limit.Seconds())

	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET status = ?, completed = ?, error = ? WHERE id = ?`,
		StatusFailed, now.UnixNano(), msg, task.ID,
	)
	if err != nil {
		return task, false, fmt.Errorf("failing task %s: %w", task.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return task, false, fmt.Errorf("committing task failure: %w", err)
	}

	task.Status = StatusFailed
	task.Completed = &now
	task.Error = &msg

	return task, true, nil
}

// Orphans returns the ACTIVE tasks whose pid is set but not among the
// given pool pids.
func (s *Store) Orphans(ctx context.Context, pids []int) ([]Orphan, error) {
	query := `SELECT id, pid FROM tasks WHERE status = ? AND pid IS NOT NULL`
	args := []any{StatusActive}
	if len(pids) > 0 {
		query += ` AND pid NOT IN (` + placeholders(len(pids)) + `)`
		for _, pid := range pids {
			args = append(args, pid)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("selecting orphaned tasks: %w", err)
	}
	defer rows.Close()

	var orphans []Orphan
	for rows.Next() {
		var o Orphan
		if err := rows.Scan(&o.TaskID, &o.Pid); err != nil {
			return nil, fmt.Errorf("scanning orphan: %w", err)
		}
		orphans = append(orphans, o)
	}

	return orphans, rows.Err()
}

// ResetOrphans re-queues every ACTIVE task not owned by one of the given
// pool pids, clearing pid and started. With an empty pool every ACTIVE
// task is reset. Returns the number of tasks touched.
func (s *Store) ResetOrphans(ctx context.Context, pids []int) (int64, error) {
	query := `UPDATE tasks SET status = ?, pid = NULL, started = NULL WHERE status = ?`
	args := []any{StatusQueued, StatusActive}
	if len(pids) > 0 {
		query += ` AND pid NOT IN (` + placeholders(len(pids)) + `)`
		for _, pid := range pids {
			args = append(args, pid)
		}
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("resetting orphaned tasks: %w", err)
	}

	return res.RowsAffected()
}

func (s *Store) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.log.Error("transaction rollback failed", zap.Error(err))
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

const selectTask = `SELECT id, kind, args, status, pid, started, completed, error, created FROM tasks `

type scannable interface {
	Scan(dest ...any) error
}

func scanTask(row scannable) (*Task, error) {
	var (
		task      Task
		args      string
		pid       sql.NullInt64
		started   sql.NullInt64
		completed sql.NullInt64
		errMsg    sql.NullString
		created   int64
	)

	err := row.Scan(&task.ID, &task.Kind, &args, &task.Status, &pid, &started, &completed, &errMsg, &created)
	if err != nil {
		return nil, err
	}

	task.Args = json.RawMessage(args)
	task.Created = time.Unix(0, created).UTC()

	if pid.Valid {
		p := int(pid.Int64)
		task.Pid = &p
	}
	if started.Valid {
		t := time.Unix(0, started.Int64).UTC()
		task.Started = &t
	}
	if completed.Valid {
		t := time.Unix(0, completed.Int64).UTC()
		task.Completed = &t
	}
	if errMsg.Valid {
		task.Error = &errMsg.String
	}

	return &task, nil
}
