// Package store persists tasks in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/MikhailPrudnikov/Max-efficiency/internal/logging"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/task"
)

// ErrNotFound is returned when a task does not exist or belongs to a
// different user.
var ErrNotFound = errors.New("task not found")

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id           TEXT PRIMARY KEY,
	user_id      INTEGER NOT NULL,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	deadline     TIMESTAMP,
	priority     TEXT NOT NULL DEFAULT 'medium',
	completed    INTEGER NOT NULL DEFAULT 0,
	completed_at TIMESTAMP,
	created_at   TIMESTAMP NOT NULL,
	updated_at   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_user_active
	ON tasks(user_id, completed);
`

// Store is a SQLite-backed task store. All operations are scoped by user id
// so one user can never read or mutate another user's tasks.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// New opens (and if needed creates) the task database at path.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{
		db:  db,
		log: logging.WithComponent("store"),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new task and returns its generated id. Priority must be
// validated by the caller; empty priority defaults to medium.
func (s *Store) Create(ctx context.Context, userID int64, title, description string, deadline *time.Time, priority string) (string, error) {
	if priority == "" {
		priority = task.PriorityMedium
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	var dl sql.NullTime
	if deadline != nil {
		dl = sql.NullTime{Time: deadline.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, title, description, deadline, priority, completed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		id, userID, title, description, dl, priority, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to insert task: %w", err)
	}

	s.log.Info("task created",
		slog.String("task_id", id),
		slog.Int64("user_id", userID),
		slog.String("priority", priority))

	return id, nil
}

// Get returns one task by id, scoped to the user. Returns ErrNotFound when
// the task does not exist or is owned by someone else.
func (s *Store) Get(ctx context.Context, taskID string, userID int64) (*task.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, description, deadline, priority, completed, completed_at, created_at, updated_at
		 FROM tasks WHERE id = ? AND user_id = ?`,
		taskID, userID)

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}
	return t, nil
}

// ListActive returns the user's pending tasks, highest priority first, then
// newest first within a priority.
func (s *Store) ListActive(ctx context.Context, userID int64) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, description, deadline, priority, completed, completed_at, created_at, updated_at
		 FROM tasks
		 WHERE user_id = ? AND completed = 0
		 ORDER BY
		   CASE priority WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 ELSE 4 END,
		   created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTasks(rows)
}

// ListCompleted returns the user's most recently completed tasks.
func (s *Store) ListCompleted(ctx context.Context, userID int64, limit int) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, description, deadline, priority, completed, completed_at, created_at, updated_at
		 FROM tasks
		 WHERE user_id = ? AND completed = 1
		 ORDER BY completed_at DESC
		 LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTasks(rows)
}

// Complete marks a pending task as done. Returns false when the task does
// not exist, belongs to someone else, or is already completed.
func (s *Store) Complete(ctx context.Context, taskID string, userID int64) (bool, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET completed = 1, completed_at = ?, updated_at = ?
		 WHERE id = ? AND user_id = ? AND completed = 0`,
		now, now, taskID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to complete task: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected > 0 {
		s.log.Info("task completed",
			slog.String("task_id", taskID),
			slog.Int64("user_id", userID))
	}
	return affected > 0, nil
}

// Delete removes a task. Returns false when nothing matched.
func (s *Store) Delete(ctx context.Context, taskID string, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = ? AND user_id = ?`,
		taskID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected > 0 {
		s.log.Info("task deleted",
			slog.String("task_id", taskID),
			slog.Int64("user_id", userID))
	}
	return affected > 0, nil
}

// ClearCompleted deletes all of the user's completed tasks and returns how
// many were removed.
func (s *Store) ClearCompleted(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE user_id = ? AND completed = 1`,
		userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear completed tasks: %w", err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return count, nil
}

// Stats aggregates the user's tasks created within the last windowDays days.
func (s *Store) Stats(ctx context.Context, userID int64, windowDays int) (*task.Stats, error) {
	since := time.Now().UTC().AddDate(0, 0, -windowDays)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, description, deadline, priority, completed, completed_at, created_at, updated_at
		 FROM tasks
		 WHERE user_id = ? AND created_at >= ?`,
		userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks for stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tasks, err := collectTasks(rows)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := now.AddDate(0, 0, -7)

	stats := &task.Stats{Total: len(tasks)}
	for i := range tasks {
		t := &tasks[i]

		if t.Completed {
			stats.Completed++
			if t.CompletedAt != nil {
				if !t.CompletedAt.Before(todayStart) {
					stats.CompletedToday++
				}
				if !t.CompletedAt.Before(weekStart) {
					stats.CompletedThisWeek++
				}
			}
		} else {
			stats.Pending++
			if t.Overdue(now) {
				stats.Overdue++
			}
		}

		switch t.Priority {
		case task.PriorityHigh:
			stats.ByPriority.High++
		case task.PriorityMedium:
			stats.ByPriority.Medium++
		case task.PriorityLow:
			stats.ByPriority.Low++
		}
	}

	return stats, nil
}

// ActiveUsers returns the ids of users that currently have pending tasks.
func (s *Store) ActiveUsers(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM tasks WHERE completed = 0`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	var (
		t           task.Task
		deadline    sql.NullTime
		completedAt sql.NullTime
		completed   int
	)

	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &deadline,
		&t.Priority, &completed, &completedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	t.Completed = completed != 0
	if deadline.Valid {
		dl := deadline.Time.UTC()
		t.Deadline = &dl
	}
	if completedAt.Valid {
		ca := completedAt.Time.UTC()
		t.CompletedAt = &ca
	}

	return &t, nil
}

func collectTasks(rows *sql.Rows) ([]task.Task, error) {
	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}
