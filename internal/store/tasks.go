package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/billlzzz10/unicornxos/internal/domain"
)

const taskColumns = "id, title, description, completed, priority, due_date, project_id, created_at, updated_at"

// CreateTask inserts t with a fresh id and returns it. Priority defaults
// to medium.
func (s *Store) CreateTask(ctx context.Context, t domain.Task) (*domain.Task, error) {
	if err := normalizeTask(&t); err != nil {
		return nil, err
	}
	now := s.now()
	t.ID = s.newID()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx,
		"INSERT INTO tasks ("+taskColumns+") VALUES (:id, :title, :description, :completed, :priority, :due_date, :project_id, :created_at, :updated_at)",
		&t,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return &t, nil
}

// GetTask retrieves a task by id or unique id prefix
func (s *Store) GetTask(ctx context.Context, idOrPrefix string) (*domain.Task, error) {
	id, err := s.resolveID(ctx, "tasks", idOrPrefix)
	if err != nil {
		return nil, err
	}
	return getTask(ctx, s.db, id)
}

// ListTasks returns open tasks first, then by creation time
func (s *Store) ListTasks(ctx context.Context) ([]domain.Task, error) {
	tasks := []domain.Task{}
	err := s.db.SelectContext(ctx, &tasks,
		"SELECT "+taskColumns+" FROM tasks ORDER BY completed, created_at, id")
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask overwrites the editable fields of the task identified by t.ID
func (s *Store) UpdateTask(ctx context.Context, t domain.Task) (*domain.Task, error) {
	id, err := s.resolveID(ctx, "tasks", t.ID)
	if err != nil {
		return nil, err
	}
	if err := normalizeTask(&t); err != nil {
		return nil, err
	}
	t.ID = id
	t.UpdatedAt = s.now()

	_, err = s.db.NamedExecContext(ctx, `UPDATE tasks SET
		title = :title, description = :description, completed = :completed, priority = :priority,
		due_date = :due_date, project_id = :project_id, updated_at = :updated_at
		WHERE id = :id`, &t)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetTask(ctx, id)
}

// ToggleTask flips the completion flag and returns the updated task
func (s *Store) ToggleTask(ctx context.Context, idOrPrefix string) (*domain.Task, error) {
	id, err := s.resolveID(ctx, "tasks", idOrPrefix)
	if err != nil {
		return nil, err
	}

	var out *domain.Task
	err = withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE tasks SET completed = NOT completed, updated_at = ? WHERE id = ?",
			s.now(), id,
		); err != nil {
			return fmt.Errorf("toggle task: %w", err)
		}
		t, err := getTask(ctx, tx, id)
		out = t
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTask removes a task by id or unique id prefix
func (s *Store) DeleteTask(ctx context.Context, idOrPrefix string) error {
	id, err := s.resolveID(ctx, "tasks", idOrPrefix)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// CompletedTasks counts completed tasks
func (s *Store) CompletedTasks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM tasks WHERE completed"); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

// CompletedTasksSince counts tasks completed (last updated) at or after since
func (s *Store) CompletedTasksSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM tasks WHERE completed AND updated_at >= ?", since.UTC())
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

func getTask(ctx context.Context, q sqlx.QueryerContext, id string) (*domain.Task, error) {
	var t domain.Task
	err := sqlx.GetContext(ctx, q, &t, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &t, nil
}

func normalizeTask(t *domain.Task) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return fmt.Errorf("%w: task title is required", ErrInvalid)
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: task priority %q", ErrInvalid, t.Priority)
	}
	return nil
}
