package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/taskshare/taskshare/internal/model"
)

// Common errors for task list repository operations.
var (
	ErrTaskListNotFound = errors.New("task list not found")
)

const taskListColumns = `id, name, user_id, created_at, updated_at`

// CreateTaskList inserts a new task list.
func (r *Repository) CreateTaskList(ctx context.Context, list *model.TaskList) error {
	query := `
		INSERT INTO task_lists (id, name, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		list.ID,
		list.Name,
		list.OwnerID,
		list.CreatedAt,
		list.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create task list: %w", err)
	}

	return nil
}

// GetTaskListByID retrieves a task list by its ID.
func (r *Repository) GetTaskListByID(ctx context.Context, id string) (*model.TaskList, error) {
	query := `SELECT ` + taskListColumns + ` FROM task_lists WHERE id = $1`

	list, err := scanTaskList(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskListNotFound
		}
		return nil, fmt.Errorf("failed to get task list by ID: %w", err)
	}

	return list, nil
}

// GetTaskListsByIDs loads the given lists keyed by ID. Unknown IDs are skipped.
func (r *Repository) GetTaskListsByIDs(ctx context.Context, ids []string) (map[string]*model.TaskList, error) {
	lists := make(map[string]*model.TaskList, len(ids))
	if len(ids) == 0 {
		return lists, nil
	}

	query := `SELECT ` + taskListColumns + ` FROM task_lists WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get task lists by IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		list, err := scanTaskList(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task list: %w", err)
		}
		lists[list.ID] = list
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task lists: %w", err)
	}

	return lists, nil
}

// ListTaskListsByOwner returns the lists owned by ownerID, oldest first.
func (r *Repository) ListTaskListsByOwner(ctx context.Context, ownerID string) ([]*model.TaskList, error) {
	query := `
		SELECT ` + taskListColumns + `
		FROM task_lists
		WHERE user_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task lists: %w", err)
	}
	defer rows.Close()

	lists := make([]*model.TaskList, 0)
	for rows.Next() {
		list, err := scanTaskList(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task list: %w", err)
		}
		lists = append(lists, list)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task lists: %w", err)
	}

	return lists, nil
}

// UpdateTaskList renames a list. The owner column is never written.
func (r *Repository) UpdateTaskList(ctx context.Context, list *model.TaskList) error {
	query := `
		UPDATE task_lists
		SET name = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, list.ID, list.Name, list.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update task list: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTaskListNotFound
	}

	return nil
}

// DeleteTaskList removes a list. Its tasks and shares go with it through
// ON DELETE CASCADE.
func (r *Repository) DeleteTaskList(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM task_lists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task list: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTaskListNotFound
	}

	return nil
}

func scanTaskList(row pgx.Row) (*model.TaskList, error) {
	var list model.TaskList
	err := row.Scan(
		&list.ID,
		&list.Name,
		&list.OwnerID,
		&list.CreatedAt,
		&list.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &list, nil
}
