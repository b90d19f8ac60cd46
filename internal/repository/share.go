package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taskshare/taskshare/internal/model"
)

// Common errors for share repository operations.
var (
	ErrShareNotFound = errors.New("share not found")
)

const shareColumns = `id, task_list_id, user_id, is_edit, created_at, updated_at`

// UpsertShare creates the (list, user) share or updates is_edit on the
// existing row. Concurrent calls converge on the primary key; the last
// writer's is_edit wins. The stored row is written back into share.
func (r *Repository) UpsertShare(ctx context.Context, share *model.Share) error {
	query := `
		INSERT INTO task_list_shares (id, task_list_id, user_id, is_edit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (task_list_id, user_id)
		DO UPDATE SET is_edit = EXCLUDED.is_edit, updated_at = EXCLUDED.updated_at
		RETURNING ` + shareColumns

	stored, err := scanShare(r.pool.QueryRow(ctx, query,
		share.ID,
		share.TaskListID,
		share.UserID,
		share.CanEdit,
		share.UpdatedAt,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if isForeignKeyViolation(err) && errors.As(err, &pgErr) {
			if pgErr.ConstraintName == "task_list_shares_user_id_fkey" {
				return ErrUserNotFound
			}
			return ErrTaskListNotFound
		}
		return fmt.Errorf("failed to upsert share: %w", err)
	}

	*share = *stored
	return nil
}

// FindShare returns the share of taskListID with userID.
func (r *Repository) FindShare(ctx context.Context, taskListID, userID string) (*model.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM task_list_shares WHERE task_list_id = $1 AND user_id = $2`

	share, err := scanShare(r.pool.QueryRow(ctx, query, taskListID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShareNotFound
		}
		return nil, fmt.Errorf("failed to find share: %w", err)
	}

	return share, nil
}

// ListSharesForUser returns every share naming userID in insertion order.
func (r *Repository) ListSharesForUser(ctx context.Context, userID string) ([]*model.Share, error) {
	query := `
		SELECT ` + shareColumns + `
		FROM task_list_shares
		WHERE user_id = $1
		ORDER BY created_at, id
	`

	return r.queryShares(ctx, query, userID)
}

// ListSharesForTaskList returns every grantee row of a list in insertion order.
func (r *Repository) ListSharesForTaskList(ctx context.Context, taskListID string) ([]*model.Share, error) {
	query := `
		SELECT ` + shareColumns + `
		FROM task_list_shares
		WHERE task_list_id = $1
		ORDER BY created_at, id
	`

	return r.queryShares(ctx, query, taskListID)
}

// DeleteShare revokes userID's access to taskListID.
func (r *Repository) DeleteShare(ctx context.Context, taskListID, userID string) error {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM task_list_shares WHERE task_list_id = $1 AND user_id = $2`,
		taskListID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete share: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrShareNotFound
	}

	return nil
}

func (r *Repository) queryShares(ctx context.Context, query string, arg string) ([]*model.Share, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	defer rows.Close()

	shares := make([]*model.Share, 0)
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		shares = append(shares, share)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shares: %w", err)
	}

	return shares, nil
}

func scanShare(row pgx.Row) (*model.Share, error) {
	var share model.Share
	err := row.Scan(
		&share.ID,
		&share.TaskListID,
		&share.UserID,
		&share.CanEdit,
		&share.CreatedAt,
		&share.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &share, nil
}
