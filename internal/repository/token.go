package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taskshare/taskshare/internal/model"
)

// Common errors for access token repository operations.
var (
	ErrAccessTokenNotFound = errors.New("access token not found")
)

const accessTokenColumns = `id, user_id, token_hash, token_prefix, name, expires_at, last_used_at, created_at`

// CreateAccessToken inserts a new access token.
func (r *Repository) CreateAccessToken(ctx context.Context, token *model.AccessToken) error {
	query := `
		INSERT INTO access_tokens (id, user_id, token_hash, token_prefix, name, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.TokenPrefix,
		token.Name,
		token.ExpiresAt,
		token.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create access token: %w", err)
	}

	return nil
}

// GetAccessTokenByID retrieves an access token by its ID.
func (r *Repository) GetAccessTokenByID(ctx context.Context, id string) (*model.AccessToken, error) {
	query := `SELECT ` + accessTokenColumns + ` FROM access_tokens WHERE id = $1`

	token, err := scanAccessToken(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccessTokenNotFound
		}
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	return token, nil
}

// GetAccessTokensByPrefix retrieves all unexpired tokens matching a prefix.
// Used during authentication to find candidate tokens for verification.
func (r *Repository) GetAccessTokensByPrefix(ctx context.Context, prefix string) ([]*model.AccessToken, error) {
	query := `
		SELECT ` + accessTokenColumns + `
		FROM access_tokens
		WHERE token_prefix = $1 AND (expires_at IS NULL OR expires_at > $2)
	`

	rows, err := r.pool.Query(ctx, query, prefix, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to get access tokens by prefix: %w", err)
	}
	defer rows.Close()

	var tokens []*model.AccessToken
	for rows.Next() {
		token, err := scanAccessToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan access token: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating access tokens: %w", err)
	}

	return tokens, nil
}

// DeleteAccessTokensByUserID removes every token of a user and returns how many were deleted.
func (r *Repository) DeleteAccessTokensByUserID(ctx context.Context, userID string) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM access_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete access tokens: %w", err)
	}

	return result.RowsAffected(), nil
}

// UpdateAccessTokenLastUsed moves last_used_at forward to at. Older
// timestamps are ignored so out-of-order writers cannot rewind it.
// Should be called asynchronously after successful authentication.
func (r *Repository) UpdateAccessTokenLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE access_tokens SET last_used_at = GREATEST(last_used_at, $2) WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to update access token last used: %w", err)
	}

	return nil
}

func scanAccessToken(row pgx.Row) (*model.AccessToken, error) {
	var token model.AccessToken
	err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.TokenPrefix,
		&token.Name,
		&token.ExpiresAt,
		&token.LastUsedAt,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &token, nil
}
