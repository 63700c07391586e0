package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-notifier/internal/domain"
)

type tokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository returns a Postgres-backed implementation.
func NewTokenRepository(pool *pgxpool.Pool) TokenRepository {
	return &tokenRepository{pool: pool}
}

func (r *tokenRepository) Register(ctx context.Context, userID, token string) error {
	if err := requireKeys(userID, token); err != nil {
		return err
	}
	const query = `
        INSERT INTO device_tokens (token, user_id, saved_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, saved_at = EXCLUDED.saved_at`
	_, err := r.pool.Exec(ctx, query, token, userID)
	return err
}

func (r *tokenRepository) Delete(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	const query = `DELETE FROM device_tokens WHERE token=$1`
	cmd, err := r.pool.Exec(ctx, query, token)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *tokenRepository) TokensForUser(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, nil
	}
	const query = `SELECT token FROM device_tokens WHERE user_id=$1 ORDER BY saved_at, token`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *tokenRepository) OwnerOf(ctx context.Context, token string) (string, error) {
	const query = `SELECT user_id FROM device_tokens WHERE token=$1`
	var userID string
	if err := r.pool.QueryRow(ctx, query, token).Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return userID, nil
}

func (r *tokenRepository) Stats(ctx context.Context) (domain.TokenStats, error) {
	const query = `SELECT COUNT(DISTINCT user_id), COUNT(*) FROM device_tokens`
	var stats domain.TokenStats
	err := r.pool.QueryRow(ctx, query).Scan(&stats.TotalUsers, &stats.TotalTokens)
	return stats, err
}
