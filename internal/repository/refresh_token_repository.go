package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/persistence"
)

// RefreshTokenRepository persists at most one refresh token per user.
type RefreshTokenRepository interface {
	FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	FindByUser(ctx context.Context, userID string) (*domain.RefreshToken, error)
	// Save inserts or overwrites the record keyed by UserID; the last writer wins.
	Save(ctx context.Context, token *domain.RefreshToken) error
	Delete(ctx context.Context, token *domain.RefreshToken) error
	DeleteByUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type refreshTokenRepository struct {
	pool *pgxpool.Pool
}

// NewRefreshTokenRepository returns a Postgres-backed implementation.
func NewRefreshTokenRepository(pool *pgxpool.Pool) RefreshTokenRepository {
	return &refreshTokenRepository{pool: pool}
}

func (r *refreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	const query = `
        SELECT id, user_id, token, expires_at, created_at, updated_at
        FROM refresh_tokens WHERE token=$1`

	return scanRefreshToken(persistence.Conn(ctx, r.pool).QueryRow(ctx, query, token))
}

func (r *refreshTokenRepository) FindByUser(ctx context.Context, userID string) (*domain.RefreshToken, error) {
	const query = `
        SELECT id, user_id, token, expires_at, created_at, updated_at
        FROM refresh_tokens WHERE user_id=$1`

	return scanRefreshToken(persistence.Conn(ctx, r.pool).QueryRow(ctx, query, userID))
}

func (r *refreshTokenRepository) Save(ctx context.Context, token *domain.RefreshToken) error {
	const query = `
        INSERT INTO refresh_tokens (user_id, token, expires_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id) DO UPDATE
            SET token=EXCLUDED.token, expires_at=EXCLUDED.expires_at, updated_at=NOW()
        RETURNING id, created_at, updated_at`

	if err := persistence.Conn(ctx, r.pool).QueryRow(ctx, query,
		token.UserID,
		token.Token,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt, &token.UpdatedAt); err != nil {
		return fmt.Errorf("upsert refresh token: %w", err)
	}
	return nil
}

func (r *refreshTokenRepository) Delete(ctx context.Context, token *domain.RefreshToken) error {
	const query = `DELETE FROM refresh_tokens WHERE token=$1`

	if _, err := persistence.Conn(ctx, r.pool).Exec(ctx, query, token.Token); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (r *refreshTokenRepository) DeleteByUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM refresh_tokens WHERE user_id=$1`

	if _, err := persistence.Conn(ctx, r.pool).Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("delete refresh token by user: %w", err)
	}
	return nil
}

func (r *refreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE expires_at < $1`

	cmd, err := persistence.Conn(ctx, r.pool).Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func scanRefreshToken(row pgx.Row) (*domain.RefreshToken, error) {
	var token domain.RefreshToken
	if err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.Token,
		&token.ExpiresAt,
		&token.CreatedAt,
		&token.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}
	return &token, nil
}
