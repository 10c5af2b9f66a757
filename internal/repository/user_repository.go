package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/persistence"
)

const (
	pgUniqueViolation       = "23505"
	usersUsernameConstraint = "users_username_key"
	usersEmailConstraint    = "users_email_key"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE username=$1)`

	var exists bool
	if err := persistence.Conn(ctx, r.pool).QueryRow(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists by username: %w", err)
	}
	return exists, nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE email=$1)`

	var exists bool
	if err := persistence.Conn(ctx, r.pool).QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists by email: %w", err)
	}
	return exists, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (username, email, password_hash, role)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	err := persistence.Conn(ctx, r.pool).QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return mapUserWriteError(err)
	}
	return nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `
        SELECT id, username, email, password_hash, role, created_at, updated_at
        FROM users WHERE username=$1`

	return scanUser(persistence.Conn(ctx, r.pool).QueryRow(ctx, query, username))
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT id, username, email, password_hash, role, created_at, updated_at
        FROM users WHERE id=$1`

	return scanUser(persistence.Conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user domain.User
		role string
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	parsed, err := domain.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("scan user %s: %w", user.ID, err)
	}
	user.Role = parsed
	return &user, nil
}

// mapUserWriteError turns unique violations into the matching duplicate error.
func mapUserWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch pgErr.ConstraintName {
		case usersUsernameConstraint:
			return domain.ErrDuplicateUsername
		case usersEmailConstraint:
			return domain.ErrDuplicateEmail
		}
	}
	return fmt.Errorf("insert user: %w", err)
}
