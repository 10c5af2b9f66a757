package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spec-kit/auth-service/internal/domain"
)

// UserFinder is the lookup the authenticator needs from the credential store.
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
}

// Authenticator verifies a username/password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
}

// CredentialsAuthenticator checks passwords against stored hashes.
type CredentialsAuthenticator struct {
	users  UserFinder
	hasher PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

// NewCredentialsAuthenticator constructs an authenticator.
func NewCredentialsAuthenticator(users UserFinder, hasher PasswordHasher) *CredentialsAuthenticator {
	return &CredentialsAuthenticator{users: users, hasher: hasher}
}

// Authenticate returns domain.ErrInvalidCredentials for both unknown users and
// wrong passwords. Unknown users still pay for one hash comparison.
func (a *CredentialsAuthenticator) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := a.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = a.hasher.Compare(a.dummy(), password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := a.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}
	return user, nil
}

func (a *CredentialsAuthenticator) dummy() string {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = a.hasher.Hash("not-a-real-password")
	})
	return a.dummyHash
}
