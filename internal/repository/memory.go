package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/auth-service/internal/domain"
)

// MemoryUserRepository keeps users in process memory. It enforces the same
// uniqueness rules as the Postgres schema.
type MemoryUserRepository struct {
	mu         sync.RWMutex
	byID       map[string]domain.User
	byUsername map[string]string
	byEmail    map[string]string
}

// NewMemoryUserRepository constructs an empty repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:       make(map[string]domain.User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

func (r *MemoryUserRepository) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUsername[username]
	return ok, nil
}

func (r *MemoryUserRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byEmail[email]
	return ok, nil
}

func (r *MemoryUserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUsername[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	user := r.byID[id]
	return &user, nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &user, nil
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUsername[user.Username]; ok {
		return domain.ErrDuplicateUsername
	}
	if _, ok := r.byEmail[user.Email]; ok {
		return domain.ErrDuplicateEmail
	}

	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.byID[user.ID] = *user
	r.byUsername[user.Username] = user.ID
	r.byEmail[user.Email] = user.ID
	return nil
}

// SetRole changes a stored user's role; used to seed administrators.
func (r *MemoryUserRepository) SetRole(username string, role domain.Role) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byUsername[username]
	if !ok {
		return false
	}
	user := r.byID[id]
	user.Role = role
	r.byID[id] = user
	return true
}

// MemoryRefreshTokenRepository keeps one refresh token per user in memory.
type MemoryRefreshTokenRepository struct {
	mu      sync.RWMutex
	byUser  map[string]domain.RefreshToken
	byToken map[string]string
}

// NewMemoryRefreshTokenRepository constructs an empty repository.
func NewMemoryRefreshTokenRepository() *MemoryRefreshTokenRepository {
	return &MemoryRefreshTokenRepository{
		byUser:  make(map[string]domain.RefreshToken),
		byToken: make(map[string]string),
	}
}

func (r *MemoryRefreshTokenRepository) FindByToken(_ context.Context, token string) (*domain.RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.byToken[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	record := r.byUser[userID]
	return &record, nil
}

func (r *MemoryRefreshTokenRepository) FindByUser(_ context.Context, userID string) (*domain.RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.byUser[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

func (r *MemoryRefreshTokenRepository) Save(_ context.Context, token *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if prev, ok := r.byUser[token.UserID]; ok {
		delete(r.byToken, prev.Token)
		token.ID = prev.ID
		token.CreatedAt = prev.CreatedAt
	} else {
		token.ID = uuid.NewString()
		token.CreatedAt = now
	}
	token.UpdatedAt = now

	r.byUser[token.UserID] = *token
	r.byToken[token.Token] = token.UserID
	return nil
}

func (r *MemoryRefreshTokenRepository) Delete(_ context.Context, token *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, ok := r.byToken[token.Token]
	if !ok {
		return nil
	}
	delete(r.byToken, token.Token)
	delete(r.byUser, userID)
	return nil
}

func (r *MemoryRefreshTokenRepository) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.byUser[userID]
	if !ok {
		return nil
	}
	delete(r.byToken, record.Token)
	delete(r.byUser, userID)
	return nil
}

func (r *MemoryRefreshTokenRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for userID, record := range r.byUser {
		if record.IsExpired(now) {
			delete(r.byToken, record.Token)
			delete(r.byUser, userID)
			deleted++
		}
	}
	return deleted, nil
}
