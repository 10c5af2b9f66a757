package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/auth-service/internal/domain"
)

const (
	redisUserKeyPrefix  = "auth:refresh:user:"
	redisTokenKeyPrefix = "auth:refresh:token:"

	// Keys outlive the record expiry by this much so that an expired record is
	// still found, and removed, by the next refresh attempt.
	defaultRedisExpiryGrace = 24 * time.Hour

	redisWatchRetries = 3
)

type redisRefreshRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type redisRefreshTokenRepository struct {
	client *redis.Client
	grace  time.Duration
	now    func() time.Time
}

// NewRedisRefreshTokenRepository stores one record per user under
// auth:refresh:user:<id> with a reverse index auth:refresh:token:<token>.
func NewRedisRefreshTokenRepository(client *redis.Client) RefreshTokenRepository {
	return &redisRefreshTokenRepository{client: client, grace: defaultRedisExpiryGrace, now: time.Now}
}

func (r *redisRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	userID, err := r.client.Get(ctx, redisTokenKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get refresh token index: %w", err)
	}

	record, err := r.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record.Token != token {
		return nil, domain.ErrNotFound
	}
	return record, nil
}

func (r *redisRefreshTokenRepository) FindByUser(ctx context.Context, userID string) (*domain.RefreshToken, error) {
	raw, err := r.client.Get(ctx, redisUserKeyPrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	return decodeRedisRecord(raw)
}

func (r *redisRefreshTokenRepository) Save(ctx context.Context, token *domain.RefreshToken) error {
	now := r.now().UTC()

	prev, err := r.FindByUser(ctx, token.UserID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	token.UpdatedAt = now
	if prev != nil {
		token.ID = prev.ID
		token.CreatedAt = prev.CreatedAt
	} else {
		token.ID = uuid.NewString()
		token.CreatedAt = now
	}

	payload, err := json.Marshal(redisRefreshRecord{
		ID:        token.ID,
		UserID:    token.UserID,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
		CreatedAt: token.CreatedAt,
		UpdatedAt: token.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode refresh token: %w", err)
	}

	ttl := token.ExpiresAt.Sub(now) + r.grace
	if ttl <= 0 {
		ttl = r.grace
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if prev != nil && prev.Token != token.Token {
			pipe.Del(ctx, redisTokenKeyPrefix+prev.Token)
		}
		pipe.Set(ctx, redisUserKeyPrefix+token.UserID, payload, ttl)
		pipe.Set(ctx, redisTokenKeyPrefix+token.Token, token.UserID, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// Delete removes the record only while it still holds token.Token, so a
// session written by a later login survives.
func (r *redisRefreshTokenRepository) Delete(ctx context.Context, token *domain.RefreshToken) error {
	_, err := r.deleteIf(ctx, token.UserID, func(current *domain.RefreshToken) bool {
		return current.Token == token.Token
	})
	return err
}

func (r *redisRefreshTokenRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.deleteIf(ctx, userID, func(*domain.RefreshToken) bool { return true })
	return err
}

func (r *redisRefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64
	iter := r.client.Scan(ctx, 0, redisUserKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		userID := strings.TrimPrefix(iter.Val(), redisUserKeyPrefix)
		ok, err := r.deleteIf(ctx, userID, func(current *domain.RefreshToken) bool {
			return current.IsExpired(now)
		})
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scan refresh tokens: %w", err)
	}
	return deleted, nil
}

// deleteIf removes the user's record and its token index when match accepts
// the stored record. The read and the delete run under WATCH on the record
// key; a concurrent write aborts the MULTI and the check is repeated.
func (r *redisRefreshTokenRepository) deleteIf(ctx context.Context, userID string, match func(*domain.RefreshToken) bool) (bool, error) {
	userKey := redisUserKeyPrefix + userID

	for attempt := 0; attempt < redisWatchRetries; attempt++ {
		var deleted bool
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			deleted = false
			raw, err := tx.Get(ctx, userKey).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return nil
				}
				return err
			}
			current, err := decodeRedisRecord(raw)
			if err != nil {
				return err
			}
			if !match(current) {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, userKey, redisTokenKeyPrefix+current.Token)
				return nil
			})
			if err == nil {
				deleted = true
			}
			return err
		}, userKey)

		switch {
		case err == nil:
			return deleted, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		default:
			return false, fmt.Errorf("delete refresh token: %w", err)
		}
	}
	return false, fmt.Errorf("delete refresh token: %w", redis.TxFailedErr)
}

func decodeRedisRecord(raw []byte) (*domain.RefreshToken, error) {
	var rec redisRefreshRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode refresh token: %w", err)
	}
	return &domain.RefreshToken{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Token:     rec.Token,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}
