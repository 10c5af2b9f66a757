package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/domain"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisRefreshTokenRepository(t *testing.T) {
	_, client := newTestRedis(t)
	runRefreshTokenContract(t, NewRedisRefreshTokenRepository(client), "user-1", "user-2", "user-3")
}

func TestRedisRefreshTokenRepository_KeysAndTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRedisRefreshTokenRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domain.NewRefreshToken("u1", "tok-1", time.Now().Add(time.Hour))))

	assert.True(t, mr.Exists(redisUserKeyPrefix+"u1"))
	owner, err := mr.Get(redisTokenKeyPrefix + "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", owner)

	ttl := mr.TTL(redisUserKeyPrefix + "u1")
	assert.Greater(t, ttl, defaultRedisExpiryGrace)
	assert.LessOrEqual(t, ttl, time.Hour+defaultRedisExpiryGrace)

	require.NoError(t, repo.Save(ctx, domain.NewRefreshToken("u1", "tok-2", time.Now().Add(time.Hour))))
	assert.False(t, mr.Exists(redisTokenKeyPrefix+"tok-1"), "previous token index must be removed")
	assert.True(t, mr.Exists(redisTokenKeyPrefix+"tok-2"))
}

func TestRedisRefreshTokenRepository_ExpiredRecordSurvivesUntilGraceEnds(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRedisRefreshTokenRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domain.NewRefreshToken("u1", "tok", time.Now().Add(time.Minute))))

	mr.FastForward(2 * time.Minute)
	record, err := repo.FindByToken(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, record.IsExpired(time.Now().Add(2*time.Minute)))

	mr.FastForward(defaultRedisExpiryGrace)
	_, err = repo.FindByToken(ctx, "tok")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisRefreshTokenRepository_StaleIndexIsIgnored(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRedisRefreshTokenRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domain.NewRefreshToken("u1", "tok-new", time.Now().Add(time.Hour))))
	require.NoError(t, mr.Set(redisTokenKeyPrefix+"tok-old", "u1"))

	_, err := repo.FindByToken(ctx, "tok-old")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisRefreshTokenRepository_ConnectionFailure(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	repo := NewRedisRefreshTokenRepository(client)

	_, err := repo.FindByToken(context.Background(), "tok")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisRefreshTokenRepository_DeleteExpiredSparesRenewedSession(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRedisRefreshTokenRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domain.NewRefreshToken("u1", "tok-old", time.Now().Add(-time.Minute))))
	require.NoError(t, repo.Save(ctx, domain.NewRefreshToken("u1", "tok-new", time.Now().Add(time.Hour))))

	deleted, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
	assert.True(t, mr.Exists(redisUserKeyPrefix+"u1"))
	assert.True(t, mr.Exists(redisTokenKeyPrefix+"tok-new"))
}
