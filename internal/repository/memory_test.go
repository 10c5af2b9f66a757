package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/domain"
)

func TestMemoryUserRepository_Uniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	alice := domain.NewUser("alice", "a@x.io", "hash")
	require.NoError(t, repo.Create(ctx, alice))
	assert.NotEmpty(t, alice.ID)

	assert.ErrorIs(t, repo.Create(ctx, domain.NewUser("alice", "other@x.io", "hash")), domain.ErrDuplicateUsername)
	assert.ErrorIs(t, repo.Create(ctx, domain.NewUser("bob", "a@x.io", "hash")), domain.ErrDuplicateEmail)

	exists, err := repo.ExistsByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsByEmail(ctx, "nobody@x.io")
	require.NoError(t, err)
	assert.False(t, exists)

	byName, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	byID, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, byName, byID)
	assert.Equal(t, domain.RoleUser, byID.Role)

	_, err = repo.FindByUsername(ctx, "bob")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryUserRepository_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Create(ctx, domain.NewUser("racer", "racer@x.io", "hash")); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
}

func TestMemoryUserRepository_SetRole(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	require.NoError(t, repo.Create(ctx, domain.NewUser("root", "root@x.io", "hash")))

	assert.True(t, repo.SetRole("root", domain.RoleAdmin))
	assert.False(t, repo.SetRole("ghost", domain.RoleAdmin))

	user, err := repo.FindByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
}

func TestMemoryRefreshTokenRepository(t *testing.T) {
	runRefreshTokenContract(t, NewMemoryRefreshTokenRepository(), "user-1", "user-2", "user-3")
}

// runRefreshTokenContract exercises behavior shared by every refresh token store.
func runRefreshTokenContract(t *testing.T, repo RefreshTokenRepository, user1, user2, user3 string) {
	t.Helper()
	ctx := context.Background()
	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	first := domain.NewRefreshToken(user1, "token-a", expiry)
	require.NoError(t, repo.Save(ctx, first))
	assert.NotEmpty(t, first.ID)

	found, err := repo.FindByToken(ctx, "token-a")
	require.NoError(t, err)
	assert.Equal(t, user1, found.UserID)
	assert.True(t, found.ExpiresAt.Equal(expiry))

	// upsert keeps the record identity and retires the old token value
	second := domain.NewRefreshToken(user1, "token-b", expiry.Add(time.Hour))
	require.NoError(t, repo.Save(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	_, err = repo.FindByToken(ctx, "token-a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	byUser, err := repo.FindByUser(ctx, user1)
	require.NoError(t, err)
	assert.Equal(t, "token-b", byUser.Token)

	require.NoError(t, repo.Delete(ctx, byUser))
	_, err = repo.FindByUser(ctx, user1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.DeleteByUser(ctx, user1), "deleting a missing record is not an error")

	require.NoError(t, repo.Save(ctx, domain.NewRefreshToken(user2, "token-c", time.Now().Add(-time.Minute))))
	require.NoError(t, repo.Save(ctx, domain.NewRefreshToken(user3, "token-d", time.Now().Add(time.Hour))))

	deleted, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindByToken(ctx, "token-c")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.FindByToken(ctx, "token-d")
	assert.NoError(t, err)

	// a record read before a newer login must not take the new session with it
	require.NoError(t, repo.Save(ctx, domain.NewRefreshToken(user1, "token-old", time.Now().Add(-time.Minute))))
	stale, err := repo.FindByToken(ctx, "token-old")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, domain.NewRefreshToken(user1, "token-fresh", time.Now().Add(time.Hour))))

	require.NoError(t, repo.Delete(ctx, stale))

	fresh, err := repo.FindByToken(ctx, "token-fresh")
	require.NoError(t, err, "deleting a superseded record must keep the current session")
	assert.Equal(t, user1, fresh.UserID)
	_, err = repo.FindByToken(ctx, "token-old")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
