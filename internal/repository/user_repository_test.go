package repository

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/domain"
)

// userRow feeds scanUser the columns of one users row.
type userRow struct {
	role string
	err  error
}

func (r userRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	*dest[0].(*string) = "00000000-0000-0000-0000-000000000001"
	*dest[1].(*string) = "alice"
	*dest[2].(*string) = "a@x.io"
	*dest[3].(*string) = "hash"
	*dest[4].(*string) = r.role
	*dest[5].(*time.Time) = now
	*dest[6].(*time.Time) = now
	return nil
}

func TestScanUser_ParsesRole(t *testing.T) {
	user, err := scanUser(userRow{role: "ADMIN"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
	assert.Equal(t, "alice", user.Username)

	user, err = scanUser(userRow{role: "user"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, user.Role)
}

func TestScanUser_RejectsUnknownRole(t *testing.T) {
	_, err := scanUser(userRow{role: "ROOT"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestScanUser_NoRows(t *testing.T) {
	_, err := scanUser(userRow{err: pgx.ErrNoRows})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
