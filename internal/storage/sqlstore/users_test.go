package sqlstore

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyemirov/moviecatalog/internal/authkit"
)

func TestUserStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	users := openTestStore(t).Users()

	created, err := users.Create(ctx, "ann@example.com", "Ann", "hash")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Empty(t, created.RefreshTokenDigest)

	byEmail, err := users.FindByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	byID, err := users.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", byID.Name)

	_, err = users.FindByEmail(ctx, "ANN@example.com")
	require.ErrorIs(t, err, authkit.ErrUserNotFound)

	_, err = users.FindByID(ctx, "not-a-uuid")
	require.ErrorIs(t, err, authkit.ErrUserNotFound)
}

func TestUserStoreRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	users := openTestStore(t).Users()

	_, err := users.Create(ctx, "dup@example.com", "First", "hash")
	require.NoError(t, err)

	_, err = users.Create(ctx, "dup@example.com", "Second", "hash")
	require.ErrorIs(t, err, authkit.ErrDuplicateEmail)
}

func TestUserStoreRefreshTokenRotation(t *testing.T) {
	ctx := context.Background()
	users := openTestStore(t).Users()

	user, err := users.Create(ctx, "rot@example.com", "Rot", "hash")
	require.NoError(t, err)

	first := authkit.RefreshTokenDigest("first")
	second := authkit.RefreshTokenDigest("second")
	require.NoError(t, users.SetRefreshToken(ctx, user.ID, first))

	matches, err := users.RefreshTokenMatches(ctx, user.ID, first)
	require.NoError(t, err)
	assert.True(t, matches)

	rotated, err := users.RotateRefreshToken(ctx, user.ID, first, second)
	require.NoError(t, err)
	assert.True(t, rotated)

	replayed, err := users.RotateRefreshToken(ctx, user.ID, first, authkit.RefreshTokenDigest("third"))
	require.NoError(t, err)
	assert.False(t, replayed)

	matches, err = users.RefreshTokenMatches(ctx, user.ID, first)
	require.NoError(t, err)
	assert.False(t, matches)

	require.NoError(t, users.SetRefreshToken(ctx, user.ID, ""))
	matches, err = users.RefreshTokenMatches(ctx, user.ID, second)
	require.NoError(t, err)
	assert.False(t, matches)

	cleared, err := users.RotateRefreshToken(ctx, user.ID, "", second)
	require.NoError(t, err)
	assert.False(t, cleared)
}

func TestUserStoreSetRefreshTokenUnknownUser(t *testing.T) {
	users := openTestStore(t).Users()
	err := users.SetRefreshToken(context.Background(), uuid.NewString(), "digest")
	require.ErrorIs(t, err, authkit.ErrUserNotFound)

	matches, err := users.RefreshTokenMatches(context.Background(), uuid.NewString(), "digest")
	require.NoError(t, err)
	assert.False(t, matches)
}
