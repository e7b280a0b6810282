package repository

import (
	"context"
	"testing"
	"time"

	"ufit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRepository_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "resetme", Email: "resetme@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)

	t.Run("issue and consume", func(t *testing.T) {
		token, err := repo.Issue(ctx, user.ID, 30*time.Minute)
		require.NoError(t, err)
		assert.Len(t, token.Token, 36)
		assert.True(t, token.Usable(time.Now()))

		consumed, err := repo.Consume(ctx, token.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, consumed.UserID)
		assert.NotNil(t, consumed.UsedAt)
	})

	t.Run("second consume fails", func(t *testing.T) {
		token, err := repo.Issue(ctx, user.ID, 30*time.Minute)
		require.NoError(t, err)

		_, err = repo.Consume(ctx, token.Token)
		require.NoError(t, err)

		_, err = repo.Consume(ctx, token.Token)
		require.Error(t, err)
		assert.True(t, models.HasCode(err, models.CodeValidation))
	})

	t.Run("unknown token fails", func(t *testing.T) {
		_, err := repo.Consume(ctx, "00000000-0000-0000-0000-000000000000")
		require.Error(t, err)
		assert.True(t, models.HasCode(err, models.CodeValidation))
	})

	t.Run("expired token fails", func(t *testing.T) {
		token, err := repo.Issue(ctx, user.ID, -time.Minute)
		require.NoError(t, err)

		_, err = repo.Consume(ctx, token.Token)
		require.Error(t, err)
		assert.True(t, models.HasCode(err, models.CodeValidation))
	})

	t.Run("issuing invalidates outstanding tokens", func(t *testing.T) {
		first, err := repo.Issue(ctx, user.ID, 30*time.Minute)
		require.NoError(t, err)
		second, err := repo.Issue(ctx, user.ID, 30*time.Minute)
		require.NoError(t, err)

		_, err = repo.Consume(ctx, first.Token)
		require.Error(t, err)

		_, err = repo.Consume(ctx, second.Token)
		require.NoError(t, err)
	})

	t.Run("purge removes expired rows", func(t *testing.T) {
		_, err := repo.Issue(ctx, user.ID, -time.Hour)
		require.NoError(t, err)

		n, err := repo.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))
	})
}
