package repository

import (
	"context"
	"testing"

	"parley/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("Create and GetByID", func(t *testing.T) {
		user := &models.User{Username: "alice", Email: "alice@example.com", Password: "hash"}
		require.NoError(t, repo.Create(ctx, user))
		assert.NotZero(t, user.ID)

		fetched, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", fetched.Username)
	})

	t.Run("duplicate username is a validation error", func(t *testing.T) {
		dup := &models.User{Username: "alice", Email: "other@example.com", Password: "hash"}
		err := repo.Create(ctx, dup)
		require.Error(t, err)
		appErr, ok := err.(*models.AppError)
		require.True(t, ok)
		assert.Equal(t, models.CodeValidation, appErr.Code)
	})

	t.Run("GetByEmail returns nil when missing", func(t *testing.T) {
		user, err := repo.GetByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("GetByID not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 9999)
		require.Error(t, err)
		appErr, ok := err.(*models.AppError)
		require.True(t, ok)
		assert.Equal(t, models.CodeNotFound, appErr.Code)
	})

	t.Run("GetByIDs skips missing", func(t *testing.T) {
		bob := &models.User{Username: "bob", Email: "bob@example.com", Password: "hash"}
		require.NoError(t, repo.Create(ctx, bob))

		users, err := repo.GetByIDs(ctx, []uint{bob.ID, 9999})
		require.NoError(t, err)
		assert.Len(t, users, 1)
		assert.Equal(t, "bob", users[0].Username)
	})
}
