package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"parley/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRepository_CreateAndList(t *testing.T) {
	db := setupTestDB(t)
	convRepo := NewConversationRepository(db)
	msgRepo := NewMessageRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	key := models.DirectKeyFor(alice.ID, bob.ID)
	conv := &models.Conversation{Type: models.ConversationTypeDirect, DirectKey: &key}
	require.NoError(t, convRepo.CreateWithParticipants(ctx, conv, []uint{alice.ID, bob.ID}))

	for i := 0; i < 5; i++ {
		msg := &models.Message{
			ConversationID: conv.ID,
			UserID:         alice.ID,
			Body:           fmt.Sprintf("message %d", i),
			CreatedAt:      time.Now().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, msgRepo.Create(ctx, msg))
		assert.NotZero(t, msg.ID)
	}

	t.Run("newest first with paging", func(t *testing.T) {
		page, err := msgRepo.List(ctx, conv.ID, 2, 0)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "message 4", page[0].Body)
		assert.Equal(t, "message 3", page[1].Body)

		next, err := msgRepo.List(ctx, conv.ID, 2, 2)
		require.NoError(t, err)
		require.Len(t, next, 2)
		assert.Equal(t, "message 2", next[0].Body)
	})

	t.Run("count", func(t *testing.T) {
		n, err := msgRepo.Count(ctx, conv.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 5, n)
	})

	t.Run("sender is preloaded", func(t *testing.T) {
		page, err := msgRepo.List(ctx, conv.ID, 1, 0)
		require.NoError(t, err)
		require.Len(t, page, 1)
		require.NotNil(t, page[0].User)
		assert.Equal(t, "alice", page[0].User.Username)
	})
}

func TestMessageRepository_UnreadCount(t *testing.T) {
	db := setupTestDB(t)
	convRepo := NewConversationRepository(db)
	msgRepo := NewMessageRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	key := models.DirectKeyFor(alice.ID, bob.ID)
	conv := &models.Conversation{Type: models.ConversationTypeDirect, DirectKey: &key}
	require.NoError(t, convRepo.CreateWithParticipants(ctx, conv, []uint{alice.ID, bob.ID}))

	base := time.Now().UTC().Add(-time.Hour)
	post := func(userID uint, at time.Time) {
		require.NoError(t, msgRepo.Create(ctx, &models.Message{
			ConversationID: conv.ID,
			UserID:         userID,
			Body:           "hi",
			CreatedAt:      at,
		}))
	}
	post(bob.ID, base)
	post(bob.ID, base.Add(10*time.Minute))
	post(alice.ID, base.Add(20*time.Minute))
	post(bob.ID, base.Add(30*time.Minute))

	t.Run("never read counts everything from others", func(t *testing.T) {
		n, err := msgRepo.UnreadCount(ctx, conv.ID, alice.ID, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
	})

	t.Run("own messages are never unread", func(t *testing.T) {
		n, err := msgRepo.UnreadCount(ctx, conv.ID, bob.ID, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	t.Run("since cuts off older messages", func(t *testing.T) {
		since := base.Add(15 * time.Minute)
		n, err := msgRepo.UnreadCount(ctx, conv.ID, alice.ID, &since)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})
}

func TestMessageRepository_CreateBumpsConversation(t *testing.T) {
	db := setupTestDB(t)
	convRepo := NewConversationRepository(db)
	msgRepo := NewMessageRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	key := models.DirectKeyFor(alice.ID, bob.ID)
	conv := &models.Conversation{Type: models.ConversationTypeDirect, DirectKey: &key}
	require.NoError(t, convRepo.CreateWithParticipants(ctx, conv, []uint{alice.ID, bob.ID}))

	future := time.Now().Add(time.Hour)
	require.NoError(t, msgRepo.Create(ctx, &models.Message{
		ConversationID: conv.ID,
		UserID:         alice.ID,
		Body:           "bump",
		CreatedAt:      future,
	}))

	fetched, err := convRepo.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, future, fetched.UpdatedAt, time.Second)
}
