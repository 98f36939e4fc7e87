package service

import (
	"context"
	"testing"

	"parley/internal/models"
	"parley/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// testEnv wires real repositories over an in-memory database.
type testEnv struct {
	db           *gorm.DB
	convRepo     repository.ConversationRepository
	msgRepo      repository.MessageRepository
	userRepo     repository.UserRepository
	categoryRepo repository.CategoryRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.ConversationCategory{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.ConversationBan{},
		&models.Message{},
		&models.UploadedImage{},
	))

	return &testEnv{
		db:           db,
		convRepo:     repository.NewConversationRepository(db),
		msgRepo:      repository.NewMessageRepository(db),
		userRepo:     repository.NewUserRepository(db),
		categoryRepo: repository.NewCategoryRepository(db),
	}
}

func (e *testEnv) conversationService() *ConversationService {
	return NewConversationService(e.convRepo, e.msgRepo, e.userRepo, e.categoryRepo)
}

func (e *testEnv) messageService(pub Publisher) *MessageService {
	return NewMessageService(e.convRepo, e.msgRepo, e.userRepo, pub)
}

func (e *testEnv) user(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "x"}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) category(t *testing.T, name string) *models.ConversationCategory {
	t.Helper()
	c := &models.ConversationCategory{Name: name}
	require.NoError(t, e.db.Create(c).Error)
	return c
}

func (e *testEnv) group(t *testing.T, creator *models.User, cat *models.ConversationCategory, name string, members ...*models.User) *models.Conversation {
	t.Helper()
	ids := []uint{creator.ID}
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	conv := &models.Conversation{
		Type:        models.ConversationTypeGroup,
		Name:        &name,
		CategoryID:  &cat.ID,
		CreatedByID: &creator.ID,
	}
	require.NoError(t, e.convRepo.CreateWithParticipants(context.Background(), conv, ids))
	full, err := e.convRepo.GetByID(context.Background(), conv.ID)
	require.NoError(t, err)
	return full
}

func requireAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok, "expected *models.AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code)
}
