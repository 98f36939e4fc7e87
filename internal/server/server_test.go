package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"parley/internal/config"
	"parley/internal/database"
	"parley/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestServer builds a full Server over an in-memory sqlite database with
// Redis absent. Rate limiting is bypassed because APP_ENV is "test".
func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.AllModels()...))

	cfg := &config.Config{
		JWTSecret:            "test-secret-key-for-handler-tests",
		Port:                 "0",
		Env:                  "test",
		ImageUploadDir:       t.TempDir(),
		ImageBaseURL:         "/media/images",
		ImageMaxUploadSizeMB: 5,
	}

	s, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app
}

// createUser inserts a user with a bcrypt-hashed password and returns it.
func createUser(t *testing.T, s *Server, username string, admin bool) *models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("Sup3rSecret!"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(hashed),
		IsAdmin:  admin,
	}
	require.NoError(t, s.db.Create(user).Error)
	return user
}

// authHeader returns a Bearer token header value for the given user.
func authHeader(t *testing.T, s *Server, user *models.User) string {
	t.Helper()
	token, err := s.generateToken(user.ID, user.Username)
	require.NoError(t, err)
	return "Bearer " + token
}

// doJSON performs a JSON request against the test app and decodes the body.
func doJSON(t *testing.T, app *fiber.App, method, target, auth string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	if len(raw) > 0 {
		// Some endpoints return arrays; callers decode those themselves.
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

// createGroupConversation creates a group conversation via the API and
// returns its ID.
func createGroupConversation(t *testing.T, app *fiber.App, s *Server, creator *models.User, memberIDs []uint) uint {
	t.Helper()

	category := &models.ConversationCategory{Name: fmt.Sprintf("Cat %s %d", t.Name(), len(memberIDs)), Slug: fmt.Sprintf("cat-%d-%d", creator.ID, len(memberIDs))}
	require.NoError(t, s.db.Create(category).Error)

	resp, body := doJSON(t, app, http.MethodPost, "/api/conversations", authHeader(t, s, creator), fiber.Map{
		"type":            "group",
		"name":            "Test Room",
		"category_id":     category.ID,
		"participant_ids": memberIDs,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotNil(t, body["id"])
	return uint(body["id"].(float64))
}

func TestHealthEndpoints(t *testing.T) {
	_, app := newTestServer(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "healthy", body["status"])
}

func TestAuthRequired_RejectsMissingAndBadTokens(t *testing.T) {
	_, app := newTestServer(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/conversations", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/conversations", "Bearer not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
