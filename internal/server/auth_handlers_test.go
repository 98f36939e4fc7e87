package server

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignup(t *testing.T) {
	s, app := newTestServer(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/signup", "", fiber.Map{
		"username": "newuser",
		"email":    "newuser@example.com",
		"password": "Sup3rSecret!",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, body["token"])

	user := body["user"].(map[string]interface{})
	assert.Equal(t, "newuser", user["username"])
	// Password hash must never be serialized.
	_, exposed := user["password"]
	assert.False(t, exposed)

	// Same email again conflicts.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/auth/signup", "", fiber.Map{
		"username": "otheruser",
		"email":    "newuser@example.com",
		"password": "Sup3rSecret!",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	_ = s
}

func TestSignup_RejectsInvalidInput(t *testing.T) {
	_, app := newTestServer(t)

	tests := []struct {
		name string
		body fiber.Map
	}{
		{"missing fields", fiber.Map{"username": "u"}},
		{"bad email", fiber.Map{"username": "validname", "email": "not-an-email", "password": "Sup3rSecret!"}},
		{"weak password", fiber.Map{"username": "validname", "email": "a@b.com", "password": "short"}},
		{"bad username", fiber.Map{"username": "x", "email": "a@b.com", "password": "Sup3rSecret!"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/signup", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestLogin(t *testing.T) {
	s, app := newTestServer(t)
	user := createUser(t, s, "loginuser", false)

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    user.Email,
		"password": "Sup3rSecret!",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])

	// Wrong password and unknown email both return 401 with no distinction.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    user.Email,
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "ghost@example.com",
		"password": "Sup3rSecret!",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefresh(t *testing.T) {
	s, app := newTestServer(t)
	user := createUser(t, s, "refreshuser", false)

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/refresh", authHeader(t, s, user), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])
}

func TestLogout_WithoutRedisStillSucceeds(t *testing.T) {
	s, app := newTestServer(t)
	user := createUser(t, s, "logoutuser", false)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/logout", authHeader(t, s, user), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIssueWSTicket_RequiresRedis(t *testing.T) {
	s, app := newTestServer(t)
	user := createUser(t, s, "wsuser", false)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/ws/ticket", authHeader(t, s, user), nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
