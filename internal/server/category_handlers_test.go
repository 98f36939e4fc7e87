package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryCRUD_AdminOnlyWrites(t *testing.T) {
	s, app := newTestServer(t)
	admin := createUser(t, s, "admin", true)
	pleb := createUser(t, s, "pleb", false)

	// Non-admin writes are forbidden.
	resp, _ := doJSON(t, app, http.MethodPost, "/api/categories", authHeader(t, s, pleb), fiber.Map{
		"name": "Gaming",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/api/categories", authHeader(t, s, admin), fiber.Map{
		"name":        "Gaming & Esports",
		"description": "All things games",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "gaming-esports", body["slug"])
	catID := uint(body["id"].(float64))

	// Duplicate name conflicts.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/categories", authHeader(t, s, admin), fiber.Map{
		"name": "Gaming & Esports",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Update renames and re-slugs.
	resp, body = doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/categories/%d", catID),
		authHeader(t, s, admin), fiber.Map{"name": "Retro Gaming"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "retro-gaming", body["slug"])

	resp, _ = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/categories/%d", catID),
		authHeader(t, s, admin), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/categories/%d", catID),
		authHeader(t, s, admin), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCategoryPublicReads(t *testing.T) {
	s, app := newTestServer(t)
	admin := createUser(t, s, "admin", true)

	doJSON(t, app, http.MethodPost, "/api/categories", authHeader(t, s, admin), fiber.Map{"name": "Music"})
	doJSON(t, app, http.MethodPost, "/api/categories", authHeader(t, s, admin), fiber.Map{"name": "Art"})

	// List is public and sorted by name.
	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var categories []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &categories))
	require.Len(t, categories, 2)
	assert.Equal(t, "Art", categories[0]["name"])
	assert.Equal(t, "Music", categories[1]["name"])

	// Lookup by slug is public too.
	respBySlug, body := doJSON(t, app, http.MethodGet, "/api/categories/music", "", nil)
	require.Equal(t, http.StatusOK, respBySlug.StatusCode)
	assert.Equal(t, "Music", body["name"])

	respBySlug, _ = doJSON(t, app, http.MethodGet, "/api/categories/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, respBySlug.StatusCode)
}

func TestDeleteCategory_InUseConflicts(t *testing.T) {
	s, app := newTestServer(t)
	admin := createUser(t, s, "admin", true)
	bob := createUser(t, s, "bob", false)

	convID := createGroupConversation(t, app, s, admin, []uint{bob.ID})
	require.NotZero(t, convID)

	// The category backing the conversation cannot be deleted.
	var catID uint
	row := s.db.Raw("SELECT category_id FROM conversations WHERE id = ?", convID).Row()
	require.NoError(t, row.Scan(&catID))

	resp, _ := doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/categories/%d", catID),
		authHeader(t, s, admin), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
