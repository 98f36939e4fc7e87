package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"parley/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"userId", "user ID"},
		{"categoryId", "category ID"},
		{"slug", "slug"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, humanizeParam(tt.param))
	}
}

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"not found", models.NewNotFoundError("gone"), fiber.StatusNotFound},
		{"forbidden", models.NewForbiddenError("nope"), fiber.StatusForbidden},
		{"conflict", models.NewConflictError("dup"), fiber.StatusConflict},
		{"validation", models.NewValidationError("bad"), fiber.StatusUnprocessableEntity},
		{"unauthorized", models.NewUnauthorizedError("who"), fiber.StatusUnauthorized},
		{"internal", assert.AnError, fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mapServiceError(tt.err))
		})
	}
}

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		p := parsePagination(c, 50)
		return c.JSON(fiber.Map{"limit": p.Limit, "offset": p.Offset})
	})

	tests := []struct {
		query          string
		expectedLimit  int
		expectedOffset int
	}{
		{"", 50, 0},
		{"?limit=10&offset=5", 10, 5},
		{"?limit=-1&offset=-3", 50, 0},
		{"?limit=5000", maxPaginationLimit, 0},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		_ = resp.Body.Close()

		var body struct {
			Limit  int `json:"limit"`
			Offset int `json:"offset"`
		}
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, tt.expectedLimit, body.Limit, tt.query)
		assert.Equal(t, tt.expectedOffset, body.Offset, tt.query)
	}
}
