package server

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"parley/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndGetMessages(t *testing.T) {
	s, app := newTestServer(t)
	alice := createUser(t, s, "alice", false)
	bob := createUser(t, s, "bob", false)

	convID := createGroupConversation(t, app, s, alice, []uint{bob.ID})
	msgTarget := fmt.Sprintf("/api/conversations/%d/messages", convID)

	resp, body := doJSON(t, app, http.MethodPost, msgTarget, authHeader(t, s, alice), fiber.Map{
		"body": "first message",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "first message", body["body"])
	assert.NotNil(t, body["user"])

	doJSON(t, app, http.MethodPost, msgTarget, authHeader(t, s, bob), fiber.Map{"body": "second message"})

	resp, body = doJSON(t, app, http.MethodGet, msgTarget+"?limit=10", authHeader(t, s, alice), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["total"])

	messages := body["messages"].([]interface{})
	require.Len(t, messages, 2)
	// Newest first.
	newest := messages[0].(map[string]interface{})
	assert.Equal(t, "second message", newest["body"])
}

func TestSendMessage_Validation(t *testing.T) {
	s, app := newTestServer(t)
	alice := createUser(t, s, "alice", false)
	bob := createUser(t, s, "bob", false)

	convID := createGroupConversation(t, app, s, alice, []uint{bob.ID})
	msgTarget := fmt.Sprintf("/api/conversations/%d/messages", convID)

	// Whitespace-only body is rejected.
	resp, _ := doJSON(t, app, http.MethodPost, msgTarget, authHeader(t, s, alice), fiber.Map{
		"body": "   \n\t ",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Oversized body is rejected.
	resp, _ = doJSON(t, app, http.MethodPost, msgTarget, authHeader(t, s, alice), fiber.Map{
		"body": strings.Repeat("x", models.MaxMessageBodyLen+1),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSendMessage_NonParticipantGets404(t *testing.T) {
	s, app := newTestServer(t)
	alice := createUser(t, s, "alice", false)
	bob := createUser(t, s, "bob", false)
	eve := createUser(t, s, "eve", false)

	convID := createGroupConversation(t, app, s, alice, []uint{bob.ID})
	msgTarget := fmt.Sprintf("/api/conversations/%d/messages", convID)

	resp, _ := doJSON(t, app, http.MethodPost, msgTarget, authHeader(t, s, eve), fiber.Map{
		"body": "should not land",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, msgTarget, authHeader(t, s, eve), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSendMessage_ClosedConversationConflicts(t *testing.T) {
	s, app := newTestServer(t)
	alice := createUser(t, s, "alice", false)
	bob := createUser(t, s, "bob", false)

	convID := createGroupConversation(t, app, s, alice, []uint{bob.ID})
	msgTarget := fmt.Sprintf("/api/conversations/%d/messages", convID)

	doJSON(t, app, http.MethodPost, msgTarget, authHeader(t, s, alice), fiber.Map{"body": "before close"})

	resp, _ := doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/conversations/%d/close", convID), authHeader(t, s, alice), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, msgTarget, authHeader(t, s, bob), fiber.Map{
		"body": "after close",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// History of a closed conversation is still readable.
	resp, body := doJSON(t, app, http.MethodGet, msgTarget, authHeader(t, s, bob), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])
}
