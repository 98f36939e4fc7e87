package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"parley/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// maxConnsPerUser bounds how many simultaneous sockets one user may hold.
const maxConnsPerUser = 12

// ChatHub manages WebSocket connections keyed by conversation. Each user may
// hold multiple clients (multi-device) and may be subscribed to any number of
// conversations at once.
type ChatHub struct {
	mu sync.RWMutex

	// conversationID -> set of userIDs currently subscribed
	conversations map[uint]map[uint]struct{}

	// userID -> set of conversationIDs they're subscribed to
	userActiveConvs map[uint]map[uint]struct{}

	// userID -> set of active clients
	userConns map[uint]map[*Client]bool
}

// Name returns a human-readable identifier for this hub.
func (h *ChatHub) Name() string { return "chat hub" }

// ChatMessage is the envelope broadcast to conversation subscribers.
type ChatMessage struct {
	Type           string      `json:"type"` // "message", "read", "conversation_closed", "user_status", "connected_users"
	ConversationID uint        `json:"conversation_id,omitempty"`
	UserID         uint        `json:"user_id,omitempty"`
	Username       string      `json:"username,omitempty"`
	Payload        interface{} `json:"payload,omitempty"`
}

// NewChatHub creates a new ChatHub instance
func NewChatHub() *ChatHub {
	return &ChatHub{
		conversations:   make(map[uint]map[uint]struct{}),
		userActiveConvs: make(map[uint]map[uint]struct{}),
		userConns:       make(map[uint]map[*Client]bool),
	}
}

// Register registers a user's websocket connection. Returns the Client or an
// error if the per-user connection limit is exceeded.
func (h *ChatHub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()

	if h.userConns[userID] == nil {
		h.userConns[userID] = make(map[*Client]bool)
	}
	if len(h.userConns[userID]) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, fmt.Errorf("user connection limit reached")
	}

	client := NewClient(h, conn, userID)
	h.userConns[userID][client] = true

	onlineIDs := make([]uint, 0, len(h.userConns))
	for id := range h.userConns {
		if id != userID {
			onlineIDs = append(onlineIDs, id)
		}
	}
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()
	observability.WebSocketEventsTotal.WithLabelValues("register").Inc()

	// Initial snapshot of who else is online.
	if len(onlineIDs) > 0 {
		snapshot := ChatMessage{
			Type:    "connected_users",
			Payload: map[string]interface{}{"user_ids": onlineIDs},
		}
		if jsonMsg, err := json.Marshal(snapshot); err == nil {
			client.TrySend(jsonMsg)
		}
	}

	h.BroadcastGlobalStatus(userID, "online")
	return client, nil
}

// RegisterUser adds an already constructed client to the hub. Tests use this
// to register clients without a live websocket.
func (h *ChatHub) RegisterUser(client *Client) {
	h.mu.Lock()
	if h.userConns[client.UserID] == nil {
		h.userConns[client.UserID] = make(map[*Client]bool)
	}
	h.userConns[client.UserID][client] = true
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()
	h.BroadcastGlobalStatus(client.UserID, "online")
}

// UnregisterClient removes one websocket connection. When it was the user's
// last connection their conversation subscriptions are cleaned up too.
func (h *ChatHub) UnregisterClient(client *Client) {
	h.mu.Lock()

	clients, ok := h.userConns[client.UserID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, present := clients[client]; !present {
		h.mu.Unlock()
		return
	}
	delete(clients, client)
	observability.WebSocketConnectionsTotal.Dec()
	observability.WebSocketEventsTotal.WithLabelValues("unregister").Inc()

	if len(clients) > 0 {
		h.mu.Unlock()
		log.Printf("ChatHub: Unregistered client for user %d (Remaining clients: %d)", client.UserID, len(clients))
		return
	}
	delete(h.userConns, client.UserID)

	// Last connection gone: drop all conversation subscriptions.
	if convs, ok := h.userActiveConvs[client.UserID]; ok {
		for convID := range convs {
			if users, ok := h.conversations[convID]; ok {
				delete(users, client.UserID)
				if len(users) == 0 {
					delete(h.conversations, convID)
				}
			}
		}
		delete(h.userActiveConvs, client.UserID)
	}

	h.mu.Unlock()

	log.Printf("ChatHub: Unregistered user %d (All connections closed)", client.UserID)
	h.BroadcastGlobalStatus(client.UserID, "offline")
}

// IsUserOnline returns true when the user has at least one active client.
func (h *ChatHub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.userConns[userID]
	return ok && len(clients) > 0
}

// JoinConversation subscribes a connected user to a conversation's events.
func (h *ChatHub) JoinConversation(userID, conversationID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.userConns[userID]; !ok {
		log.Printf("ChatHub: User %d not connected, cannot join conversation %d", userID, conversationID)
		return
	}

	if h.conversations[conversationID] == nil {
		h.conversations[conversationID] = make(map[uint]struct{})
	}
	h.conversations[conversationID][userID] = struct{}{}

	if h.userActiveConvs[userID] == nil {
		h.userActiveConvs[userID] = make(map[uint]struct{})
	}
	h.userActiveConvs[userID][conversationID] = struct{}{}

	observability.WebSocketEventsTotal.WithLabelValues("join_conversation").Inc()
}

// LeaveConversation unsubscribes a user from a conversation's events.
func (h *ChatHub) LeaveConversation(userID, conversationID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if users, ok := h.conversations[conversationID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(h.conversations, conversationID)
		}
	}
	if convs, ok := h.userActiveConvs[userID]; ok {
		delete(convs, conversationID)
	}

	observability.WebSocketEventsTotal.WithLabelValues("leave_conversation").Inc()
}

// BroadcastToConversation sends a message to every client of every user
// subscribed to the conversation.
func (h *ChatHub) BroadcastToConversation(conversationID uint, message ChatMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users, ok := h.conversations[conversationID]
	if !ok {
		return
	}

	messageJSON, err := json.Marshal(message)
	if err != nil {
		log.Printf("ChatHub: Failed to marshal message: %v", err)
		return
	}

	for userID := range users {
		if clients, ok := h.userConns[userID]; ok {
			for client := range clients {
				client.TrySend(messageJSON)
			}
		}
	}

	observability.WebSocketEventsTotal.WithLabelValues("broadcast").Inc()
}

// GetActiveUsers returns the userIDs currently subscribed to a conversation.
func (h *ChatHub) GetActiveUsers(conversationID uint) []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users, ok := h.conversations[conversationID]
	if !ok {
		return []uint{}
	}

	result := make([]uint, 0, len(users))
	for userID := range users {
		result = append(result, userID)
	}
	return result
}

// IsUserActive checks if a user is currently subscribed to a conversation.
func (h *ChatHub) IsUserActive(userID, conversationID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if convs, ok := h.userActiveConvs[userID]; ok {
		_, active := convs[conversationID]
		return active
	}
	return false
}

// StartWiring connects the ChatHub to Redis pub/sub for conversation events.
func (h *ChatHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartChatSubscriber(ctx, func(channel, payload string) {
		var conversationID uint
		if _, err := fmt.Sscanf(channel, "chat:conv:%d", &conversationID); err != nil {
			log.Printf("ChatHub: Invalid channel format: %s", channel)
			return
		}

		var message ChatMessage
		if err := json.Unmarshal([]byte(payload), &message); err != nil {
			log.Printf("ChatHub: Failed to parse message from channel %s: %v", channel, err)
			return
		}
		if message.Type == "" {
			message.Type = "message"
		}
		message.ConversationID = conversationID

		h.BroadcastToConversation(conversationID, message)
	})
}

// BroadcastGlobalStatus sends a "user_status" event (online/offline) to all
// connected users except the one whose status changed.
func (h *ChatHub) BroadcastGlobalStatus(userID uint, status string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	message := ChatMessage{
		Type:    "user_status",
		UserID:  userID,
		Payload: map[string]interface{}{"status": status, "user_id": userID},
	}

	jsonMsg, err := json.Marshal(message)
	if err != nil {
		log.Printf("ChatHub: Failed to marshal status message: %v", err)
		return
	}

	for id, clients := range h.userConns {
		if id == userID {
			continue
		}
		for client := range clients {
			client.TrySend(jsonMsg)
		}
	}
}

// Shutdown gracefully closes all websocket connections.
func (h *ChatHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.userConns {
		for client := range clients {
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage,
				[]byte(`{"type":"server_shutdown","message":"Server is shutting down"}`)); err != nil {
				log.Printf("failed to write shutdown message for user %d: %v", userID, err)
			}
			if err := client.Conn.Close(); err != nil {
				log.Printf("failed to close websocket for user %d: %v", userID, err)
			}
		}
	}

	h.conversations = make(map[uint]map[uint]struct{})
	h.userActiveConvs = make(map[uint]map[uint]struct{})
	h.userConns = make(map[uint]map[*Client]bool)

	return nil
}
