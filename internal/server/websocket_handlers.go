package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"parley/internal/middleware"
	"parley/internal/notifications"
	"parley/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketChatHandler handles WebSocket connections for real-time chat
func (s *Server) WebSocketChatHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ctx := context.Background()

		// Get userID from context locals (set by AuthRequired middleware)
		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			log.Printf("WebSocket Chat: Unauthenticated connection attempt")
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		userID := userIDVal.(uint)

		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			log.Printf("WebSocket Chat: Failed to get user %d: %v", userID, err)
			_ = conn.Close()
			return
		}
		username := user.Username

		if s.chatHub == nil {
			_ = conn.Close()
			return
		}

		client, err := s.chatHub.Register(userID, conn)
		if err != nil {
			log.Printf("WebSocket Chat: Failed to register user %d: %v", userID, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		client.IncomingHandler = func(c *notifications.Client, message []byte) {
			var incomingMsg map[string]interface{}
			if err := json.Unmarshal(message, &incomingMsg); err != nil {
				log.Printf("WebSocket: Invalid message format from user %d", userID)
				return
			}

			msgType, ok := incomingMsg["type"].(string)
			if !ok {
				return
			}

			switch msgType {
			case "join":
				// Subscribe to a conversation's events. Membership is
				// verified so outsiders cannot listen in.
				if convIDFloat, ok := incomingMsg["conversation_id"].(float64); ok {
					convID := uint(convIDFloat)
					if s.isUserParticipant(ctx, userID, convID) {
						s.chatHub.JoinConversation(userID, convID)

						response := notifications.ChatMessage{
							Type:           "joined",
							ConversationID: convID,
							Payload:        map[string]interface{}{"conversation_id": convID},
						}
						responseJSON, _ := json.Marshal(response)
						c.TrySend(responseJSON)
					}
				}

			case "leave":
				if convIDFloat, ok := incomingMsg["conversation_id"].(float64); ok {
					s.chatHub.LeaveConversation(userID, uint(convIDFloat))
				}

			case "message":
				// Post a message (alternative to the HTTP endpoint).
				if convIDFloat, ok := incomingMsg["conversation_id"].(float64); ok {
					convID := uint(convIDFloat)
					body, _ := incomingMsg["body"].(string)
					if body == "" {
						return
					}

					// Same limit as the HTTP endpoint (15 per minute)
					id := fmt.Sprintf("user:%d", userID)
					allowed, _ := middleware.CheckRateLimit(ctx, s.redis, "send_chat", id, 15, time.Minute)
					if !allowed {
						response := notifications.ChatMessage{
							Type: "error",
							Payload: map[string]string{
								"message": "Rate limit exceeded. Please wait a moment.",
							},
						}
						if respJSON, err := json.Marshal(response); err == nil {
							c.TrySend(respJSON)
						}
						return
					}

					// The service enforces membership, closed state and
					// body limits; the publisher fans out to subscribers.
					if _, err := s.msgService.Post(ctx, service.PostMessageInput{
						ConversationID: convID,
						UserID:         userID,
						Body:           body,
					}); err != nil {
						response := notifications.ChatMessage{
							Type:    "error",
							Payload: map[string]string{"message": err.Error()},
						}
						if respJSON, mErr := json.Marshal(response); mErr == nil {
							c.TrySend(respJSON)
						}
					}
				}

			case "read":
				// Mark a conversation read without an HTTP round trip.
				if convIDFloat, ok := incomingMsg["conversation_id"].(float64); ok {
					convID := uint(convIDFloat)
					if err := s.convService.MarkRead(ctx, convID, userID); err == nil && s.notifier != nil {
						_ = s.notifier.PublishRead(ctx, convID, userID)
					}
				}
			}
		}

		log.Printf("WebSocket: User %d (%s) connected to chat", userID, username)

		// WritePump in a goroutine, ReadPump blocks until disconnect.
		go client.WritePump()
		client.ReadPump()
	})
}

// isUserParticipant reports whether the user is a participant of the conversation.
func (s *Server) isUserParticipant(ctx context.Context, userID, convID uint) bool {
	ok, err := s.convRepo.IsParticipant(ctx, convID, userID)
	return err == nil && ok
}
