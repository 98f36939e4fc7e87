// Package notifications provides real-time fan-out of chat events over Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"

	"parley/internal/models"
	"parley/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes chat events into Redis channels. A nil Redis client
// turns every publish into a no-op so single-node deployments and tests
// can run without Redis.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// ConversationChannel returns the pub/sub channel for a conversation's messages.
func ConversationChannel(conversationID uint) string {
	return fmt.Sprintf("chat:conv:%d", conversationID)
}

// PublishMessage publishes a newly stored message to its conversation channel.
// Delivery is best effort: callers treat errors as non-fatal.
func (n *Notifier) PublishMessage(
	ctx context.Context, conv *models.Conversation, msg *models.Message,
) error {
	if n.rdb == nil {
		return nil
	}

	event := ChatMessage{
		Type:           "message",
		ConversationID: conv.ID,
		UserID:         msg.UserID,
		Payload:        msg,
	}
	if msg.User != nil {
		event.Username = msg.User.Username
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal message event: %w", err)
	}

	if err := n.rdb.Publish(ctx, ConversationChannel(conv.ID), payload).Err(); err != nil {
		return err
	}

	observability.MessagesPublished.WithLabelValues(string(conv.Type)).Inc()
	return nil
}

// PublishRead publishes a read receipt to a conversation channel so other
// participants can update unread badges without polling.
func (n *Notifier) PublishRead(ctx context.Context, conversationID, userID uint) error {
	if n.rdb == nil {
		return nil
	}

	event := ChatMessage{
		Type:           "read",
		ConversationID: conversationID,
		UserID:         userID,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal read event: %w", err)
	}
	return n.rdb.Publish(ctx, ConversationChannel(conversationID), payload).Err()
}

// PublishConversationClosed announces that a conversation entered its closed state.
func (n *Notifier) PublishConversationClosed(ctx context.Context, conversationID uint) error {
	if n.rdb == nil {
		return nil
	}

	event := ChatMessage{
		Type:           "conversation_closed",
		ConversationID: conversationID,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal closed event: %w", err)
	}
	return n.rdb.Publish(ctx, ConversationChannel(conversationID), payload).Err()
}

// StartChatSubscriber subscribes to the chat:conv:* pattern and calls onMessage
// for each incoming message. The subscription ends when ctx is cancelled.
func (n *Notifier) StartChatSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "chat:conv:*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in ChatSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
