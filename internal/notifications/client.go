package notifications

import (
	"log"
	"time"

	"parley/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// writeWait bounds a single write to the peer.
	writeWait = 10 * time.Second

	// pongWait is how long we wait for a pong before giving up on the peer.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize limits inbound frames from the peer.
	maxMessageSize = 16384

	// sendBufferSize is the outbound queue per connection. When it fills,
	// messages are dropped rather than stalling hub broadcasts.
	sendBufferSize = 256
)

// WSHub is the small surface a Client needs from its hub.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client owns one websocket connection on behalf of a user. The hub never
// touches the connection directly; it enqueues onto Send and the write pump
// drains it.
type Client struct {
	Hub    WSHub
	Conn   *websocket.Conn
	UserID uint

	// Send is the buffered outbound queue drained by WritePump.
	Send chan []byte

	// IncomingHandler receives every frame read from the peer.
	IncomingHandler func(*Client, []byte)
}

// NewClient wraps an upgraded connection for the given user.
func NewClient(hub WSHub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBufferSize),
	}
}

// dropNotice tells the frontend a gap occurred so it can re-fetch history.
var dropNotice = []byte(`{"type":"messages_dropped","payload":{"reason":"buffer_full"}}`)

// TrySend enqueues a message without ever blocking a hub broadcast. Sends to
// a closed channel (client tearing down) and full buffers (slow reader) both
// drop the message and bump the backpressure counter.
func (c *Client) TrySend(message []byte) {
	defer func() {
		if recover() != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
		}
	}()

	select {
	case c.Send <- message:
		return
	default:
	}

	observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
	log.Printf("Client %d (%s): buffer full, dropped message", c.UserID, c.Hub.Name())

	// Best effort; if even this doesn't fit the client is beyond saving.
	select {
	case c.Send <- dropNotice:
	default:
	}
}

// ReadPump reads frames until the connection dies, feeding each one to
// IncomingHandler, then unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ReadPump (user %d): %v", c.UserID, err)
			}
			return
		}
		if c.IncomingHandler != nil {
			c.IncomingHandler(c, frame)
		}
	}
}

// WritePump drains Send onto the wire and keeps the connection alive with
// pings. Runs until Send is closed or a write fails.
func (c *Client) WritePump() {
	pinger := time.NewTicker(pingPeriod)
	defer func() {
		pinger.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-pinger.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
