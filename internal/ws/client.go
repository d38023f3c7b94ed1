package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/dealroom-app/dealroom/internal/chat"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Client is one authenticated connection. roomSet is owned by the hub
// loop; the pumps never touch it.
type Client struct {
	id      string
	userID  uint64
	hub     *Hub
	svc     *chat.Service
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{} // closed by the hub when the client is dropped
	roomSet map[string]bool
}

func newClient(id string, userID uint64, hub *Hub, svc *chat.Service, conn *websocket.Conn) *Client {
	return &Client{
		id:      id,
		userID:  userID,
		hub:     hub,
		svc:     svc,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		roomSet: make(map[string]bool),
	}
}

// readPump consumes inbound events until the connection dies, then
// unregisters the client; the hub removes all its memberships in one step.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: conn=%s user=%d read error: %v", c.id, c.userID, err)
			}
			return
		}

		var ev ClientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.sendError("invalid event")
			continue
		}

		switch ev.Type {
		case EventJoinRoom:
			if ev.ChatID == "" {
				c.sendError("chat_id required")
				continue
			}
			select {
			case c.hub.join <- membership{client: c, chatID: ev.ChatID}:
			case <-c.hub.done:
				return
			}

		case EventLeaveRoom:
			if ev.ChatID == "" {
				c.sendError("chat_id required")
				continue
			}
			select {
			case c.hub.leave <- membership{client: c, chatID: ev.ChatID}:
			case <-c.hub.done:
				return
			}

		case EventSendMessage:
			c.handleSend(ev)

		default:
			c.sendError("unknown event type")
		}
	}
}

// handleSend persists first and broadcasts only after the store committed.
// The background context keeps an accepted send alive even if this
// connection drops mid-flight; other room members still get the message.
// The service applies its own store timeout.
func (c *Client) handleSend(ev ClientEvent) {
	msg, err := c.svc.SendMessage(context.Background(), c.userID, ev.ChatID, ev.Content)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrPermissionDenied):
			c.sendError("not a participant of this chat")
		case errors.Is(err, chat.ErrChatNotFound):
			c.sendError("chat not found")
		case errors.Is(err, chat.ErrEmptyContent):
			c.sendError("message content is empty")
		default:
			log.Printf("ws: conn=%s user=%d chat=%s send failed: %v", c.id, c.userID, ev.ChatID, err)
			c.sendError("failed to send message")
		}
		return
	}
	c.hub.Broadcast(ev.ChatID, msg, c, ev.TempID)
}

// sendError reports a failure to this connection only; failures are never
// broadcast. A full buffer means the client is not draining, so the
// connection is closed rather than losing the notice: the client sees
// the close instead of a message that silently never arrives.
func (c *Client) sendError(msg string) {
	payload, err := json.Marshal(ServerEvent{Type: EventSendError, Error: msg})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	case <-c.done:
	default:
		c.conn.Close()
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
