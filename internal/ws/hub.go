package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/dealroom-app/dealroom/internal/chat"
)

type membership struct {
	client *Client
	chatID string
}

type outbound struct {
	chatID  string
	message *chat.Message
	// origin is the connection that sent the message; it alone receives
	// the temp_id echo.
	origin *Client
	tempID string
}

// Hub owns the registry of live connections and their room memberships.
// All mutation goes through the Run loop, so join/leave/disconnect and
// fan-out never race; everything here is in-memory and independent of
// store latency.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	join       chan membership
	leave      chan membership
	broadcast  chan outbound

	clients map[*Client]bool
	rooms   map[string]map[*Client]bool

	// done is closed when Run returns, so pumps and late handshakes
	// never block on a loop that is no longer receiving.
	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan membership),
		leave:      make(chan membership),
		broadcast:  make(chan outbound, 64),
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			close(h.done)
			return

		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}

		case m := <-h.join:
			// Unconditional: participation is re-checked at send time,
			// which keeps join cheap and idempotent.
			room := h.rooms[m.chatID]
			if room == nil {
				room = make(map[*Client]bool)
				h.rooms[m.chatID] = room
			}
			room[m.client] = true
			m.client.roomSet[m.chatID] = true

		case m := <-h.leave:
			h.removeFromRoom(m.client, m.chatID)

		case out := <-h.broadcast:
			h.fanOut(out)
		}
	}
}

// Broadcast delivers an already-persisted message to every connection in
// the chat's room. Callers must persist first; the hub never writes to
// the store.
func (h *Hub) Broadcast(chatID string, msg *chat.Message, origin *Client, tempID string) {
	select {
	case h.broadcast <- outbound{chatID: chatID, message: msg, origin: origin, tempID: tempID}:
	case <-h.done:
	}
}

func (h *Hub) fanOut(out outbound) {
	room := h.rooms[out.chatID]
	if len(room) == 0 {
		return
	}

	plain, err := json.Marshal(ServerEvent{Type: EventMessageReceived, Message: out.message})
	if err != nil {
		log.Printf("hub: marshal broadcast chat=%s err=%v", out.chatID, err)
		return
	}
	var echoed []byte
	if out.origin != nil && out.tempID != "" {
		echoed, err = json.Marshal(ServerEvent{Type: EventMessageReceived, Message: out.message, TempID: out.tempID})
		if err != nil {
			log.Printf("hub: marshal echo chat=%s err=%v", out.chatID, err)
			echoed = nil
		}
	}

	for client := range room {
		payload := plain
		if client == out.origin && echoed != nil {
			payload = echoed
		}
		select {
		case client.send <- payload:
		default:
			// Slow consumer: drop the connection rather than stall the
			// fan-out for the rest of the room.
			h.drop(client)
		}
	}
}

func (h *Hub) removeFromRoom(client *Client, chatID string) {
	if room, ok := h.rooms[chatID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, chatID)
		}
	}
	delete(client.roomSet, chatID)
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	for chatID := range client.roomSet {
		h.removeFromRoom(client, chatID)
	}
	delete(h.clients, client)
	// done, not close(send): the pumps may still be selecting on send.
	close(client.done)
}
