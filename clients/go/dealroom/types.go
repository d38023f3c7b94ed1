// Package dealroom is a Go client for the dealroom realtime chat API.
package dealroom

import "time"

// Event types mirror the server's realtime vocabulary.
const (
	EventJoinRoom        = "join-room"
	EventLeaveRoom       = "leave-room"
	EventSendMessage     = "send-message"
	EventMessageReceived = "message-received"
	EventSendError       = "send-error"
)

// Message is the canonical, server-confirmed form.
type Message struct {
	ID       uint64    `json:"id"`
	ChatID   string    `json:"chat_id"`
	SenderID uint64    `json:"sender_id"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sent_at"`
	Read     bool      `json:"read"`
}

type clientEvent struct {
	Type    string `json:"type"`
	ChatID  string `json:"chat_id,omitempty"`
	Content string `json:"content,omitempty"`
	TempID  string `json:"temp_id,omitempty"`
}

// ServerEvent is one inbound frame from the gateway.
type ServerEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message,omitempty"`
	TempID  string   `json:"temp_id,omitempty"`
	Error   string   `json:"error,omitempty"`
}
