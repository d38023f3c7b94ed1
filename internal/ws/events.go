package ws

import "github.com/dealroom-app/dealroom/internal/chat"

// Event types form the closed realtime vocabulary. Anything else on the
// wire is answered with a send-error.
const (
	EventJoinRoom        = "join-room"
	EventLeaveRoom       = "leave-room"
	EventSendMessage     = "send-message"
	EventMessageReceived = "message-received"
	EventSendError       = "send-error"
)

// ClientEvent is the inbound envelope. TempID is the client's provisional
// id; the server never stores it, it only travels back to the originating
// connection for reconciliation.
type ClientEvent struct {
	Type    string `json:"type"`
	ChatID  string `json:"chat_id,omitempty"`
	Content string `json:"content,omitempty"`
	TempID  string `json:"temp_id,omitempty"`
}

// ServerEvent is the outbound envelope. Message is set on
// message-received, Error on send-error.
type ServerEvent struct {
	Type    string        `json:"type"`
	Message *chat.Message `json:"message,omitempty"`
	TempID  string        `json:"temp_id,omitempty"`
	Error   string        `json:"error,omitempty"`
}
