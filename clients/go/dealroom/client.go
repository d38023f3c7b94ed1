package dealroom

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is one realtime connection. Provisional display and
// reconciliation live in Timeline; the Client is transport only.
type Client struct {
	conn *websocket.Conn
}

// Dial connects and authenticates. baseURL is the http(s) server address;
// the bearer token is passed on the handshake, so a bad credential fails
// here and never yields a usable connection.
func Dial(baseURL, token string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = "token=" + url.QueryEscape(token)

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Join(chatID string) error {
	return c.conn.WriteJSON(clientEvent{Type: EventJoinRoom, ChatID: chatID})
}

func (c *Client) Leave(chatID string) error {
	return c.conn.WriteJSON(clientEvent{Type: EventLeaveRoom, ChatID: chatID})
}

// Send submits a message and returns the generated temp_id; the caller
// adds the provisional entry to its Timeline under the same id.
func (c *Client) Send(chatID, content string) (string, error) {
	tempID := uuid.NewString()
	err := c.conn.WriteJSON(clientEvent{
		Type:    EventSendMessage,
		ChatID:  chatID,
		Content: content,
		TempID:  tempID,
	})
	if err != nil {
		return "", err
	}
	return tempID, nil
}

// Next blocks for the next server event.
func (c *Client) Next() (ServerEvent, error) {
	var ev ServerEvent
	err := c.conn.ReadJSON(&ev)
	return ev, err
}
