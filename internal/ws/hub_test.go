package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dealroom-app/dealroom/internal/auth"
	"github.com/dealroom-app/dealroom/internal/chat"
	"github.com/dealroom-app/dealroom/internal/contracts"
	"github.com/gin-gonic/gin"
	gormsqlite "github.com/glebarez/sqlite"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type openOracle struct{}

func (openOracle) IsIssuer(ctx context.Context, contractID, userID uint64) (bool, error) {
	_ = ctx
	return userID == 1, nil
}

func (openOracle) HasSigned(ctx context.Context, contractID, userID uint64) (bool, error) {
	_ = ctx
	return true, nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&contracts.Contract{}, &contracts.Signature{}, &chat.Chat{}, &chat.Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type wsFixture struct {
	server *httptest.Server
	svc    *chat.Service
	db     *gorm.DB
}

func newFixture(t *testing.T) *wsFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := openTestDB(t)
	repo := chat.NewRepo(db)
	svc := chat.NewService(repo, openOracle{}, time.Second)

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", ServeWS(hub, svc, testSecret, nil))
	server := httptest.NewServer(r)

	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return &wsFixture{server: server, svc: svc, db: db}
}

func (f *wsFixture) dial(t *testing.T, userID uint64) *websocket.Conn {
	t.Helper()
	token, err := auth.SignJWT(userID, "user", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial user %d: %v", userID, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (f *wsFixture) createChat(t *testing.T) *chat.Chat {
	t.Helper()
	c, _, err := f.svc.CreateChat(context.Background(), 1, 10, 2)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	return c
}

func send(t *testing.T, conn *websocket.Conn, ev ClientEvent) {
	t.Helper()
	if err := conn.WriteJSON(ev); err != nil {
		t.Fatalf("write event: %v", err)
	}
}

func recvEvent(t *testing.T, conn *websocket.Conn) ServerEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev ServerEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var ev ServerEvent
	if err := conn.ReadJSON(&ev); err == nil {
		t.Fatalf("expected no event, got %+v", ev)
	}
}

func TestServeWS_RejectsBadToken(t *testing.T) {
	f := newFixture(t)

	for name, token := range map[string]string{
		"missing":   "",
		"malformed": "garbage",
	} {
		url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=" + token
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			t.Fatalf("%s token: expected handshake to fail", name)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s token: expected 401, got %v", name, resp)
		}
	}
}

func TestServeWS_RejectsExpiredToken(t *testing.T) {
	f := newFixture(t)

	token, err := auth.SignJWT(1, "user", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=" + token
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", resp)
	}
}

func TestBroadcast_ReachesRoomWithTempIDEchoToOriginOnly(t *testing.T) {
	f := newFixture(t)
	c := f.createChat(t)

	issuer := f.dial(t, 1)
	sender := f.dial(t, 2)
	senderOther := f.dial(t, 2) // same user, second device

	for _, conn := range []*websocket.Conn{issuer, sender, senderOther} {
		send(t, conn, ClientEvent{Type: EventJoinRoom, ChatID: c.ChatID})
	}
	time.Sleep(100 * time.Millisecond) // let the hub process the joins

	send(t, sender, ClientEvent{Type: EventSendMessage, ChatID: c.ChatID, Content: "hello", TempID: "tmp-1"})

	got := recvEvent(t, sender)
	if got.Type != EventMessageReceived {
		t.Fatalf("sender: expected message-received, got %q", got.Type)
	}
	if got.TempID != "tmp-1" {
		t.Fatalf("sender: expected temp_id echo, got %q", got.TempID)
	}
	if got.Message == nil || got.Message.Content != "hello" || got.Message.ID == 0 {
		t.Fatalf("sender: unexpected message %+v", got.Message)
	}

	for name, conn := range map[string]*websocket.Conn{"issuer": issuer, "sender's other device": senderOther} {
		ev := recvEvent(t, conn)
		if ev.Type != EventMessageReceived {
			t.Fatalf("%s: expected message-received, got %q", name, ev.Type)
		}
		if ev.TempID != "" {
			t.Fatalf("%s: temp_id must only be echoed to the originating connection", name)
		}
		if ev.Message == nil || ev.Message.ID != got.Message.ID || ev.Message.Content != "hello" {
			t.Fatalf("%s: unexpected message %+v", name, ev.Message)
		}
	}
}

func TestSend_NonParticipantGetsErrorAndNothingIsBroadcast(t *testing.T) {
	f := newFixture(t)
	c := f.createChat(t)

	issuer := f.dial(t, 1)
	outsider := f.dial(t, 3)

	send(t, issuer, ClientEvent{Type: EventJoinRoom, ChatID: c.ChatID})
	send(t, outsider, ClientEvent{Type: EventJoinRoom, ChatID: c.ChatID})
	time.Sleep(100 * time.Millisecond)

	send(t, outsider, ClientEvent{Type: EventSendMessage, ChatID: c.ChatID, Content: "let me in", TempID: "tmp-x"})

	ev := recvEvent(t, outsider)
	if ev.Type != EventSendError {
		t.Fatalf("expected send-error, got %q", ev.Type)
	}
	if ev.Error == "" {
		t.Fatal("expected an error message")
	}

	expectSilence(t, issuer)

	var cnt int64
	if err := f.db.Model(&chat.Message{}).Count(&cnt).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if cnt != 0 {
		t.Fatalf("expected nothing persisted, got %d rows", cnt)
	}
}

func TestLeaveRoom_StopsDelivery(t *testing.T) {
	f := newFixture(t)
	c := f.createChat(t)

	issuer := f.dial(t, 1)
	sender := f.dial(t, 2)

	send(t, issuer, ClientEvent{Type: EventJoinRoom, ChatID: c.ChatID})
	send(t, sender, ClientEvent{Type: EventJoinRoom, ChatID: c.ChatID})
	time.Sleep(100 * time.Millisecond)

	send(t, issuer, ClientEvent{Type: EventLeaveRoom, ChatID: c.ChatID})
	// Leaving a room you are not in is a no-op, not an error.
	send(t, issuer, ClientEvent{Type: EventLeaveRoom, ChatID: c.ChatID})
	time.Sleep(100 * time.Millisecond)

	send(t, sender, ClientEvent{Type: EventSendMessage, ChatID: c.ChatID, Content: "anyone there?"})

	ev := recvEvent(t, sender)
	if ev.Type != EventMessageReceived {
		t.Fatalf("sender: expected message-received, got %q", ev.Type)
	}
	expectSilence(t, issuer)
}

func TestDisconnect_RemovesMembershipAndRoomSurvives(t *testing.T) {
	f := newFixture(t)
	c := f.createChat(t)

	issuer := f.dial(t, 1)
	counterparty := f.dial(t, 2)
	departing := f.dial(t, 2) // same user, second device

	for _, conn := range []*websocket.Conn{issuer, counterparty, departing} {
		send(t, conn, ClientEvent{Type: EventJoinRoom, ChatID: c.ChatID})
	}
	time.Sleep(100 * time.Millisecond)

	if err := departing.Close(); err != nil {
		t.Fatalf("close departing: %v", err)
	}
	time.Sleep(100 * time.Millisecond) // let the hub drop the connection

	send(t, issuer, ClientEvent{Type: EventSendMessage, ChatID: c.ChatID, Content: "still here", TempID: "tmp-d"})

	echo := recvEvent(t, issuer)
	if echo.Type != EventMessageReceived || echo.TempID != "tmp-d" {
		t.Fatalf("issuer: unexpected event %+v", echo)
	}

	ev := recvEvent(t, counterparty)
	if ev.Type != EventMessageReceived || ev.Message == nil || ev.Message.Content != "still here" {
		t.Fatalf("counterparty: unexpected event %+v", ev)
	}
	if ev.TempID != "" {
		t.Fatalf("counterparty: temp_id must only be echoed to the originating connection")
	}

	var cnt int64
	if err := f.db.Model(&chat.Message{}).Where("chat_id = ?", c.ChatID).Count(&cnt).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if cnt != 1 {
		t.Fatalf("expected 1 persisted message, got %d", cnt)
	}
}

func TestSend_WithoutJoinStillPersistsAndDeliversToRoom(t *testing.T) {
	f := newFixture(t)
	c := f.createChat(t)

	issuer := f.dial(t, 1)
	sender := f.dial(t, 2)

	// Only the issuer joins; sending does not require membership.
	send(t, issuer, ClientEvent{Type: EventJoinRoom, ChatID: c.ChatID})
	time.Sleep(100 * time.Millisecond)

	send(t, sender, ClientEvent{Type: EventSendMessage, ChatID: c.ChatID, Content: "drive-by"})

	ev := recvEvent(t, issuer)
	if ev.Type != EventMessageReceived || ev.Message == nil || ev.Message.Content != "drive-by" {
		t.Fatalf("issuer: unexpected event %+v", ev)
	}

	msgs, err := f.svc.ListMessages(context.Background(), 1, c.ChatID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 persisted message, got %d", len(msgs))
	}
}

func TestSend_UnknownEventType(t *testing.T) {
	f := newFixture(t)

	conn := f.dial(t, 1)
	send(t, conn, ClientEvent{Type: "frobnicate"})

	ev := recvEvent(t, conn)
	if ev.Type != EventSendError {
		t.Fatalf("expected send-error, got %q", ev.Type)
	}
}
