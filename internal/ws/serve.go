package ws

import (
	"net/http"
	"time"

	"github.com/dealroom-app/dealroom/internal/auth"
	"github.com/dealroom-app/dealroom/internal/chat"
	"github.com/dealroom-app/dealroom/internal/common"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ServeWS is the realtime entry point. The bearer token is verified
// before the upgrade: a bad credential gets a plain 401 and the
// connection never exists as far as the hub is concerned. The handshake
// timeout bounds how long a half-open socket can linger.
func ServeWS(hub *Hub, svc *chat.Service, jwtSecret string, allowedOrigins []string) gin.HandlerFunc {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	upgrader := websocket.Upgrader{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origins[origin]
		},
	}

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = bearerToken(c.GetHeader("Authorization"))
		}
		claims, err := auth.VerifyJWT(token, jwtSecret)
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40101, "authentication failed")
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the handshake error.
			return
		}

		client := newClient(uuid.NewString(), claims.UserID, hub, svc, conn)
		select {
		case hub.register <- client:
		case <-hub.done:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
