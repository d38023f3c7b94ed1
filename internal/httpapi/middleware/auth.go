package middleware

import (
	"net/http"
	"strings"

	"github.com/dealroom-app/dealroom/internal/auth"
	"github.com/dealroom-app/dealroom/internal/common"
	"github.com/gin-gonic/gin"
)

const (
	UserIDKey = "user_id"
	RoleKey   = "role"
)

// AuthRequired verifies the bearer token and stashes the verified claims
// in the request context. Same trust boundary as the websocket handshake,
// different transport.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := ""
		if strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
		if token == "" {
			common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
			c.Abort()
			return
		}

		claims, err := auth.VerifyJWT(token, secret)
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}
