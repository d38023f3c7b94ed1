package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dealroom-app/dealroom/internal/auth"
	"github.com/gin-gonic/gin"
)

func newRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthRequired(secret))
	r.GET("/protected", func(c *gin.Context) {
		uid, _ := c.Get(UserIDKey)
		role, _ := c.Get(RoleKey)
		c.JSON(http.StatusOK, gin.H{"user_id": uid, "role": role})
	})
	return r
}

func TestAuthRequired_ValidToken(t *testing.T) {
	r := newRouter("secret")

	token, err := auth.SignJWT(42, "user", "secret", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestAuthRequired_Rejections(t *testing.T) {
	r := newRouter("secret")

	expired, err := auth.SignJWT(42, "user", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	wrongKey, err := auth.SignJWT(42, "user", "other", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	cases := map[string]string{
		"no header":    "",
		"not bearer":   "Basic abc",
		"malformed":    "Bearer garbage",
		"expired":      "Bearer " + expired,
		"wrong secret": "Bearer " + wrongKey,
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rr.Code)
		}
	}
}
