package middleware

import (
	"log"
	"net/http"

	"github.com/dealroom-app/dealroom/internal/common"
	"github.com/gin-gonic/gin"
)

// Recovery turns panics into the standard error envelope instead of gin's
// default plain-text 500.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("panic recovered: %v", r)
				common.Fail(c, http.StatusInternalServerError, 50000, "internal error")
				c.Abort()
			}
		}()
		c.Next()
	}
}
