package httpapi

import (
	"net/http"

	"github.com/dealroom-app/dealroom/internal/common"
	"github.com/dealroom-app/dealroom/internal/config"
	"github.com/dealroom-app/dealroom/internal/httpapi/handlers"
	"github.com/dealroom-app/dealroom/internal/httpapi/middleware"
	"github.com/dealroom-app/dealroom/internal/store/rabbitmq"
	"github.com/dealroom-app/dealroom/internal/store/redisstore"
	"github.com/dealroom-app/dealroom/internal/ws"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func NewRouter(db *gorm.DB, cfg config.Config, rds *redisstore.Store, rabbit *rabbitmq.Publisher, hub *ws.Hub) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-Request-ID")
	r.Use(cors.New(corsCfg))

	h := handlers.NewHandler(db, cfg, rds, rabbit, hub)

	r.GET("/ping", h.Ping)

	// captcha
	r.POST("/captcha", h.SendCaptcha)

	// users
	r.POST("/users", h.CreateUser)
	r.GET("/users/:id", h.GetUserByID)

	// auth
	r.POST("/login", h.Login)

	// realtime gateway (token checked before the upgrade)
	r.GET("/ws", ws.ServeWS(hub, h.ChatSvc, cfg.JWTSecret, cfg.AllowedOrigins))

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/me", h.Me)

	// contracts (JWT required)
	authGroup.POST("/contracts", h.CreateContract)
	authGroup.GET("/contracts", h.ListOpenContracts)
	authGroup.GET("/contracts/mine", h.ListMyContracts)
	authGroup.POST("/contracts/:id/sign", h.SignContract)
	authGroup.GET("/contracts/:id/signers", h.ListContractSigners)

	// chats (JWT required)
	authGroup.POST("/chats", h.CreateChat)
	authGroup.GET("/chats", h.ListChats)
	authGroup.GET("/chats/:chat_id/messages", h.ListChatMessages)
	authGroup.POST("/chats/:chat_id/messages", h.SendChatMessage)

	return r
}
