package handlers

import (
	"github.com/dealroom-app/dealroom/internal/chat"
	"github.com/dealroom-app/dealroom/internal/config"
	"github.com/dealroom-app/dealroom/internal/contracts"
	"github.com/dealroom-app/dealroom/internal/email"
	"github.com/dealroom-app/dealroom/internal/store/rabbitmq"
	"github.com/dealroom-app/dealroom/internal/store/redisstore"
	"github.com/dealroom-app/dealroom/internal/ws"
	"gorm.io/gorm"
)

type Handler struct {
	DB          *gorm.DB
	Cfg         config.Config
	Redis       *redisstore.Store
	Rabbit      *rabbitmq.Publisher
	SMTPSetting email.SMTPConfig
	ChatSvc     *chat.Service
	Contracts   *contracts.Repo
	Hub         *ws.Hub
}

func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store, rabbit *rabbitmq.Publisher, hub *ws.Hub) *Handler {
	contractRepo := contracts.NewRepo(db)
	chatSvc := chat.NewService(chat.NewRepo(db), contractRepo, cfg.SendTimeout)
	return &Handler{
		DB:     db,
		Cfg:    cfg,
		Redis:  rds,
		Rabbit: rabbit,
		SMTPSetting: email.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		},
		ChatSvc:   chatSvc,
		Contracts: contractRepo,
		Hub:       hub,
	}
}
