package db

import (
	"log"

	"github.com/dealroom-app/dealroom/internal/chat"
	"github.com/dealroom-app/dealroom/internal/contracts"
	"github.com/dealroom-app/dealroom/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func Connect(dsn string) *gorm.DB {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}

	if err := gdb.AutoMigrate(
		&models.User{},
		&contracts.Contract{},
		&contracts.Signature{},
		&chat.Chat{},
		&chat.Message{},
	); err != nil {
		log.Fatalf("db automigrate: %v", err)
	}

	return gdb
}
