package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dealroom-app/dealroom/internal/config"
	"github.com/dealroom-app/dealroom/internal/db"
	"github.com/dealroom-app/dealroom/internal/httpapi"
	"github.com/dealroom-app/dealroom/internal/store/rabbitmq"
	"github.com/dealroom-app/dealroom/internal/store/redisstore"
	"github.com/dealroom-app/dealroom/internal/ws"
)

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()

	var rabbit *rabbitmq.Publisher
	if p, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue); err != nil {
		log.Printf("rabbit unavailable, emails will be sent directly: %v", err)
	} else {
		rabbit = p
		defer rabbit.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub()
	go hub.Run(ctx)

	r := httpapi.NewRouter(gdb, cfg, rds, rabbit, hub)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
