package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notify-broker/internal/adapters/kafka"
	"notify-broker/internal/api/routes"
	"notify-broker/internal/auth"
	"notify-broker/internal/config"
	"notify-broker/internal/websocket"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting notification broker")

	verifier := auth.NewJWTVerifier(cfg.JWT.Secret)

	hub := websocket.NewHub(websocket.Config{
		MaxConnections:  cfg.Broker.MaxConnections,
		AuthTimeout:     cfg.Broker.AuthTimeout,
		IdleTimeout:     cfg.Broker.IdleTimeout,
		SendBuffer:      cfg.Broker.SendBuffer,
		JoinRateLimit:   cfg.Broker.JoinRateLimit,
		NotifyRateLimit: cfg.Broker.NotifyRateLimit,
		AllowedOrigins:  cfg.Broker.AllowedOrigins,
	}, verifier)

	router := routes.NewRouter(hub, cfg)
	router.SetupRoutes()

	// Optional ingest path from the application tier.
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	defer cancelConsumer()
	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled() {
		consumer = kafka.NewConsumer(cfg.Kafka, hub)
		go func() {
			if err := consumer.Run(consumerCtx); err != nil {
				slog.Error("Kafka consumer stopped", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if consumer != nil {
		cancelConsumer()
		if err := consumer.Close(); err != nil {
			slog.Error("Failed to close Kafka consumer", "error", err)
		}
	}

	hub.Shutdown()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
