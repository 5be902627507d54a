package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/streamhub/signal-service/internal/config"
	"github.com/streamhub/signal-service/internal/handler"
	"github.com/streamhub/signal-service/internal/hub"
	"github.com/streamhub/signal-service/internal/kafka"
	"github.com/streamhub/signal-service/internal/presence"
	"github.com/streamhub/signal-service/internal/room"
	"github.com/streamhub/signal-service/internal/service"
	pkglog "github.com/streamhub/signal-service/pkg/log"
	"github.com/streamhub/signal-service/pkg/token"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	pkglog.Init(pkglog.Config{Level: cfg.Log.Level, ServiceName: "signal-service"})
	logger := pkglog.L()

	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting signal-service")

	// Presence store is optional; the relay runs without it.
	var presenceStore presence.Store
	if cfg.Redis.Enabled {
		presenceStore, err = presence.NewRedisStore(presence.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to connect to redis, presence mirroring disabled")
			presenceStore = nil
		} else {
			defer presenceStore.Close()
			logger.Info().Str("address", cfg.Redis.Address).Msg("connected to redis presence store")
		}
	}

	// Kafka producer for stream lifecycle events, also optional.
	var producer kafka.StreamEventProducer
	if cfg.Kafka.Enabled {
		producer, err = kafka.NewConfluentProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create kafka producer, stream events disabled")
			producer = nil
		} else {
			defer producer.Close()
			logger.Info().Str("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("connected to kafka")
		}
	}

	// Token verification only runs when a secret is configured.
	var verifier *token.Verifier
	if cfg.Auth.JWTSecret != "" {
		verifier = token.NewVerifier(cfg.Auth.JWTSecret)
		logger.Info().Msg("token verification enabled")
	}

	// Initialize hub and room registry
	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run()

	registry := room.NewRegistry()

	// Initialize service
	signalSvc := service.NewSignalService(wsHub, registry, presenceStore, producer)

	// Initialize handlers
	wsHandler := handler.NewWSHandler(wsHub, signalSvc, verifier)
	iceHandler := handler.NewICEHandler(cfg.WebRTC.ICEServers)

	// Setup HTTP server
	mux := http.NewServeMux()
	wsHandler.RegisterRoutes(mux)
	iceHandler.RegisterRoutes(mux)

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      pkglog.HTTPMiddleware(logger)(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("signal-service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down signal-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("signal-service stopped")
}
