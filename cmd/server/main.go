package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/gunturachievement/socket-io-roconal/internal/config"
	"github.com/gunturachievement/socket-io-roconal/internal/hub"
	"github.com/gunturachievement/socket-io-roconal/internal/logging"
	"github.com/gunturachievement/socket-io-roconal/internal/redis"
	"github.com/gunturachievement/socket-io-roconal/internal/server"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRedis(ctx context.Context, cfg *config.Config) *goredis.Client {
	client, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to create Redis client", "error", err)
		os.Exit(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redis.Ping(pingCtx, client); err != nil {
		// Degraded start: the relay keeps serving push and websocket
		// traffic; bus-sourced events resume once Redis is reachable.
		slog.Error("Redis unreachable at startup", "error", err)
	} else {
		slog.Info("Redis connected", "url", cfg.RedisURL)
	}

	return client
}

func runGracefulShutdown(srv *server.Server, subscriber *redis.Subscriber, h *hub.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		subscriber.Close()
		h.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	if cfg.InternalEventsToken == "" {
		slog.Warn("INTERNAL_EVENTS_TOKEN is not set: POST /internal/events accepts unauthenticated requests. " +
			"Set a token before exposing this service beyond localhost.")
	}

	redisClient := setupRedis(context.Background(), cfg)
	defer func() { _ = redisClient.Close() }()

	h := hub.New(clock, cfg.MaxConnections)

	subscriber := redis.NewSubscriber(redisClient, h, cfg.ChannelNames(), cfg.PatternName())
	subscriber.Start(context.Background())

	srv := server.NewServer(cfg, h, redisClient)

	done := runGracefulShutdown(srv, subscriber, h)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
