package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/rensmac/taskboard/internal/api"
	"github.com/rensmac/taskboard/internal/config"
	"github.com/rensmac/taskboard/internal/logging"
	"github.com/rensmac/taskboard/internal/realtime"
	"github.com/rensmac/taskboard/internal/repository/postgres"
	"github.com/rensmac/taskboard/internal/repository/redis"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	if err := logging.Setup(cfg.Logging); err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logging")
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Bool("standalone", cfg.Realtime.Standalone).
		Msg("Starting taskboard API server")

	// Initialize database
	db, err := postgres.NewDB(context.Background(), cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Initialize Redis
	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Initialize realtime fan-out. In standalone mode events stay on this
	// instance; otherwise they travel over the redis comment bus so every
	// instance can deliver to its own sessions.
	registry := realtime.NewRegistry()
	var bus realtime.Bus
	if !cfg.Realtime.Standalone {
		bus = redis.NewCommentBus(redisClient)
	}
	dispatcher := realtime.NewDispatcher(registry, bus)

	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	defer stopDispatcher()
	go func() {
		if err := dispatcher.Run(dispatcherCtx); err != nil && dispatcherCtx.Err() == nil {
			log.Error().Err(err).Msg("Comment dispatcher stopped")
		}
	}()

	// Initialize router
	router := api.NewRouter(cfg, db, redisClient, registry, dispatcher)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	stopDispatcher()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
