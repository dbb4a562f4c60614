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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/alert"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/bridge"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/bus"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/config"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/forwarder"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/logging"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/queue"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/redisclient"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/registry"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/server"
	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/store"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	return pool
}

func setupRedis(cfg *config.Config) *redisclient.Client {
	client, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to create Redis client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *server.Server, stopWorker context.CancelFunc, broadcastBus *bus.Bus) <-chan struct{} {
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

		stopWorker()
		broadcastBus.Close()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	redisClient := setupRedis(cfg)
	defer func() { _ = redisClient.Close() }()
	rdb := redisClient.Underlying()

	validators := store.NewValidatorRepo(pool)
	notifications := store.NewNotificationRepo(pool)
	sessions := redisclient.NewSessionRepo(rdb, clock)

	broadcastBus := bus.New(bus.DefaultDepth)
	pubsubBridge := bridge.New(rdb)
	deliveryQueue := queue.New(rdb)
	resultsClient := forwarder.New(cfg.ResultsAPIURL)
	notifier := alert.NewNotifier(notifications, slog.Default())

	workerCtx, stopWorker := context.WithCancel(context.Background())
	worker := queue.NewWorker(deliveryQueue, resultsClient, notifier, cfg.QueueName, clock)
	go worker.Run(workerCtx)

	srv := server.NewServer(cfg, server.Dependencies{
		Registry:       registry.New(clock),
		Bus:            broadcastBus,
		Bridge:         pubsubBridge,
		Queue:          deliveryQueue,
		Forwarder:      resultsClient,
		Notifications:  notifications,
		Validators:     validators,
		Sessions:       sessions,
		RedisHealth:    redisClient,
		PostgresHealth: pool,
		Clock:          clock,
	})

	done := runGracefulShutdown(srv, stopWorker, broadcastBus)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
	slog.Info("Shutdown complete")
}
