package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/dicebot/internal/bot"
	"github.com/jwebster45206/dicebot/internal/config"
	"github.com/jwebster45206/dicebot/internal/logger"
	"github.com/jwebster45206/dicebot/internal/services/queue"
	"github.com/jwebster45206/dicebot/internal/storage"
	"github.com/jwebster45206/dicebot/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Dicebot Worker",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL,
		"storage_backend", cfg.StorageBackend)

	startCtx, startCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer startCancel()

	queueClient, err := queue.NewClient(startCtx, cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			log.Error("Error closing queue client", "error", err)
		}
	}()
	commandQueue := queue.NewCommandQueue(queueClient)
	log.Info("Queue service initialized successfully")

	store, err := storage.Open(startCtx, cfg, log)
	if err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing storage", "error", err)
		}
	}()
	log.Info("Storage service initialized successfully")

	b := bot.New(store, bot.OptionsFromConfig(cfg), log)

	// The queue client doubles as the lock and pub/sub connection.
	w := worker.New(commandQueue, b, queueClient.GetRedisClient(), log, cfg.WorkerID)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
		}
	}()

	log.Info("Worker started, waiting for requests...", "worker_id", w.ID(), "prefix", b.Prefix())

	<-quit
	log.Info("Worker shutdown signal received")

	w.Stop()

	// Give worker time to finish current request
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn("Worker did not stop in time")
	}

	log.Info("Worker exited")
}
