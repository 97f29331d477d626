package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/dicebot/internal/bot"
	"github.com/jwebster45206/dicebot/internal/config"
	"github.com/jwebster45206/dicebot/internal/handlers"
	"github.com/jwebster45206/dicebot/internal/logger"
	"github.com/jwebster45206/dicebot/internal/middleware"
	"github.com/jwebster45206/dicebot/internal/services/events"
	"github.com/jwebster45206/dicebot/internal/services/queue"
	"github.com/jwebster45206/dicebot/internal/storage"
	"github.com/jwebster45206/dicebot/pkg/dice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Dicebot API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"storage_backend", cfg.StorageBackend)

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	store, err := storage.Open(storageCtx, cfg, log)
	if err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	queueClient, err := queue.NewClient(storageCtx, cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	commandQueue := queue.NewCommandQueue(queueClient)
	broadcaster := events.NewBroadcaster(queueClient.GetRedisClient(), log)

	opts := bot.OptionsFromConfig(cfg)
	src, err := dice.NewRandomSource()
	if err != nil {
		log.Warn("Random seed unavailable, using shared generator", "error", err)
	}
	var evalOpts []dice.Option
	if opts.MaxDice > 0 {
		evalOpts = append(evalOpts, dice.WithMaxDice(opts.MaxDice))
	} else {
		evalOpts = append(evalOpts, dice.WithMaxDice(0))
	}
	evaluator := dice.NewEvaluator(src, evalOpts...)

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(store, queueClient, log))
	mux.Handle("/v1/roll", handlers.NewRollHandler(evaluator, store, opts.Locale, log))
	mux.Handle("/v1/commands", handlers.NewCommandsHandler(commandQueue, broadcaster, log))
	mux.Handle("/v1/rolls/", handlers.NewHistoryHandler(store, log))

	charactersHandler := handlers.NewCharactersHandler(log, store)
	mux.Handle("/v1/characters", charactersHandler)
	mux.Handle("/v1/characters/", charactersHandler)

	mux.Handle("/v1/events/channel/", handlers.NewEventsHandler(queueClient.GetRedisClient(), log))

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: the event stream stays open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := queueClient.Close(); err != nil {
		log.Error("Error closing queue client", "error", err)
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
