package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/dicebot/internal/services/queue"
	"github.com/jwebster45206/dicebot/pkg/command"
)

func main() {
	redisURL := flag.String("redis", "redis://localhost:6379", "Redis address or URL")
	channel := flag.String("channel", "test-channel", "chat channel id")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := queue.NewClient(ctx, *redisURL, logger)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer client.Close()

	fmt.Println("Connected to Redis successfully!")

	q := queue.NewCommandQueue(client)

	contents := flag.Args()
	if len(contents) == 0 {
		contents = []string{
			"~ping",
			"~roll 4d6kh3",
			"~roll (1d4)d6 + 2",
			"~8ball will the dragon sleep?",
			"~check mira dex",
			"~attack mira shortsword",
			"~roll 2x",
		}
	}

	for _, content := range contents {
		req := &command.Request{
			RequestID:  uuid.New(),
			ChannelID:  *channel,
			User:       "test-player",
			Content:    content,
			EnqueuedAt: time.Now().UTC(),
		}
		if err := q.Enqueue(ctx, req); err != nil {
			log.Fatal("Failed to enqueue request:", err)
		}
		fmt.Printf("✅ Enqueued %q: %s\n", content, req.RequestID)
	}

	depth, err := q.Depth(ctx)
	if err != nil {
		log.Fatal("Failed to get queue depth:", err)
	}

	fmt.Printf("\n📊 Queue depth: %d requests\n", depth)
	fmt.Println("\n💡 Now start the worker to see it process these requests!")
	fmt.Println("   Run: go run cmd/worker/main.go")
}
