package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type ConsoleConfig struct {
	APIBaseURL string
	ChannelID  string
	User       string
	Prefix     string
	Lang       string
	Timeout    time.Duration
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		ChannelID:  getEnv("CONSOLE_CHANNEL", "console"),
		User:       getEnv("USER", "player"),
		Prefix:     getEnv("COMMAND_PREFIX", "~"),
		Lang:       os.Getenv("CONSOLE_LANG"),
		Timeout:    30 * time.Second,
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
	}

	if !testConnection(client, cfg.APIBaseURL) {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: docker-compose up -d\n")
		os.Exit(1)
	}

	// The event stream needs a client without a timeout.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan SSEEvent, 16)
	go func() {
		defer close(events)
		if err := listenToSSE(ctx, &http.Client{}, cfg.APIBaseURL, cfg.ChannelID, events); err != nil {
			fmt.Fprintf(os.Stderr, "event stream closed: %v\n", err)
		}
	}()

	p := tea.NewProgram(NewConsoleUI(cfg, client, events),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
