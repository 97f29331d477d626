package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        string     `env:"PORT" envDefault:"8080"`
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string     `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level `env:"-"`

	RedisURL       string `env:"REDIS_URL" envDefault:"localhost:6379"`
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"redis"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"data/dicebot.db"`
	DataDir        string `env:"DATA_DIR" envDefault:"data"`

	CommandPrefix string `env:"COMMAND_PREFIX" envDefault:"~"`
	ContentRating string `env:"CONTENT_RATING" envDefault:"PG13"`
	DiceMaxCount  int64  `env:"DICE_MAX_COUNT" envDefault:"1000"`
	HistoryLimit  int    `env:"HISTORY_LIMIT" envDefault:"100"`
	DefaultLocale string `env:"DEFAULT_LOCALE" envDefault:"en-US"`

	WorkerID string `env:"WORKER_ID"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case "redis", "sqlite":
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q (supported: redis, sqlite)", c.StorageBackend)
	}
	if strings.TrimSpace(c.CommandPrefix) == "" {
		return fmt.Errorf("COMMAND_PREFIX cannot be empty")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	if c.DiceMaxCount < 0 {
		return fmt.Errorf("DICE_MAX_COUNT cannot be negative, got %d", c.DiceMaxCount)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
