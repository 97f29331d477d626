package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/dicebot/internal/config"
	"github.com/jwebster45206/dicebot/pkg/storage"
)

// Open builds the storage backend named by cfg.StorageBackend and waits
// until it answers a ping.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case "redis":
		rs, err := NewRedisStorage(cfg.RedisURL, cfg.DataDir, cfg.HistoryLimit, logger)
		if err != nil {
			return nil, err
		}
		if err := rs.WaitForConnection(ctx, 2*time.Second); err != nil {
			_ = rs.Close()
			return nil, err
		}
		return rs, nil
	case "sqlite":
		ss, err := NewSQLiteStorage(cfg.SQLitePath, cfg.DataDir, cfg.HistoryLimit, logger)
		if err != nil {
			return nil, err
		}
		if err := ss.Ping(ctx); err != nil {
			_ = ss.Close()
			return nil, err
		}
		return ss, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}
