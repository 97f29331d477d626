package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/dicebot/pkg/command"
	"github.com/jwebster45206/dicebot/pkg/storage"
)

// RedisStorage keeps roll history in Redis lists and reads character
// sheets from the filesystem.
type RedisStorage struct {
	characterFiles
	client       *redis.Client
	logger       *slog.Logger
	historyLimit int
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL is either
// host:port or a redis:// URL.
func NewRedisStorage(redisURL, dataDir string, historyLimit int, logger *slog.Logger) (*RedisStorage, error) {
	opt, err := redisOptions(redisURL)
	if err != nil {
		return nil, err
	}
	return NewRedisStorageWithClient(redis.NewClient(opt), dataDir, historyLimit, logger), nil
}

func redisOptions(redisURL string) (*redis.Options, error) {
	if !strings.Contains(redisURL, "://") {
		return &redis.Options{Addr: redisURL}, nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return opt, nil
}

// NewRedisStorageWithClient wraps an existing client.
func NewRedisStorageWithClient(client *redis.Client, dataDir string, historyLimit int, logger *slog.Logger) *RedisStorage {
	if dataDir == "" {
		dataDir = "./data"
	}
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &RedisStorage{
		characterFiles: characterFiles{dataDir: dataDir},
		client:         client,
		logger:         logger,
		historyLimit:   historyLimit,
	}
}

func rollsKey(channelID string) string {
	return "rolls:" + channelID
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context, retryDelay time.Duration) error {
	const maxRetries = 30

	for i := 0; i < maxRetries; i++ {
		err := r.Ping(ctx)
		if err == nil {
			r.logger.Info("Redis connection established")
			return nil
		}
		r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
		case <-time.After(retryDelay):
		}
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// AppendRoll pushes the record onto the head of the channel's list and
// trims the list to the history limit in the same transaction.
func (r *RedisStorage) AppendRoll(ctx context.Context, rec command.RollRecord) error {
	if rec.ChannelID == "" {
		return fmt.Errorf("channel id cannot be empty")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal roll record: %w", err)
	}

	key := rollsKey(rec.ChannelID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, int64(r.historyLimit-1))
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to append roll", "channel_id", rec.ChannelID, "error", err)
		return fmt.Errorf("failed to append roll: %w", err)
	}
	return nil
}

func (r *RedisStorage) ListRolls(ctx context.Context, channelID string, limit int) ([]command.RollRecord, error) {
	if limit <= 0 || limit > r.historyLimit {
		limit = r.historyLimit
	}

	items, err := r.client.LRange(ctx, rollsKey(channelID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list rolls: %w", err)
	}

	records := make([]command.RollRecord, 0, len(items))
	for _, item := range items {
		var rec command.RollRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			r.logger.Warn("Skipping unreadable roll record", "channel_id", channelID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
