package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jwebster45206/dicebot/pkg/command"
	"github.com/jwebster45206/dicebot/pkg/storage"
)

// SQLiteStorage keeps roll history in a SQLite file and reads character
// sheets from the filesystem.
type SQLiteStorage struct {
	characterFiles
	mu           sync.Mutex
	db           *sql.DB
	logger       *slog.Logger
	historyLimit int
}

var _ storage.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens (creating if needed) the database at path.
func NewSQLiteStorage(path, dataDir string, historyLimit int, logger *slog.Logger) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS rolls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			channel_id TEXT NOT NULL,
			user_name TEXT NOT NULL DEFAULT '',
			expression TEXT NOT NULL,
			result TEXT NOT NULL,
			rolled_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS rolls_channel ON rolls (channel_id, id);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if dataDir == "" {
		dataDir = "./data"
	}
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &SQLiteStorage{
		characterFiles: characterFiles{dataDir: dataDir},
		db:             db,
		logger:         logger,
		historyLimit:   historyLimit,
	}, nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// AppendRoll inserts the record and deletes the channel's rows beyond the
// history limit.
func (s *SQLiteStorage) AppendRoll(ctx context.Context, rec command.RollRecord) error {
	if rec.ChannelID == "" {
		return fmt.Errorf("channel id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO rolls (channel_id, user_name, expression, result, rolled_at) VALUES (?, ?, ?, ?, ?)",
		rec.ChannelID, rec.User, rec.Expression, rec.Result, rec.RolledAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert roll: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM rolls WHERE channel_id = ? AND id NOT IN (
			SELECT id FROM rolls WHERE channel_id = ? ORDER BY id DESC LIMIT ?
		)`, rec.ChannelID, rec.ChannelID, s.historyLimit)
	if err != nil {
		return fmt.Errorf("failed to trim rolls: %w", err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to append roll", "channel_id", rec.ChannelID, "error", err)
		return fmt.Errorf("failed to commit roll: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ListRolls(ctx context.Context, channelID string, limit int) ([]command.RollRecord, error) {
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT user_name, expression, result, rolled_at FROM rolls WHERE channel_id = ? ORDER BY id DESC LIMIT ?",
		channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rolls: %w", err)
	}
	defer rows.Close()

	records := []command.RollRecord{}
	for rows.Next() {
		var (
			rec      command.RollRecord
			rolledAt int64
		)
		if err := rows.Scan(&rec.User, &rec.Expression, &rec.Result, &rolledAt); err != nil {
			return nil, fmt.Errorf("failed to scan roll: %w", err)
		}
		rec.ChannelID = channelID
		rec.RolledAt = time.Unix(0, rolledAt).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rolls: %w", err)
	}
	return records, nil
}
