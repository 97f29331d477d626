package storage

import (
	"context"
	"errors"

	"github.com/jwebster45206/dicebot/pkg/actor"
	"github.com/jwebster45206/dicebot/pkg/command"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines a unified interface for all storage operations
// Roll history lives in Redis or SQLite; character sheets are loaded from the filesystem
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Roll history, per channel
	// AppendRoll records a roll under rec.ChannelID, dropping the oldest
	// entries beyond the backend's history limit
	AppendRoll(ctx context.Context, rec command.RollRecord) error
	// ListRolls returns up to limit records, newest first
	ListRolls(ctx context.Context, channelID string, limit int) ([]command.RollRecord, error)

	// Character operations (returns the spec, not the built Character)
	// Use actor.NewCharacterFromSpec to build the d20.Actor
	GetCharacterSpec(ctx context.Context, id string) (*actor.CharacterSpec, error)
	ListCharacters(ctx context.Context) ([]string, error)
}
