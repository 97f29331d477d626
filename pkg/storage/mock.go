package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/jwebster45206/dicebot/pkg/actor"
	"github.com/jwebster45206/dicebot/pkg/command"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu         sync.RWMutex
	rolls      map[string][]command.RollRecord // oldest first
	characters map[string]*actor.CharacterSpec
	pingError  error
	appendErr  error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		rolls:      make(map[string][]command.RollRecord),
		characters: make(map[string]*actor.CharacterSpec),
	}
}

// SetPingSuccess configures the mock to succeed on ping
func (m *MockStorage) SetPingSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = nil
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetAppendError makes AppendRoll fail with err
func (m *MockStorage) SetAppendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendErr = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// AppendRoll records a roll in memory
func (m *MockStorage) AppendRoll(ctx context.Context, rec command.RollRecord) error {
	if rec.ChannelID == "" {
		return errors.New("channel id cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.rolls[rec.ChannelID] = append(m.rolls[rec.ChannelID], rec)
	return nil
}

// ListRolls returns the newest limit records for a channel
func (m *MockStorage) ListRolls(ctx context.Context, channelID string, limit int) ([]command.RollRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.rolls[channelID]
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]command.RollRecord, 0, limit)
	for i := len(all) - 1; i >= len(all)-limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// GetCharacterSpec mocks getting a character sheet by ID
func (m *MockStorage) GetCharacterSpec(ctx context.Context, id string) (*actor.CharacterSpec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	spec, exists := m.characters[id]
	if !exists {
		return nil, fmt.Errorf("character %q: %w", id, ErrNotFound)
	}
	return spec, nil
}

// ListCharacters mocks listing characters
func (m *MockStorage) ListCharacters(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]string, 0, len(m.characters))
	for id := range m.characters {
		result = append(result, id)
	}
	slices.Sort(result)
	return result, nil
}

// AddCharacter adds a character sheet to the mock storage (for testing)
func (m *MockStorage) AddCharacter(spec *actor.CharacterSpec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.characters[spec.ID] = spec
}
