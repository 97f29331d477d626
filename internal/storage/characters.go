package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jwebster45206/dicebot/pkg/actor"
	"github.com/jwebster45206/dicebot/pkg/storage"
)

// characterFiles loads character sheets from <dataDir>/characters/<id>.json.
// Both storage backends share it.
type characterFiles struct {
	dataDir string
}

func (c characterFiles) dir() string {
	return filepath.Join(c.dataDir, "characters")
}

// validID rejects ids that could escape the characters directory.
func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && id != "." && id != ".."
}

func (c characterFiles) GetCharacterSpec(ctx context.Context, id string) (*actor.CharacterSpec, error) {
	if !validID(id) {
		return nil, fmt.Errorf("character %q: %w", id, storage.ErrNotFound)
	}

	data, err := os.ReadFile(filepath.Join(c.dir(), id+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("character %q: %w", id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read character file: %w", err)
	}

	// Filename is the id
	return actor.ParseSpec(data, id)
}

func (c characterFiles) ListCharacters(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(c.dir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read characters directory: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}
	slices.Sort(ids)
	return ids, nil
}
