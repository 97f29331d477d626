package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/dicebot/pkg/actor"
	"github.com/jwebster45206/dicebot/pkg/storage"
)

type CharactersHandler struct {
	log     *slog.Logger
	storage storage.Storage
}

func NewCharactersHandler(log *slog.Logger, store storage.Storage) *CharactersHandler {
	return &CharactersHandler{
		log:     log,
		storage: store,
	}
}

func (h *CharactersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, h.log, http.MethodGet)
		return
	}
	if r.URL.Path == "/v1/characters" || r.URL.Path == "/v1/characters/" {
		h.listCharacters(w, r)
		return
	}
	h.getCharacter(w, r)
}

// listCharacters returns a summary of every sheet on disk
func (h *CharactersHandler) listCharacters(w http.ResponseWriter, r *http.Request) {
	ids, err := h.storage.ListCharacters(r.Context())
	if err != nil {
		h.log.Error("Failed to list characters", "error", err)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to list characters")
		return
	}

	// Initialize as empty slice instead of nil
	list := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		spec, err := h.storage.GetCharacterSpec(r.Context(), id)
		if err != nil {
			h.log.Warn("Failed to load character spec", "error", err, "id", id)
			continue
		}
		list = append(list, map[string]any{
			"id":      spec.ID,
			"name":    spec.Name,
			"class":   spec.Class,
			"level":   spec.Level,
			"race":    spec.Race,
			"attacks": len(spec.Attacks),
		})
	}

	writeJSON(w, h.log, http.StatusOK, list)
}

func (h *CharactersHandler) getCharacter(w http.ResponseWriter, r *http.Request) {
	id := strings.ToLower(strings.TrimPrefix(r.URL.Path, "/v1/characters/"))
	if id == "" || strings.Contains(id, "/") {
		writeError(w, h.log, http.StatusBadRequest, "Invalid path. Expected /v1/characters/{id}")
		return
	}

	spec, err := h.storage.GetCharacterSpec(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, h.log, http.StatusNotFound, "Character not found")
		return
	}
	if err != nil {
		h.log.Error("Failed to load character", "error", err, "id", id)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to load character")
		return
	}

	c, err := actor.NewCharacterFromSpec(spec)
	if err != nil {
		h.log.Error("Failed to build character", "error", err, "id", id)
		writeError(w, h.log, http.StatusInternalServerError, "Character sheet is invalid")
		return
	}

	writeJSON(w, h.log, http.StatusOK, c)
}
