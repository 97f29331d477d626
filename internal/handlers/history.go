package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/jwebster45206/dicebot/pkg/command"
	"github.com/jwebster45206/dicebot/pkg/storage"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// HistoryHandler serves a channel's recent rolls.
type HistoryHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewHistoryHandler(store storage.Storage, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		storage: store,
		logger:  logger,
	}
}

// ServeHTTP handles GET /v1/rolls/{channelID}?limit=N
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, h.logger, http.MethodGet)
		return
	}

	channelID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/rolls"), "/")
	if channelID == "" || strings.Contains(channelID, "/") {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid path. Expected /v1/rolls/{channelID}")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, h.logger, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	rolls, err := h.storage.ListRolls(r.Context(), channelID, limit)
	if err != nil {
		h.logger.Error("Failed to list rolls", "error", err, "channel_id", channelID)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load roll history")
		return
	}
	if rolls == nil {
		rolls = []command.RollRecord{}
	}

	writeJSON(w, h.logger, http.StatusOK, rolls)
}
