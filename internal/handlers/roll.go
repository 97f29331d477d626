package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/text/language"

	"github.com/jwebster45206/dicebot/internal/replies"
	"github.com/jwebster45206/dicebot/pkg/command"
	"github.com/jwebster45206/dicebot/pkg/dice"
	"github.com/jwebster45206/dicebot/pkg/storage"
)

// RollHandler evaluates a dice expression synchronously.
type RollHandler struct {
	eval    *dice.Evaluator
	storage storage.Storage
	locale  language.Tag
	now     func() time.Time
	logger  *slog.Logger
}

func NewRollHandler(eval *dice.Evaluator, store storage.Storage, locale language.Tag, logger *slog.Logger) *RollHandler {
	return &RollHandler{
		eval:    eval,
		storage: store,
		locale:  locale,
		now:     time.Now,
		logger:  logger,
	}
}

// ServeHTTP handles POST /v1/roll
func (h *RollHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, h.logger, http.MethodPost)
		return
	}

	var req command.RollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid roll request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'expression' field.")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.eval.Eval(req.Expression)
	if err != nil {
		msg, code := replies.Translate(replies.Resolve(r, h.locale), err)
		h.logger.Debug("Roll rejected", "expression", req.Expression, "code", code)
		writeJSON(w, h.logger, http.StatusUnprocessableEntity, ErrorResponse{Error: msg, Code: code})
		return
	}

	if req.ChannelID != "" {
		rec := command.RollRecord{
			Expression: req.Expression,
			Result:     result,
			User:       req.User,
			ChannelID:  req.ChannelID,
			RolledAt:   h.now().UTC(),
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.storage.AppendRoll(ctx, rec); err != nil {
			h.logger.Warn("Failed to record roll", "error", err, "channel_id", req.ChannelID)
		}
	}

	writeJSON(w, h.logger, http.StatusOK, command.RollResponse{
		Expression: req.Expression,
		Result:     result,
	})
}
