package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/dicebot/internal/replies"
	"github.com/jwebster45206/dicebot/pkg/command"
)

// Enqueuer accepts commands for asynchronous processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, req *command.Request) error
}

// QueuedPublisher announces accepted commands to event subscribers.
type QueuedPublisher interface {
	PublishRequestQueued(ctx context.Context, channelID string, requestID uuid.UUID, content string) error
}

// CommandsHandler queues chat commands for the workers.
type CommandsHandler struct {
	queue     Enqueuer
	publisher QueuedPublisher
	logger    *slog.Logger
}

func NewCommandsHandler(queue Enqueuer, publisher QueuedPublisher, logger *slog.Logger) *CommandsHandler {
	return &CommandsHandler{
		queue:     queue,
		publisher: publisher,
		logger:    logger,
	}
}

// ServeHTTP handles POST /v1/commands
func (h *CommandsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, h.logger, http.MethodPost)
		return
	}

	var body command.CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.Warn("Invalid command request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'channel_id' and 'content' fields.")
		return
	}
	if err := body.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	req := &command.Request{
		RequestID:  uuid.New(),
		ChannelID:  body.ChannelID,
		User:       body.User,
		Content:    body.Content,
		Locale:     r.URL.Query().Get(replies.LangParam),
		EnqueuedAt: time.Now().UTC(),
	}
	if req.Locale == "" {
		req.Locale = r.Header.Get("Accept-Language")
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.queue.Enqueue(ctx, req); err != nil {
		h.logger.Error("Failed to enqueue command", "error", err, "channel_id", req.ChannelID)
		writeError(w, h.logger, http.StatusServiceUnavailable, "Failed to queue command. Please try again.")
		return
	}

	if h.publisher != nil {
		if err := h.publisher.PublishRequestQueued(ctx, req.ChannelID, req.RequestID, req.Content); err != nil {
			// the command is queued; subscribers just miss the notice
			h.logger.Warn("Failed to publish queued event", "error", err, "request_id", req.RequestID)
		}
	}

	h.logger.Info("Command queued",
		"request_id", req.RequestID.String(),
		"channel_id", req.ChannelID)

	writeJSON(w, h.logger, http.StatusAccepted, command.CommandAccepted{RequestID: req.RequestID})
}
