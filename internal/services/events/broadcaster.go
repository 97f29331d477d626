package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/dicebot/pkg/command"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeRequestQueued     EventType = "request.queued"
	EventTypeRequestProcessing EventType = "request.processing"
	EventTypeRequestCompleted  EventType = "request.completed"
	EventTypeRequestFailed     EventType = "request.failed"
	EventTypeReply             EventType = "reply"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType      `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	ChannelID string         `json:"channel_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// ChannelKey is the pub/sub channel carrying events for one chat channel.
func ChannelKey(channelID string) string {
	return "channel-events:" + channelID
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishRequestQueued publishes a request.queued event
func (b *Broadcaster) PublishRequestQueued(ctx context.Context, channelID string, requestID uuid.UUID, content string) error {
	return b.publish(ctx, Event{
		Type:      EventTypeRequestQueued,
		RequestID: requestID.String(),
		ChannelID: channelID,
		Data: map[string]any{
			"status":  "queued",
			"content": content,
		},
	})
}

// PublishRequestProcessing publishes a request.processing event
func (b *Broadcaster) PublishRequestProcessing(ctx context.Context, channelID string, requestID uuid.UUID, workerID string) error {
	return b.publish(ctx, Event{
		Type:      EventTypeRequestProcessing,
		RequestID: requestID.String(),
		ChannelID: channelID,
		Data: map[string]any{
			"status":    "processing",
			"worker_id": workerID,
		},
	})
}

// PublishReply publishes the bot's reply to a request
func (b *Broadcaster) PublishReply(ctx context.Context, reply *command.Reply) error {
	data := map[string]any{
		"content": reply.Content,
	}
	if reply.Code != "" {
		data["code"] = reply.Code
	}
	return b.publish(ctx, Event{
		Type:      EventTypeReply,
		RequestID: reply.RequestID.String(),
		ChannelID: reply.ChannelID,
		Data:      data,
	})
}

// PublishRequestCompleted publishes a request.completed event
func (b *Broadcaster) PublishRequestCompleted(ctx context.Context, channelID string, requestID uuid.UUID, durationMs int64) error {
	return b.publish(ctx, Event{
		Type:      EventTypeRequestCompleted,
		RequestID: requestID.String(),
		ChannelID: channelID,
		Data: map[string]any{
			"status":      "completed",
			"duration_ms": durationMs,
		},
	})
}

// PublishRequestFailed publishes a request.failed event
func (b *Broadcaster) PublishRequestFailed(ctx context.Context, channelID string, requestID uuid.UUID, errorMsg string) error {
	return b.publish(ctx, Event{
		Type:      EventTypeRequestFailed,
		RequestID: requestID.String(),
		ChannelID: channelID,
		Data: map[string]any{
			"status": "failed",
			"error":  errorMsg,
		},
	})
}

// publish sends an event to the chat channel's pub/sub channel
func (b *Broadcaster) publish(ctx context.Context, event Event) error {
	channel := ChannelKey(event.ChannelID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"request_id", event.RequestID,
	)
	return nil
}
