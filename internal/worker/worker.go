package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/dicebot/internal/bot"
	"github.com/jwebster45206/dicebot/internal/logger"
	"github.com/jwebster45206/dicebot/internal/services/events"
	"github.com/jwebster45206/dicebot/internal/services/queue"
	"github.com/jwebster45206/dicebot/pkg/command"
)

const (
	workerTimeout = 5 * time.Second
	lockTTL       = 30 * time.Second
	requeueDelay  = 100 * time.Millisecond
)

// releaseScript deletes the lock only if this worker still owns it.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Handler produces the bot's response to one chat command.
type Handler interface {
	Handle(ctx context.Context, req *command.Request) (*bot.Response, error)
}

// Worker drains the command queue. Commands from one channel are handled
// one at a time, in queue order.
type Worker struct {
	id          string
	queue       *queue.CommandQueue
	handler     Handler
	broadcaster *events.Broadcaster
	redisClient *redis.Client
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new worker instance
func New(commandQueue *queue.CommandQueue, handler Handler, redisClient *redis.Client, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		queue:       commandQueue,
		handler:     handler,
		broadcaster: events.NewBroadcaster(redisClient, log),
		redisClient: redisClient,
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ID returns the worker's id, used as the lock owner.
func (w *Worker) ID() string {
	return w.id
}

// Start processes requests until Stop is called.
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "worker_id", w.id)

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down", "worker_id", w.id)
			return nil
		default:
			if err := w.processNextRequest(); err != nil {
				w.log.Error("Error processing request", "error", err, "worker_id", w.id)
				// Continue processing even on error
				select {
				case <-w.ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

// processNextRequest pulls the next request from the queue and processes it
func (w *Worker) processNextRequest() error {
	// Block waiting for next request (timeout after 5 seconds to check for shutdown)
	ctx, cancel := context.WithTimeout(w.ctx, workerTimeout)
	defer cancel()

	req, err := w.queue.BlockingDequeue(ctx, workerTimeout)
	if err != nil {
		return fmt.Errorf("failed to dequeue request: %w", err)
	}
	if req == nil {
		return nil
	}

	log := logger.WithChannel(logger.WithRequestID(w.log, req.RequestID.String()), req.ChannelID).With("worker_id", w.id)
	log.Debug("Received request from queue")

	locked, err := w.acquireChannelLock(req.ChannelID)
	if err != nil {
		// put it back so the command is not lost
		if qErr := w.queue.Requeue(w.ctx, req); qErr != nil {
			log.Error("Failed to re-queue request", "error", qErr)
		}
		return fmt.Errorf("failed to acquire channel lock: %w", err)
	}
	if !locked {
		log.Debug("Channel already locked, re-queueing request")
		if err := w.queue.Requeue(w.ctx, req); err != nil {
			return fmt.Errorf("failed to re-queue request: %w", err)
		}
		select {
		case <-w.ctx.Done():
		case <-time.After(requeueDelay):
		}
		return nil
	}

	defer w.releaseChannelLock(req.ChannelID)
	return w.processRequest(log, req)
}

func lockKey(channelID string) string {
	return "channel-lock:" + channelID
}

// acquireChannelLock attempts to acquire a lock for a channel.
// Returns true if lock was acquired, false if already locked
func (w *Worker) acquireChannelLock(channelID string) (bool, error) {
	return w.redisClient.SetNX(w.ctx, lockKey(channelID), w.id, lockTTL).Result()
}

func (w *Worker) releaseChannelLock(channelID string) {
	// the worker context may already be cancelled on shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, w.redisClient, []string{lockKey(channelID)}, w.id).Err(); err != nil {
		w.log.Error("Failed to release channel lock", "error", err, "channel_id", channelID)
	}
}

// processRequest runs one command through the bot and publishes the
// lifecycle events around its reply.
func (w *Worker) processRequest(log *slog.Logger, req *command.Request) error {
	start := time.Now()

	if err := w.broadcaster.PublishRequestProcessing(w.ctx, req.ChannelID, req.RequestID, w.id); err != nil {
		log.Error("Failed to publish processing event", "error", err)
	}

	resp, handleErr := w.handler.Handle(w.ctx, req)
	if handleErr != nil {
		log.Error("Command failed", "error", handleErr)
	}

	if resp != nil && !resp.Ignored {
		reply := &command.Reply{
			RequestID: req.RequestID,
			ChannelID: req.ChannelID,
			Content:   resp.Content,
			Code:      resp.Code,
		}
		if err := w.broadcaster.PublishReply(w.ctx, reply); err != nil {
			log.Error("Failed to publish reply", "error", err)
		}
	}

	if handleErr != nil {
		if err := w.broadcaster.PublishRequestFailed(w.ctx, req.ChannelID, req.RequestID, handleErr.Error()); err != nil {
			log.Error("Failed to publish failure event", "error", err)
		}
		return fmt.Errorf("failed to process command: %w", handleErr)
	}

	durationMs := time.Since(start).Milliseconds()
	if err := w.broadcaster.PublishRequestCompleted(w.ctx, req.ChannelID, req.RequestID, durationMs); err != nil {
		log.Error("Failed to publish completion event", "error", err)
	}

	log.Info("Command processed", "duration_ms", durationMs, "ignored", resp == nil || resp.Ignored)
	return nil
}
