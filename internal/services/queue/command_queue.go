package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/dicebot/pkg/command"
)

// RequestsKey is the Redis list holding pending command requests.
const RequestsKey = "requests"

// CommandQueue is a FIFO of chat command requests shared by the API and
// the workers.
type CommandQueue struct {
	client *Client
}

func NewCommandQueue(client *Client) *CommandQueue {
	return &CommandQueue{
		client: client,
	}
}

// Enqueue appends a request to the tail of the queue
func (q *CommandQueue) Enqueue(ctx context.Context, req *command.Request) error {
	data, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}

	if err := q.client.rdb.RPush(ctx, RequestsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue request: %w", err)
	}
	return nil
}

// Requeue puts a request back at the head of the queue so it is dequeued
// before anything enqueued after it.
func (q *CommandQueue) Requeue(ctx context.Context, req *command.Request) error {
	data, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}

	if err := q.client.rdb.LPush(ctx, RequestsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to requeue request: %w", err)
	}
	return nil
}

// Dequeue removes and returns the next request.
// Returns nil if queue is empty
func (q *CommandQueue) Dequeue(ctx context.Context) (*command.Request, error) {
	result, err := q.client.rdb.LPop(ctx, RequestsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}
	return parseRequest(result)
}

// BlockingDequeue waits up to timeout for a request. It returns nil, nil
// when the timeout passes or ctx is cancelled with the queue still empty.
func (q *CommandQueue) BlockingDequeue(ctx context.Context, timeout time.Duration) (*command.Request, error) {
	result, err := q.client.rdb.BLPop(ctx, timeout, RequestsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}

	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}
	return parseRequest(result[1])
}

func parseRequest(data string) (*command.Request, error) {
	req, err := command.FromJSON([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}

// Depth returns the number of pending requests
func (q *CommandQueue) Depth(ctx context.Context) (int, error) {
	count, err := q.client.rdb.LLen(ctx, RequestsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue depth: %w", err)
	}
	return int(count), nil
}

// Clear drops every pending request
func (q *CommandQueue) Clear(ctx context.Context) error {
	if err := q.client.rdb.Del(ctx, RequestsKey).Err(); err != nil {
		return fmt.Errorf("failed to clear request queue: %w", err)
	}
	return nil
}
