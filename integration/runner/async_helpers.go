package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jwebster45206/dicebot/pkg/command"
)

const (
	// ReplyTimeout is max time to wait for a worker reply on the event stream
	ReplyTimeout = 30 * time.Second
	// ConnectTimeout is max time to wait for the stream's connected event
	ConnectTimeout = 10 * time.Second
)

// StreamEvent is one event read from /v1/events/channel/{id}.
type StreamEvent struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id"`
	ChannelID string         `json:"channel_id"`
	Data      map[string]any `json:"data"`
}

// Content returns data.content, the reply text.
func (e StreamEvent) Content() string {
	s, _ := e.Data["content"].(string)
	return s
}

// Code returns data.code, set on error replies.
func (e StreamEvent) Code() string {
	s, _ := e.Data["code"].(string)
	return s
}

// EventStream is an open SSE subscription to one channel.
type EventStream struct {
	resp   *http.Response
	events chan StreamEvent
	errs   chan error
	done   chan struct{}
	once   sync.Once
}

// OpenEventStream subscribes to a channel and waits for the connected event,
// so that commands posted afterwards cannot miss their reply.
func OpenEventStream(ctx context.Context, client *http.Client, baseURL, channelID string) (*EventStream, error) {
	endpoint := fmt.Sprintf("%s/v1/events/channel/%s", baseURL, url.PathEscape(channelID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create events request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// The shared client has a total timeout that would cut the stream.
	streamClient := &http.Client{Transport: client.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("events endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	s := &EventStream{
		resp:   resp,
		events: make(chan StreamEvent, 32),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	go s.read()

	select {
	case ev, ok := <-s.events:
		if !ok {
			s.Close()
			return nil, fmt.Errorf("event stream closed before connecting: %w", <-s.errs)
		}
		if ev.Type != "connected" {
			s.Close()
			return nil, fmt.Errorf("expected connected event, got %s", ev.Type)
		}
	case <-time.After(ConnectTimeout):
		s.Close()
		return nil, fmt.Errorf("timeout waiting for connected event (waited %v)", ConnectTimeout)
	case <-ctx.Done():
		s.Close()
		return nil, ctx.Err()
	}
	return s, nil
}

func (s *EventStream) read() {
	defer close(s.events)

	scanner := bufio.NewScanner(s.resp.Body)
	var eventType string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data := strings.TrimPrefix(line, "data: ")
			var ev StreamEvent
			if eventType == "connected" {
				ev.Type = eventType
			} else if err := json.Unmarshal([]byte(data), &ev); err != nil {
				continue
			}
			if ev.Type == "" {
				ev.Type = eventType
			}
			select {
			case s.events <- ev:
			case <-s.done:
				return
			}
			eventType = ""
		}
	}
	s.errs <- scanner.Err()
}

// Close ends the subscription.
func (s *EventStream) Close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.resp.Body.Close()
	})
}

// WaitForReply reads events until the reply for requestID arrives. A
// request.failed event for the request still yields its reply when one was
// published first.
func (s *EventStream) WaitForReply(ctx context.Context, requestID string) (StreamEvent, error) {
	timeout := time.After(ReplyTimeout)
	for {
		select {
		case <-ctx.Done():
			return StreamEvent{}, ctx.Err()
		case <-timeout:
			return StreamEvent{}, fmt.Errorf("timeout waiting for reply to %s (waited %v)", requestID, ReplyTimeout)
		case ev, ok := <-s.events:
			if !ok {
				return StreamEvent{}, fmt.Errorf("event stream closed while waiting for %s", requestID)
			}
			if ev.RequestID != requestID {
				continue
			}
			switch ev.Type {
			case "reply":
				return ev, nil
			case "request.failed":
				return StreamEvent{}, fmt.Errorf("request %s failed: %v", requestID, ev.Data["error"])
			case "request.completed":
				return StreamEvent{}, fmt.Errorf("request %s completed without a reply", requestID)
			}
		}
	}
}

// PostCommandAsync posts a chat command and returns the request_id
func PostCommandAsync(ctx context.Context, client *http.Client, baseURL, lang string, cmd command.CommandRequest) (string, error) {
	reqBody, err := json.Marshal(cmd)
	if err != nil {
		return "", fmt.Errorf("failed to marshal command request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/commands", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create command request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if lang != "" {
		req.Header.Set("Accept-Language", lang)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send command request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("commands endpoint returned %d (expected 202): %s", resp.StatusCode, string(body))
	}

	var accepted command.CommandAccepted
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		return "", fmt.Errorf("failed to parse command response: %w", err)
	}
	return accepted.RequestID.String(), nil
}

// PostRoll evaluates an expression synchronously. The returned text is the
// result on success and the error message otherwise.
func PostRoll(ctx context.Context, client *http.Client, baseURL, lang string, roll command.RollRequest) (status int, text, code string, err error) {
	reqBody, err := json.Marshal(roll)
	if err != nil {
		return 0, "", "", fmt.Errorf("failed to marshal roll request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/roll", bytes.NewBuffer(reqBody))
	if err != nil {
		return 0, "", "", fmt.Errorf("failed to create roll request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if lang != "" {
		req.Header.Set("Accept-Language", lang)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, "", "", fmt.Errorf("failed to send roll request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK {
		var rr command.RollResponse
		if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
			return resp.StatusCode, "", "", fmt.Errorf("failed to decode roll response: %w", err)
		}
		return resp.StatusCode, rr.Result, "", nil
	}

	var er command.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return resp.StatusCode, "", "", fmt.Errorf("roll endpoint returned %d with unreadable body: %w", resp.StatusCode, err)
	}
	return resp.StatusCode, er.Error, er.Code, nil
}

// GetHistory retrieves the channel's recorded rolls
func GetHistory(ctx context.Context, client *http.Client, baseURL, channelID string) ([]command.RollRecord, error) {
	endpoint := fmt.Sprintf("%s/v1/rolls/%s?limit=100", baseURL, url.PathEscape(channelID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create history request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send history request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("history endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var records []command.RollRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return records, nil
}
