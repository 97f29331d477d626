package main

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

	"github.com/jwebster45206/dicebot/pkg/command"
)

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// RollError is an expression the API refused to evaluate.
type RollError struct {
	Message string
	Code    string
}

func (e *RollError) Error() string {
	return e.Message
}

// postJSON sends body and decodes a 2xx answer into out. Non-2xx answers
// are returned as the decoded ErrorResponse with the status code.
func postJSON(client *http.Client, endpoint string, lang string, body, out any) (int, *command.ErrorResponse, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if lang != "" {
		req.Header.Set("Accept-Language", lang)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errorResp command.ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil || errorResp.Error == "" {
			return resp.StatusCode, nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return resp.StatusCode, &errorResp, nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return resp.StatusCode, nil, nil
}

// rollExpression evaluates expr synchronously. An expression the engine
// rejects comes back as *RollError.
func rollExpression(client *http.Client, baseURL, lang string, req command.RollRequest) (*command.RollResponse, error) {
	var out command.RollResponse
	status, errorResp, err := postJSON(client, baseURL+"/v1/roll", lang, req, &out)
	if err != nil {
		return nil, err
	}
	if errorResp != nil {
		if status == http.StatusUnprocessableEntity {
			return nil, &RollError{Message: errorResp.Error, Code: errorResp.Code}
		}
		return nil, fmt.Errorf("roll failed: %s", errorResp.Error)
	}
	return &out, nil
}

// sendCommand queues a chat command and returns its request id. The reply
// arrives on the event stream.
func sendCommand(client *http.Client, baseURL, lang string, req command.CommandRequest) (string, error) {
	var out command.CommandAccepted
	_, errorResp, err := postJSON(client, baseURL+"/v1/commands", lang, req, &out)
	if err != nil {
		return "", err
	}
	if errorResp != nil {
		return "", fmt.Errorf("failed to send command: %s", errorResp.Error)
	}
	return out.RequestID.String(), nil
}

func getJSON(client *http.Client, endpoint string, out any) error {
	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// CharacterSummary is one entry of GET /v1/characters.
type CharacterSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Class   string `json:"class"`
	Level   int    `json:"level"`
	Attacks int    `json:"attacks"`
}

func listCharacters(client *http.Client, baseURL string) ([]CharacterSummary, error) {
	var out []CharacterSummary
	if err := getJSON(client, baseURL+"/v1/characters", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func getHistory(client *http.Client, baseURL, channelID string, limit int) ([]command.RollRecord, error) {
	var out []command.RollRecord
	endpoint := fmt.Sprintf("%s/v1/rolls/%s?limit=%d", baseURL, url.PathEscape(channelID), limit)
	if err := getJSON(client, endpoint, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SSEEvent represents an event from the SSE stream
type SSEEvent struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id"`
	Data      map[string]any `json:"data"`
}

// listenToSSE connects to the channel's event stream and forwards events
// until ctx is cancelled or the stream ends.
func listenToSSE(ctx context.Context, client *http.Client, baseURL, channelID string, eventChan chan<- SSEEvent) error {
	endpoint := fmt.Sprintf("%s/v1/events/channel/%s", baseURL, url.PathEscape(channelID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to SSE: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("SSE connection failed with status %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	var current SSEEvent

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			// Empty line signals end of event
			if current.Type != "" {
				select {
				case eventChan <- current:
				case <-ctx.Done():
					return ctx.Err()
				}
				current = SSEEvent{}
			}
			continue
		}

		if name, ok := strings.CutPrefix(line, "event: "); ok {
			current.Type = name
		} else if data, ok := strings.CutPrefix(line, "data: "); ok {
			var payload SSEEvent
			if err := json.Unmarshal([]byte(data), &payload); err == nil {
				current.RequestID = payload.RequestID
				current.Data = payload.Data
			}
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return nil
}
