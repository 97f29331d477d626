package command

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Request is a chat command received from a channel, queued for a worker.
type Request struct {
	RequestID  uuid.UUID `json:"request_id"`
	ChannelID  string    `json:"channel_id"`
	User       string    `json:"user,omitempty"`
	Content    string    `json:"content"`
	Locale     string    `json:"locale,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Reply is what the bot sends back to the channel for a Request.
type Reply struct {
	RequestID uuid.UUID `json:"request_id"`
	ChannelID string    `json:"channel_id"`
	Content   string    `json:"content"`
	Code      string    `json:"code,omitempty"` // set when the reply reports an error
}

// MarshalJSON serializes the request to JSON for Redis storage
func (r *Request) MarshalJSON() ([]byte, error) {
	type Alias Request
	return json.Marshal(&struct {
		RequestID string `json:"request_id"`
		*Alias
	}{
		RequestID: r.RequestID.String(),
		Alias:     (*Alias)(r),
	})
}

// UnmarshalJSON deserializes the request from JSON in Redis
func (r *Request) UnmarshalJSON(data []byte) error {
	type Alias Request
	aux := &struct {
		RequestID string `json:"request_id"`
		*Alias
	}{
		Alias: (*Alias)(r),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	id, err := uuid.Parse(aux.RequestID)
	if err != nil {
		return fmt.Errorf("invalid request_id: %w", err)
	}
	r.RequestID = id
	return nil
}

// ToJSON converts the request to JSON bytes for Redis
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes
func FromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// CommandRequest is the body of POST /v1/commands.
type CommandRequest struct {
	ChannelID string `json:"channel_id"`
	User      string `json:"user,omitempty"`
	Content   string `json:"content"`
}

func (cr *CommandRequest) Validate() error {
	if strings.TrimSpace(cr.ChannelID) == "" {
		return fmt.Errorf("channel_id cannot be empty")
	}
	if strings.TrimSpace(cr.Content) == "" {
		return fmt.Errorf("content cannot be empty")
	}
	return nil
}

// CommandAccepted is returned when a command has been queued.
type CommandAccepted struct {
	RequestID uuid.UUID `json:"request_id"`
}

// RollRequest is the body of POST /v1/roll.
type RollRequest struct {
	Expression string `json:"expression"`
	ChannelID  string `json:"channel_id,omitempty"`
	User       string `json:"user,omitempty"`
}

func (rr *RollRequest) Validate() error {
	if rr.Expression == "" {
		return fmt.Errorf("expression cannot be empty")
	}
	return nil
}

// RollResponse is returned by POST /v1/roll.
type RollResponse struct {
	Expression string `json:"expression"`
	Result     string `json:"result"`
}

// RollRecord is one entry of a channel's roll history.
type RollRecord struct {
	Expression string    `json:"expression"`
	Result     string    `json:"result"`
	User       string    `json:"user,omitempty"`
	ChannelID  string    `json:"channel_id"`
	RolledAt   time.Time `json:"rolled_at"`
}

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
