package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Provider is the completion API boundary. Each call is one round: the
// transcript and tool schemas go out, a final answer or tool calls come back.
// When onToken is non-nil, providers that can stream forward text fragments
// as they arrive; onToken is always called from the ChatStream goroutine.
type Provider interface {
	ChatStream(ctx context.Context, req Request, onToken func(string)) (*Response, error)
}

// Request carries one round's input. Zero values select provider defaults.
type Request struct {
	Model           string
	Transcript      []Turn
	Tools           []ToolSchema
	Temperature     *float64
	MaxOutputTokens int64
}

// ToolSchema is what the model sees of a tool. Executors never cross this boundary.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	CallID    string          `json:"callId"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Response is a model reply: either final text or one or more tool calls.
type Response struct {
	Text      string
	ToolCalls []ToolCall
	Usage     Usage
	Model     string
}

// Usage counts units as reported by the completion API.
type Usage struct {
	PromptUnits     int64 `json:"promptTokens"`
	CompletionUnits int64 `json:"completionTokens"`
	TotalUnits      int64 `json:"totalTokens"`
}

// Add accumulates another round's usage.
func (u *Usage) Add(o Usage) {
	u.PromptUnits += o.PromptUnits
	u.CompletionUnits += o.CompletionUnits
	u.TotalUnits += o.TotalUnits
}

// ErrMalformedResponse marks a reply that violates the completion contract.
var ErrMalformedResponse = errors.New("malformed completion response")

// Validate checks that every tool call is well formed.
func (r *Response) Validate() error {
	seen := make(map[string]struct{}, len(r.ToolCalls))
	for i, c := range r.ToolCalls {
		if c.Name == "" {
			return fmt.Errorf("tool call %d has no name: %w", i, ErrMalformedResponse)
		}
		if c.CallID == "" {
			return fmt.Errorf("tool call %d (%s) has no call id: %w", i, c.Name, ErrMalformedResponse)
		}
		if _, dup := seen[c.CallID]; dup {
			return fmt.Errorf("duplicate call id %q: %w", c.CallID, ErrMalformedResponse)
		}
		seen[c.CallID] = struct{}{}
		if len(c.Arguments) > 0 && !json.Valid(c.Arguments) {
			return fmt.Errorf("tool call %s has invalid JSON arguments: %w", c.CallID, ErrMalformedResponse)
		}
	}
	return nil
}

// Turn is one entry of a transcript. The unexported marker keeps the set closed.
type Turn interface {
	turn()
}

type SystemTurn struct {
	Text string
}

type UserTurn struct {
	Text string
}

type AssistantTurn struct {
	Text      string
	ToolCalls []ToolCall
}

// ToolResultTurn carries a tool's JSON payload back to the model. Content is
// an {"error": ...} object when IsError is set.
type ToolResultTurn struct {
	ToolName string
	CallID   string
	Content  string
	IsError  bool
}

func (SystemTurn) turn()     {}
func (UserTurn) turn()       {}
func (AssistantTurn) turn()  {}
func (ToolResultTurn) turn() {}

var (
	_ Turn = SystemTurn{}
	_ Turn = UserTurn{}
	_ Turn = AssistantTurn{}
	_ Turn = ToolResultTurn{}
)

// systemPrompt joins all system turns; providers with a dedicated system
// field use it instead of an in-transcript message.
func systemPrompt(transcript []Turn) string {
	var out string
	for _, t := range transcript {
		if s, ok := t.(SystemTurn); ok {
			if out != "" {
				out += "\n\n"
			}
			out += s.Text
		}
	}
	return out
}

// rawArgs returns the call's arguments, substituting {} for empty payloads.
func rawArgs(c ToolCall) json.RawMessage {
	if len(c.Arguments) == 0 {
		return json.RawMessage("{}")
	}
	return c.Arguments
}
