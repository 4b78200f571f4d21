package agent

import "context"

type EventType string

const (
	EventToken      EventType = "token"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

// Event is pushed to the caller while a run progresses. Data is a string for
// token and error events, a ToolCallEvent or ToolResultEvent for tool events
// and the *Result for done.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

type ToolCallEvent struct {
	Tool      string `json:"tool"`
	CallID    string `json:"callId"`
	Arguments string `json:"arguments"`
}

type ToolResultEvent struct {
	Tool    string `json:"tool"`
	CallID  string `json:"callId"`
	Content string `json:"content"`
	IsError bool   `json:"isError"`
}

// Request is one user message plus the free-form context object the prompt
// template may read.
type Request struct {
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// Runner executes one agent run. emit may be nil; when set, text fragments
// are streamed as token events.
type Runner interface {
	Run(ctx context.Context, req Request, emit func(Event)) (*Result, error)
}
