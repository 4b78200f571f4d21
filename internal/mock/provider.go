// Package mock provides test doubles for agentsmith interfaces using function fields.
package mock

import (
	"context"
	"fmt"
	"sync"

	"agentsmith/internal/llm"
)

// Interface compliance checks.
var (
	_ llm.Provider = (*Provider)(nil)
	_ llm.Provider = (*Script)(nil)
)

// Provider is a test double for llm.Provider.
// Set ChatStreamFn before calling ChatStream.
type Provider struct {
	ChatStreamFn func(ctx context.Context, req llm.Request, onToken func(string)) (*llm.Response, error)
}

// ChatStream delegates to ChatStreamFn.
func (p *Provider) ChatStream(ctx context.Context, req llm.Request, onToken func(string)) (*llm.Response, error) {
	return p.ChatStreamFn(ctx, req, onToken)
}

// Script replays canned responses in order and records every request.
// Text of each response is streamed to onToken in one fragment.
type Script struct {
	mu        sync.Mutex
	responses []*llm.Response
	requests  []llm.Request
}

func NewScript(responses ...*llm.Response) *Script {
	return &Script{responses: responses}
}

func (s *Script) ChatStream(ctx context.Context, req llm.Request, onToken func(string)) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	transcript := append([]llm.Turn(nil), req.Transcript...)
	req.Transcript = transcript
	s.requests = append(s.requests, req)
	n := len(s.requests)
	s.mu.Unlock()

	if n > len(s.responses) {
		return nil, fmt.Errorf("script exhausted after %d responses", len(s.responses))
	}
	resp := *s.responses[n-1]
	if onToken != nil && resp.Text != "" {
		onToken(resp.Text)
	}
	return &resp, nil
}

// Requests returns the requests seen so far.
func (s *Script) Requests() []llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Request(nil), s.requests...)
}

// Final is shorthand for a text-only response.
func Final(text string, usage llm.Usage) *llm.Response {
	return &llm.Response{Text: text, Usage: usage}
}

// Calls is shorthand for a response requesting the given tool calls.
func Calls(usage llm.Usage, calls ...llm.ToolCall) *llm.Response {
	return &llm.Response{ToolCalls: calls, Usage: usage}
}
