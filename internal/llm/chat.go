package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ChatProvider speaks the Chat Completions wire format. It covers OpenAI
// itself and any compatible endpoint (Ollama, vLLM, OpenRouter) via BaseURL.
type ChatProvider struct {
	client *goopenai.Client
	model  string
}

func NewChat(baseURL, apiKey, model string) *ChatProvider {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	return &ChatProvider{client: goopenai.NewClientWithConfig(cfg), model: model}
}

func (c *ChatProvider) ChatStream(ctx context.Context, req Request, onToken func(string)) (*Response, error) {
	creq := c.buildRequest(req)

	if onToken == nil {
		resp, err := c.client.CreateChatCompletion(ctx, creq)
		if err != nil {
			return nil, fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("chat completion returned no choices: %w", ErrMalformedResponse)
		}
		msg := resp.Choices[0].Message
		out := &Response{
			Text:  msg.Content,
			Model: resp.Model,
			Usage: Usage{
				PromptUnits:     int64(resp.Usage.PromptTokens),
				CompletionUnits: int64(resp.Usage.CompletionTokens),
				TotalUnits:      int64(resp.Usage.TotalTokens),
			},
		}
		for _, tc := range msg.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				CallID:    tc.ID,
				Name:      tc.Function.Name,
				Arguments: json.RawMessage(tc.Function.Arguments),
			})
		}
		return out, nil
	}

	creq.Stream = true
	creq.StreamOptions = &goopenai.StreamOptions{IncludeUsage: true}

	stream, err := c.client.CreateChatCompletionStream(ctx, creq)
	if err != nil {
		return nil, fmt.Errorf("chat completion stream: %w", err)
	}
	defer stream.Close()

	var (
		text  strings.Builder
		acc   = newToolCallAccumulator()
		out   = &Response{}
		chunk goopenai.ChatCompletionStreamResponse
	)
	for {
		chunk, err = stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("chat completion stream: %w", err)
		}
		if chunk.Model != "" {
			out.Model = chunk.Model
		}
		if chunk.Usage != nil {
			out.Usage = Usage{
				PromptUnits:     int64(chunk.Usage.PromptTokens),
				CompletionUnits: int64(chunk.Usage.CompletionTokens),
				TotalUnits:      int64(chunk.Usage.TotalTokens),
			}
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				text.WriteString(choice.Delta.Content)
				onToken(choice.Delta.Content)
			}
			for _, tc := range choice.Delta.ToolCalls {
				acc.add(tc)
			}
		}
	}

	out.Text = text.String()
	out.ToolCalls = acc.calls()
	return out, nil
}

func (c *ChatProvider) buildRequest(req Request) goopenai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}
	creq := goopenai.ChatCompletionRequest{
		Model:    model,
		Messages: toChatMessages(req.Transcript),
	}
	if req.Temperature != nil {
		creq.Temperature = float32(*req.Temperature)
		// omitempty drops 0, so send the smallest float32 instead.
		if creq.Temperature == 0 {
			creq.Temperature = math.SmallestNonzeroFloat32
		}
	}
	if req.MaxOutputTokens > 0 {
		creq.MaxTokens = int(req.MaxOutputTokens)
	}
	for _, s := range req.Tools {
		creq.Tools = append(creq.Tools, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		})
	}
	return creq
}

func toChatMessages(transcript []Turn) []goopenai.ChatCompletionMessage {
	msgs := make([]goopenai.ChatCompletionMessage, 0, len(transcript))
	for _, t := range transcript {
		switch v := t.(type) {
		case SystemTurn:
			msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: v.Text})
		case UserTurn:
			msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: v.Text})
		case AssistantTurn:
			m := goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleAssistant, Content: v.Text}
			for _, c := range v.ToolCalls {
				m.ToolCalls = append(m.ToolCalls, goopenai.ToolCall{
					ID:   c.CallID,
					Type: goopenai.ToolTypeFunction,
					Function: goopenai.FunctionCall{
						Name:      c.Name,
						Arguments: string(rawArgs(c)),
					},
				})
			}
			msgs = append(msgs, m)
		case ToolResultTurn:
			msgs = append(msgs, goopenai.ChatCompletionMessage{
				Role:       goopenai.ChatMessageRoleTool,
				Content:    v.Content,
				Name:       v.ToolName,
				ToolCallID: v.CallID,
			})
		}
	}
	return msgs
}

// toolCallAccumulator stitches streamed tool call fragments back together.
// Fragments of the same call share an index; only the first carries the id
// and name.
type toolCallAccumulator struct {
	byIndex map[int]*ToolCall
	args    map[int]*strings.Builder
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{
		byIndex: make(map[int]*ToolCall),
		args:    make(map[int]*strings.Builder),
	}
}

func (a *toolCallAccumulator) add(tc goopenai.ToolCall) {
	idx := len(a.byIndex)
	if tc.Index != nil {
		idx = *tc.Index
	}
	call, ok := a.byIndex[idx]
	if !ok {
		call = &ToolCall{}
		a.byIndex[idx] = call
		a.args[idx] = &strings.Builder{}
	}
	if tc.ID != "" {
		call.CallID = tc.ID
	}
	if tc.Function.Name != "" {
		call.Name = tc.Function.Name
	}
	a.args[idx].WriteString(tc.Function.Arguments)
}

func (a *toolCallAccumulator) calls() []ToolCall {
	if len(a.byIndex) == 0 {
		return nil
	}
	indexes := make([]int, 0, len(a.byIndex))
	for i := range a.byIndex {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	out := make([]ToolCall, 0, len(indexes))
	for _, i := range indexes {
		call := *a.byIndex[i]
		call.Arguments = json.RawMessage(a.args[i].String())
		out = append(out, call)
	}
	return out
}
