package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const anthropicDefaultMaxTokens = 1024

// AnthropicProvider uses the Messages API. Replies are not streamed; the
// full text is forwarded to onToken once the message completes.
type AnthropicProvider struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropic(baseURL, apiKey, model string, maxTokens int64) *AnthropicProvider {
	opts := []anthropicopt.RequestOption{
		anthropicopt.WithHTTPClient(&http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}),
	}
	if apiKey != "" {
		opts = append(opts, anthropicopt.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, anthropicopt.WithBaseURL(baseURL))
	}
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	cl := anthropic.NewClient(opts...)
	return &AnthropicProvider{client: &cl, model: model, maxTokens: maxTokens}
}

func (a *AnthropicProvider) ChatStream(ctx context.Context, req Request, onToken func(string)) (*Response, error) {
	model := req.Model
	if model == "" {
		model = a.model
	}
	maxTokens := a.maxTokens
	if req.MaxOutputTokens > 0 {
		maxTokens = req.MaxOutputTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  toAnthropicMessages(req.Transcript),
		Tools:     toAnthropicTools(req.Tools),
	}
	if sys := systemPrompt(req.Transcript); sys != "" {
		params.System = []anthropic.TextBlockParam{{Text: sys}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	out := &Response{
		Model: string(msg.Model),
		Usage: Usage{
			PromptUnits:     msg.Usage.InputTokens,
			CompletionUnits: msg.Usage.OutputTokens,
			TotalUnits:      msg.Usage.InputTokens + msg.Usage.OutputTokens,
		},
	}
	var text strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				CallID:    block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}
	out.Text = text.String()
	if onToken != nil && out.Text != "" {
		onToken(out.Text)
	}
	return out, nil
}

// toAnthropicMessages drops system turns (sent separately) and folds runs of
// tool results into a single user message, as the Messages API requires.
func toAnthropicMessages(transcript []Turn) []anthropic.MessageParam {
	var (
		msgs    []anthropic.MessageParam
		pending []anthropic.ContentBlockParamUnion
	)
	flush := func() {
		if len(pending) > 0 {
			msgs = append(msgs, anthropic.NewUserMessage(pending...))
			pending = nil
		}
	}

	for _, t := range transcript {
		switch v := t.(type) {
		case UserTurn:
			flush()
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(v.Text)))
		case AssistantTurn:
			flush()
			var blocks []anthropic.ContentBlockParamUnion
			if v.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(v.Text))
			}
			for _, c := range v.ToolCalls {
				var input any
				if err := json.Unmarshal(rawArgs(c), &input); err != nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(c.CallID, input, c.Name))
			}
			if len(blocks) > 0 {
				msgs = append(msgs, anthropic.NewAssistantMessage(blocks...))
			}
		case ToolResultTurn:
			pending = append(pending, anthropic.NewToolResultBlock(v.CallID, v.Content, v.IsError))
		}
	}
	flush()
	return msgs
}

func toAnthropicTools(specs []ToolSchema) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, s := range specs {
		schema := anthropic.ToolInputSchemaParam{
			Properties: s.Parameters["properties"],
		}
		if req, ok := s.Parameters["required"].([]any); ok {
			for _, r := range req {
				if name, ok := r.(string); ok {
					schema.Required = append(schema.Required, name)
				}
			}
		} else if req, ok := s.Parameters["required"].([]string); ok {
			schema.Required = req
		}
		tools = append(tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        s.Name,
				Description: anthropic.String(s.Description),
				InputSchema: schema,
			},
		})
	}
	return tools
}
