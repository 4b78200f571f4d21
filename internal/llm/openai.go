package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// OpenAIProvider talks to the OpenAI Responses API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAI(baseURL, apiKey, model string) *OpenAIProvider {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, option.WithHTTPClient(&http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}))
	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client, model: model}
}

func (o *OpenAIProvider) ChatStream(ctx context.Context, req Request, onToken func(string)) (*Response, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: toResponsesInput(req.Transcript),
		},
		Tools: toResponsesTools(req.Tools),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxOutputTokens > 0 {
		params.MaxOutputTokens = openai.Int(req.MaxOutputTokens)
	}

	if onToken == nil {
		resp, err := o.client.Responses.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		return fromResponses(resp), nil
	}

	stream := o.client.Responses.NewStreaming(ctx, params)
	defer stream.Close()

	var completed *responses.Response

	for stream.Next() {
		event := stream.Current()

		switch event.Type {
		case "response.output_text.delta":
			if event.Delta != "" {
				onToken(event.Delta)
			}
		case "response.completed":
			completed = &event.Response
		case "response.failed":
			return nil, fmt.Errorf("openai: response failed: %s", event.Response.Error.Message)
		}
	}

	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if completed == nil {
		return nil, fmt.Errorf("openai: stream ended without a completed response: %w", ErrMalformedResponse)
	}

	return fromResponses(completed), nil
}

// toResponsesInput maps the transcript onto Responses API input items.
// System turns become developer messages.
func toResponsesInput(transcript []Turn) []responses.ResponseInputItemUnionParam {
	var items []responses.ResponseInputItemUnionParam
	for _, t := range transcript {
		switch v := t.(type) {
		case SystemTurn:
			items = append(items, responses.ResponseInputItemParamOfMessage(v.Text, "developer"))
		case UserTurn:
			items = append(items, responses.ResponseInputItemParamOfMessage(v.Text, "user"))
		case AssistantTurn:
			if v.Text != "" {
				items = append(items, responses.ResponseInputItemParamOfMessage(v.Text, "assistant"))
			}
			for _, c := range v.ToolCalls {
				items = append(items, responses.ResponseInputItemParamOfFunctionCall(string(rawArgs(c)), c.CallID, c.Name))
			}
		case ToolResultTurn:
			items = append(items, responses.ResponseInputItemParamOfFunctionCallOutput(v.CallID, v.Content))
		}
	}
	return items
}

func toResponsesTools(specs []ToolSchema) []responses.ToolUnionParam {
	tools := make([]responses.ToolUnionParam, 0, len(specs))
	for _, s := range specs {
		tools = append(tools, responses.ToolUnionParam{
			OfFunction: &responses.FunctionToolParam{
				Name:        s.Name,
				Description: openai.String(s.Description),
				Parameters:  s.Parameters,
				Strict:      openai.Bool(false),
			},
		})
	}
	return tools
}

func fromResponses(resp *responses.Response) *Response {
	out := &Response{
		Model: string(resp.Model),
		Usage: Usage{
			PromptUnits:     resp.Usage.InputTokens,
			CompletionUnits: resp.Usage.OutputTokens,
			TotalUnits:      resp.Usage.TotalTokens,
		},
	}

	var text strings.Builder
	for _, item := range resp.Output {
		switch item.Type {
		case "message":
			for _, c := range item.AsMessage().Content {
				if c.Type == "output_text" {
					text.WriteString(c.Text)
				}
			}
		case "function_call":
			fc := item.AsFunctionCall()
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				CallID:    fc.CallID,
				Name:      fc.Name,
				Arguments: json.RawMessage(fc.Arguments),
			})
		}
	}
	out.Text = text.String()
	return out
}
