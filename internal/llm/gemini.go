package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/genai"
)

// GeminiProvider calls the Gemini API through the genai SDK.
type GeminiProvider struct {
	client    *genai.Client
	model     string
	maxTokens int64
}

func NewGemini(ctx context.Context, apiKey, model string, maxTokens int64) (*GeminiProvider, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &GeminiProvider{client: gc, model: model, maxTokens: maxTokens}, nil
}

func (g *GeminiProvider) ChatStream(ctx context.Context, req Request, onToken func(string)) (*Response, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}
	contents := toGeminiContents(req.Transcript)
	config := g.buildConfig(req)

	if onToken == nil {
		resp, err := g.client.Models.GenerateContent(ctx, model, contents, config)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		out := &Response{Model: model}
		var text strings.Builder
		collectGemini(resp, out, &text, nil)
		out.Text = text.String()
		return out, nil
	}

	out := &Response{Model: model}
	var text strings.Builder
	for chunk, err := range g.client.Models.GenerateContentStream(ctx, model, contents, config) {
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		collectGemini(chunk, out, &text, onToken)
	}
	out.Text = text.String()
	return out, nil
}

func (g *GeminiProvider) buildConfig(req Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Tools: toGeminiTools(req.Tools),
	}
	maxTokens := g.maxTokens
	if req.MaxOutputTokens > 0 {
		maxTokens = req.MaxOutputTokens
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}
	if sys := systemPrompt(req.Transcript); sys != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: sys}},
		}
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		config.Temperature = &temp
	}
	return config
}

// collectGemini folds one response (or stream chunk) into out. Gemini may
// omit function call ids; those get a generated one so results can be
// correlated.
func collectGemini(resp *genai.GenerateContentResponse, out *Response, text *strings.Builder, onToken func(string)) {
	if resp == nil {
		return
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptUnits:     int64(resp.UsageMetadata.PromptTokenCount),
			CompletionUnits: int64(resp.UsageMetadata.CandidatesTokenCount),
			TotalUnits:      int64(resp.UsageMetadata.TotalTokenCount),
		}
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		switch {
		case part.FunctionCall != nil:
			id := part.FunctionCall.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil || part.FunctionCall.Args == nil {
				args = []byte("{}")
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				CallID:    id,
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
		case part.Text != "" && !part.Thought:
			text.WriteString(part.Text)
			if onToken != nil {
				onToken(part.Text)
			}
		}
	}
}

// toGeminiContents converts the transcript. System turns travel in the
// config; consecutive tool results share one content entry.
func toGeminiContents(transcript []Turn) []*genai.Content {
	var result []*genai.Content
	for _, t := range transcript {
		switch v := t.(type) {
		case UserTurn:
			result = append(result, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: v.Text}},
			})
		case AssistantTurn:
			var parts []*genai.Part
			if v.Text != "" {
				parts = append(parts, &genai.Part{Text: v.Text})
			}
			for _, c := range v.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal(rawArgs(c), &args)
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: c.CallID, Name: c.Name, Args: args},
				})
			}
			result = append(result, &genai.Content{Role: "model", Parts: parts})
		case ToolResultTurn:
			part := &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       v.CallID,
					Name:     v.ToolName,
					Response: toolResponseMap(v),
				},
			}
			if n := len(result); n > 0 && result[n-1].Role == "user" && isFunctionResponses(result[n-1]) {
				result[n-1].Parts = append(result[n-1].Parts, part)
				continue
			}
			result = append(result, &genai.Content{Role: "user", Parts: []*genai.Part{part}})
		}
	}
	return result
}

func isFunctionResponses(c *genai.Content) bool {
	for _, p := range c.Parts {
		if p.FunctionResponse == nil {
			return false
		}
	}
	return len(c.Parts) > 0
}

// toolResponseMap uses the payload directly when it is a JSON object and
// wraps anything else under "output".
func toolResponseMap(v ToolResultTurn) map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(v.Content), &m); err == nil && m != nil {
		return m
	}
	if v.IsError {
		return map[string]any{"error": v.Content}
	}
	var anyVal any
	if err := json.Unmarshal([]byte(v.Content), &anyVal); err == nil {
		return map[string]any{"output": anyVal}
	}
	return map[string]any{"output": v.Content}
}

func toGeminiTools(specs []ToolSchema) []*genai.Tool {
	if len(specs) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, len(specs))
	for i, s := range specs {
		decls[i] = &genai.FunctionDeclaration{
			Name:                 s.Name,
			Description:          s.Description,
			ParametersJsonSchema: s.Parameters,
		}
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}
