package llm

import (
	"encoding/json"
	"math"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTranscript() []Turn {
	return []Turn{
		SystemTurn{Text: "You are helpful."},
		UserTurn{Text: "Check product 1 and 2"},
		AssistantTurn{ToolCalls: []ToolCall{
			{CallID: "a", Name: "getProductInfo", Arguments: json.RawMessage(`{"productName":"basic"}`)},
			{CallID: "b", Name: "getProductInfo"},
		}},
		ToolResultTurn{ToolName: "getProductInfo", CallID: "a", Content: `{"name":"Basic Plan"}`},
		ToolResultTurn{ToolName: "getProductInfo", CallID: "b", Content: `{"error":"boom"}`, IsError: true},
	}
}

func TestResponse_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		calls []ToolCall
		ok    bool
	}{
		{"no calls", nil, true},
		{"valid", []ToolCall{{CallID: "1", Name: "x", Arguments: json.RawMessage(`{}`)}}, true},
		{"empty args allowed", []ToolCall{{CallID: "1", Name: "x"}}, true},
		{"missing name", []ToolCall{{CallID: "1"}}, false},
		{"missing id", []ToolCall{{Name: "x"}}, false},
		{"duplicate id", []ToolCall{{CallID: "1", Name: "x"}, {CallID: "1", Name: "y"}}, false},
		{"bad json", []ToolCall{{CallID: "1", Name: "x", Arguments: json.RawMessage(`{`)}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := (&Response{ToolCalls: tt.calls}).Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrMalformedResponse)
			}
		})
	}
}

func TestUsage_Add(t *testing.T) {
	t.Parallel()

	var u Usage
	u.Add(Usage{PromptUnits: 10, CompletionUnits: 5, TotalUnits: 15})
	u.Add(Usage{PromptUnits: 20, CompletionUnits: 8, TotalUnits: 28})
	assert.Equal(t, Usage{PromptUnits: 30, CompletionUnits: 13, TotalUnits: 43}, u)
}

func TestToChatMessages(t *testing.T) {
	t.Parallel()

	msgs := toChatMessages(sampleTranscript())
	require.Len(t, msgs, 5)

	assert.Equal(t, goopenai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Equal(t, goopenai.ChatMessageRoleUser, msgs[1].Role)

	require.Len(t, msgs[2].ToolCalls, 2)
	assert.Equal(t, "a", msgs[2].ToolCalls[0].ID)
	assert.Equal(t, `{"productName":"basic"}`, msgs[2].ToolCalls[0].Function.Arguments)
	assert.Equal(t, "{}", msgs[2].ToolCalls[1].Function.Arguments)

	assert.Equal(t, goopenai.ChatMessageRoleTool, msgs[3].Role)
	assert.Equal(t, "a", msgs[3].ToolCallID)
	assert.Equal(t, "b", msgs[4].ToolCallID)
}

func TestToolCallAccumulator(t *testing.T) {
	t.Parallel()

	zero, one := 0, 1
	acc := newToolCallAccumulator()
	acc.add(goopenai.ToolCall{Index: &zero, ID: "a", Function: goopenai.FunctionCall{Name: "x", Arguments: `{"q":`}})
	acc.add(goopenai.ToolCall{Index: &one, ID: "b", Function: goopenai.FunctionCall{Name: "y", Arguments: `{}`}})
	acc.add(goopenai.ToolCall{Index: &zero, Function: goopenai.FunctionCall{Arguments: `"go"}`}})

	calls := acc.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, ToolCall{CallID: "a", Name: "x", Arguments: json.RawMessage(`{"q":"go"}`)}, calls[0])
	assert.Equal(t, ToolCall{CallID: "b", Name: "y", Arguments: json.RawMessage(`{}`)}, calls[1])
	assert.Nil(t, newToolCallAccumulator().calls())
}

func TestToAnthropicMessages_FoldsToolResults(t *testing.T) {
	t.Parallel()

	msgs := toAnthropicMessages(sampleTranscript())
	// user, assistant, one user message holding both results
	require.Len(t, msgs, 3)
	assert.Len(t, msgs[1].Content, 2)
	assert.Len(t, msgs[2].Content, 2)
}

func TestToGeminiContents(t *testing.T) {
	t.Parallel()

	contents := toGeminiContents(sampleTranscript())
	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	require.Len(t, contents[2].Parts, 2)

	first := contents[2].Parts[0].FunctionResponse
	require.NotNil(t, first)
	assert.Equal(t, "a", first.ID)
	assert.Equal(t, map[string]any{"name": "Basic Plan"}, first.Response)
	assert.Equal(t, map[string]any{"error": "boom"}, contents[2].Parts[1].FunctionResponse.Response)
}

func TestToolResponseMap(t *testing.T) {
	t.Parallel()

	assert.Equal(t, map[string]any{"output": []any{"a"}}, toolResponseMap(ToolResultTurn{Content: `["a"]`}))
	assert.Equal(t, map[string]any{"output": "plain"}, toolResponseMap(ToolResultTurn{Content: "plain"}))
	assert.Equal(t, map[string]any{"error": "plain"}, toolResponseMap(ToolResultTurn{Content: "plain", IsError: true}))
}

func TestSystemPrompt(t *testing.T) {
	t.Parallel()

	got := systemPrompt([]Turn{SystemTurn{Text: "a"}, UserTurn{Text: "u"}, SystemTurn{Text: "b"}})
	assert.Equal(t, "a\n\nb", got)
	assert.Empty(t, systemPrompt([]Turn{UserTurn{Text: "u"}}))
}

func TestChatBuildRequest_Temperature(t *testing.T) {
	t.Parallel()

	zero, warm := 0.0, 0.7
	c := NewChat("", "k", "m")

	tests := []struct {
		name        string
		temperature *float64
		want        any
	}{
		{"unset", nil, nil},
		{"explicit zero", &zero, float64(math.SmallestNonzeroFloat32)},
		{"non-zero", &warm, 0.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(c.buildRequest(Request{Model: "m", Temperature: tt.temperature}))
			require.NoError(t, err)

			var wire map[string]any
			require.NoError(t, json.Unmarshal(b, &wire))
			got, ok := wire["temperature"]
			if tt.want == nil {
				assert.False(t, ok, string(b))
				return
			}
			require.True(t, ok, string(b))
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}
