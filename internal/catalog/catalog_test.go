package catalog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"agentsmith/internal/agent"
	"agentsmith/internal/config"
	"agentsmith/internal/llm"
	"agentsmith/internal/mock"
	"agentsmith/internal/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFactory(t *testing.T, cfg *config.Config, provider llm.Provider) *agent.RunnerFactory {
	t.Helper()
	registry, err := tools.NewRegistry(tools.Options{
		Now: func() time.Time { return time.UnixMilli(1718000000000) },
	})
	require.NoError(t, err)
	f, err := NewFactory(cfg, provider, registry)
	require.NoError(t, err)
	return f
}

func TestProfiles(t *testing.T) {
	t.Parallel()

	profiles, err := Profiles(nil)
	require.NoError(t, err)

	got := map[string]int{}
	for _, p := range profiles {
		got[p.Name()] = p.MaxSteps()
	}
	assert.Equal(t, map[string]int{
		CodeReview:      5,
		ContentWriter:   4,
		CustomerSupport: 3,
		SalesAssistant:  3,
	}, got)
	assert.Equal(t, []string{tools.SearchKnowledgeBase, tools.CreateTicket}, profiles[2].Tools())
}

func TestProfiles_ConfigOverrides(t *testing.T) {
	t.Parallel()

	temp := 0.2
	cfg := config.Default()
	cfg.Agents[SalesAssistant] = &config.AgentConfig{Model: "gpt-4o-mini", Temperature: &temp, MaxSteps: 6}

	f := newFactory(t, cfg, mock.NewScript())
	p, ok := f.Profile("sales")
	require.True(t, ok)
	assert.Equal(t, SalesAssistant, p.Name())
	assert.Equal(t, "gpt-4o-mini", p.Model())
	assert.Equal(t, 6, p.MaxSteps())
	require.NotNil(t, p.Temperature())
	assert.Equal(t, 0.2, *p.Temperature())

	other, ok := f.Profile(CodeReview)
	require.True(t, ok)
	assert.Equal(t, 5, other.MaxSteps())
	assert.Empty(t, other.Model())
}

func TestFailureMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Failed to process code review request", FailureMessage(CodeReview))
	assert.Equal(t, "Failed to process content writing request", FailureMessage(ContentWriter))
	assert.Equal(t, "Failed to process customer support request", FailureMessage(CustomerSupport))
	assert.Equal(t, "Failed to process sales request", FailureMessage(SalesAssistant))
	assert.Equal(t, "Failed to process sales request", FailureMessage("sales"))
	assert.Equal(t, "Failed to process message", FailureMessage("custom"))
}

func TestContentWriterPrompt(t *testing.T) {
	t.Parallel()

	without, err := ContentWriterPrompt{}.Render(nil)
	require.NoError(t, err)
	assert.NotContains(t, without, "Content Requirements:")

	with, err := ContentWriterPrompt{}.Render(map[string]any{
		"topic":     "Edge AI",
		"wordCount": 1500.0,
		"keywords":  []any{"edge", "ai"},
	})
	require.NoError(t, err)
	assert.Contains(t, with, "- Topic: Edge AI\n")
	assert.Contains(t, with, "- Content Type: Blog post\n")
	assert.Contains(t, with, "- Target Audience: General\n")
	assert.Contains(t, with, "- Tone: Professional\n")
	assert.Contains(t, with, "- Word Count: 1500\n")
	assert.Contains(t, with, "- SEO Keywords: edge,ai\n")

	single, err := ContentWriterPrompt{}.Render(map[string]any{"keywords": "golang"})
	require.NoError(t, err)
	assert.Contains(t, single, "- SEO Keywords: golang\n")
	assert.Contains(t, single, "- Topic: Not specified\n")

	_, err = ContentWriterPrompt{}.Render(map[string]any{"topic": map[string]any{"nested": true}})
	assert.Error(t, err)
}

func TestSalesPrompt(t *testing.T) {
	t.Parallel()

	without, err := SalesPrompt{}.Render(nil)
	require.NoError(t, err)
	assert.NotContains(t, without, "Customer Information:")

	with, err := SalesPrompt{}.Render(map[string]any{"company": "Acme", "teamSize": 12})
	require.NoError(t, err)
	assert.Contains(t, with, "- Name: Not provided\n")
	assert.Contains(t, with, "- Company: Acme\n")
	assert.Contains(t, with, "- Team Size: 12\n")
	assert.Contains(t, with, "- Current Solution: Not provided\n")
}

func TestSupportPrompt(t *testing.T) {
	t.Parallel()

	without, err := SupportPrompt{}.Render(nil)
	require.NoError(t, err)
	assert.Contains(t, without, "Customer Context: No additional context provided")

	with, err := SupportPrompt{}.Render(map[string]any{"plan": "pro", "userId": "u1"})
	require.NoError(t, err)
	assert.Contains(t, with, `Customer Context: {"plan":"pro","userId":"u1"}`)
}

func TestCustomerSupport_RefundScenario(t *testing.T) {
	t.Parallel()

	script := mock.NewScript(
		mock.Calls(llm.Usage{PromptUnits: 120, CompletionUnits: 20, TotalUnits: 140}, llm.ToolCall{
			CallID:    "call_kb",
			Name:      tools.SearchKnowledgeBase,
			Arguments: json.RawMessage(`{"query":"","category":"billing"}`),
		}),
		mock.Final("Refunds are processed within 5-7 business days.", llm.Usage{PromptUnits: 200, CompletionUnits: 30, TotalUnits: 230}),
	)
	loop, err := newFactory(t, nil, script).Build(CustomerSupport)
	require.NoError(t, err)

	res, err := loop.Run(context.Background(), agent.Request{Message: "I need a refund for my last invoice"}, nil)
	require.NoError(t, err)

	assert.Equal(t, agent.StateDone, res.State)
	assert.LessOrEqual(t, res.Steps, 3)
	assert.Equal(t, "Refunds are processed within 5-7 business days.", res.FinalText)
	assert.Equal(t, llm.Usage{PromptUnits: 320, CompletionUnits: 50, TotalUnits: 370}, res.Usage)
	require.Len(t, res.ToolCalls, 1)

	var kb tools.KnowledgeResults
	require.NoError(t, json.Unmarshal(res.ToolCalls[0].Result, &kb))
	assert.Len(t, kb.Results, 3)
	assert.Equal(t, "billing", kb.Category)

	reqs := script.Requests()
	require.Len(t, reqs, 2)
	var offered []string
	for _, s := range reqs[0].Tools {
		offered = append(offered, s.Name)
	}
	assert.Equal(t, []string{tools.SearchKnowledgeBase, tools.CreateTicket}, offered)
}

func TestCustomerSupport_RefundOffline(t *testing.T) {
	t.Parallel()

	loop, err := newFactory(t, nil, llm.NewSimulated("")).Build(CustomerSupport)
	require.NoError(t, err)

	res, err := loop.Run(context.Background(), agent.Request{Message: "I want a refund"}, nil)
	require.NoError(t, err)
	assert.Equal(t, agent.StateDone, res.State)
	require.Len(t, res.ToolCalls, 1)
	assert.Equal(t, tools.SearchKnowledgeBase, res.ToolCalls[0].Tool)

	var kb tools.KnowledgeResults
	require.NoError(t, json.Unmarshal(res.ToolCalls[0].Result, &kb))
	assert.Equal(t, "billing", kb.Category)
	assert.Equal(t, []string{"Refunds are processed within 5-7 business days"}, kb.Results)
}

func TestSales_ROIScenario(t *testing.T) {
	t.Parallel()

	script := mock.NewScript(
		mock.Calls(llm.Usage{}, llm.ToolCall{
			CallID:    "call_roi",
			Name:      tools.CalculateROI,
			Arguments: json.RawMessage(`{"currentCost":1000,"teamSize":10,"timeSpent":20}`),
		}),
		mock.Final("You would save $2,701 per month.", llm.Usage{}),
	)
	loop, err := newFactory(t, nil, script).Build("sales")
	require.NoError(t, err)

	res, err := loop.Run(context.Background(), agent.Request{
		Message: "We have 10 people spending 20 hours a week on manual work",
		Context: map[string]any{"company": "Acme"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, agent.StateDone, res.State)
	assert.Equal(t, SalesAssistant, res.Profile)

	require.Len(t, res.ToolCalls, 1)
	assert.JSONEq(t,
		`{"monthlySavings":2800,"ourCost":99,"netMonthlySavings":2701,"annualROI":2728,"paybackPeriod":"1 months"}`,
		string(res.ToolCalls[0].Result))

	system := script.Requests()[0].Transcript[0].(llm.SystemTurn)
	assert.Contains(t, system.Text, "- Company: Acme")
}

func TestCodeReview_InvalidArgumentsBecomeToolError(t *testing.T) {
	t.Parallel()

	script := mock.NewScript(
		mock.Calls(llm.Usage{},
			llm.ToolCall{CallID: "a", Name: tools.AnalyzeCodeSecurity, Arguments: json.RawMessage(`{"code":"eval(x)"}`)},
			llm.ToolCall{CallID: "b", Name: tools.CheckCodeQuality, Arguments: json.RawMessage(`{"code":"eval(x)","language":"js"}`)},
		),
		mock.Final("Avoid eval.", llm.Usage{}),
	)
	loop, err := newFactory(t, nil, script).Build(CodeReview)
	require.NoError(t, err)

	res, err := loop.Run(context.Background(), agent.Request{Message: "review eval(x)"}, nil)
	require.NoError(t, err)
	assert.Equal(t, agent.StateDone, res.State)

	require.Len(t, res.ToolCalls, 2)
	assert.True(t, res.ToolCalls[0].IsError)
	assert.Contains(t, string(res.ToolCalls[0].Result), "language")
	assert.False(t, res.ToolCalls[1].IsError)

	second := script.Requests()[1].Transcript
	first := second[3].(llm.ToolResultTurn)
	assert.Equal(t, "a", first.CallID)
	assert.True(t, first.IsError)
}
