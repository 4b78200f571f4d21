package app

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"agentsmith/internal/agent"
	"agentsmith/internal/catalog"
	"agentsmith/internal/config"
	"agentsmith/internal/definitions"
	"agentsmith/internal/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DefaultLLM = "simulated"
	cfg.DB.Path = filepath.Join(t.TempDir(), "app.db")
	cfg.Metrics.Enabled = true
	cfg.Log.Level = "error"
	return cfg
}

func TestFromConfig_SimulatedEndToEnd(t *testing.T) {
	ctx := context.Background()
	a, err := FromConfig(ctx, testConfig(t), "")
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(ctx) })

	assert.Len(t, a.Factory.Profiles(), 4)
	assert.NotNil(t, a.Metrics)
	_, ok := a.Registry.Get(tools.WebSearch)
	assert.False(t, ok)

	loop, err := a.Factory.Build("sales")
	require.NoError(t, err)
	res, err := loop.Run(ctx, agent.Request{
		Message: "Please calculate our savings: current cost 1000, team of 10, 20 hours a week",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, agent.StateDone, res.State)
	require.NotEmpty(t, res.ToolCalls)
	assert.Equal(t, tools.CalculateROI, res.ToolCalls[0].Tool)
	var roi tools.ROI
	require.NoError(t, json.Unmarshal(res.ToolCalls[0].Result, &roi))
	assert.Equal(t, 2701, roi.NetMonthlySavings)
	assert.Contains(t, res.FinalText, "calculateROI returned")
}

func TestFromConfig_UnknownLLM(t *testing.T) {
	_, err := FromConfig(context.Background(), testConfig(t), "missing")
	assert.ErrorContains(t, err, `LLM "missing" not found`)
}

func TestDefinitionsAndCustomRunner(t *testing.T) {
	ctx := context.Background()
	a, err := FromConfig(ctx, testConfig(t), "")
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(ctx) })

	store, err := a.Definitions(ctx)
	require.NoError(t, err)
	again, err := a.Definitions(ctx)
	require.NoError(t, err)
	assert.NotNil(t, again)

	def, err := store.Create(ctx, definitions.Definition{
		Name:         "Support lite",
		Instructions: "Answer billing questions.",
		Tools:        []string{tools.SearchKnowledgeBase},
	})
	require.NoError(t, err)

	loop, err := a.CustomRunner(def)
	require.NoError(t, err)
	assert.Equal(t, a.Config.CustomMaxSteps, loop.Profile().MaxSteps())

	res, err := loop.Run(ctx, agent.Request{Message: "how do refunds work with the knowledge base?"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{tools.SearchKnowledgeBase}, res.ToolsUsed())

	assert.Equal(t, catalog.SalesAssistant, mustProfile(t, a, "sales").Name())
}

func mustProfile(t *testing.T, a *App, name string) *agent.AgentProfile {
	t.Helper()
	p, ok := a.Factory.Profile(name)
	require.True(t, ok)
	return p
}
