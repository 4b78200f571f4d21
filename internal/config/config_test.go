package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "simulated", cfg.DefaultLLM)
	assert.Equal(t, ":8484", cfg.Gateway.Addr)
	assert.Equal(t, 2*time.Minute, cfg.Gateway.RequestTimeout.Duration)
	assert.Equal(t, 5, cfg.CustomMaxSteps)
}

func TestLoad_DefaultPrefersOpenAIWhenKeyPresent(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	assert.Equal(t, "openai", Default().DefaultLLM)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-env-key")

	path := writeConfig(t, `
default_llm = "claude"
tool_concurrency = 2

[llm.claude]
type = "anthropic"
model = "claude-sonnet-4-20250514"

[gateway]
addr = ":9000"
request_timeout = "45s"

[agents.sales-assistant]
model = "gpt-4o-mini"
max_steps = 2
temperature = 0.2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "claude", cfg.DefaultLLM)
	assert.Equal(t, 2, cfg.ToolConcurrency)
	assert.Equal(t, ":9000", cfg.Gateway.Addr)
	assert.Equal(t, 45*time.Second, cfg.Gateway.RequestTimeout.Duration)

	llm, err := cfg.LLM("")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", llm.Type)
	assert.Equal(t, "anthropic-env-key", llm.APIKey)

	sales := cfg.Agents["sales-assistant"]
	require.NotNil(t, sales)
	assert.Equal(t, "gpt-4o-mini", sales.Model)
	assert.Equal(t, 2, sales.MaxSteps)
	require.NotNil(t, sales.Temperature)
	assert.InDelta(t, 0.2, *sales.Temperature, 1e-9)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	tests := []struct {
		name string
		body string
	}{
		{name: "unknown default llm", body: `default_llm = "nope"`},
		{name: "bad duration", body: "[gateway]\nrequest_timeout = \"soon\""},
		{name: "non-positive custom steps", body: `custom_max_steps = 0`},
		{name: "negative agent steps", body: "[agents.code-review]\nmax_steps = -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
