package llm

import (
	"context"
	"fmt"

	"agentsmith/internal/config"
)

// New builds the provider described by cfg.
func New(ctx context.Context, cfg *config.LLMConfig) (Provider, error) {
	switch cfg.Type {
	case "openai":
		return NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	case "chat":
		return NewChat(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	case "anthropic":
		return NewAnthropic(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.MaxTokens), nil
	case "gemini":
		return NewGemini(ctx, cfg.APIKey, cfg.Model, cfg.MaxTokens)
	case "simulated":
		return NewSimulated(cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM type: %q", cfg.Type)
	}
}
