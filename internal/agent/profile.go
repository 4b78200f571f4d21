package agent

import "fmt"

// PromptTemplate renders a system prompt from the request's free-form context.
// Implementations must be pure.
type PromptTemplate interface {
	Render(context map[string]any) (string, error)
}

// StaticPrompt ignores the context.
type StaticPrompt string

func (p StaticPrompt) Render(map[string]any) (string, error) { return string(p), nil }

// PromptFunc adapts a function to PromptTemplate.
type PromptFunc func(context map[string]any) (string, error)

func (f PromptFunc) Render(context map[string]any) (string, error) { return f(context) }

// ProfileConfig is the input to NewProfile.
type ProfileConfig struct {
	Name        string
	Description string
	Prompt      PromptTemplate
	Tools       []string
	MaxSteps    int
	Model       string
	Temperature *float64
}

// AgentProfile is a named combination of system prompt, tool subset and step
// budget. It cannot be modified after construction.
type AgentProfile struct {
	name        string
	description string
	prompt      PromptTemplate
	tools       []string
	maxSteps    int
	model       string
	temperature *float64
}

func NewProfile(cfg ProfileConfig) (*AgentProfile, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("profile name is required")
	}
	if cfg.MaxSteps <= 0 {
		return nil, fmt.Errorf("profile %s: max steps must be positive, got %d", cfg.Name, cfg.MaxSteps)
	}
	if cfg.Prompt == nil {
		return nil, fmt.Errorf("profile %s: prompt template is required", cfg.Name)
	}
	seen := make(map[string]struct{}, len(cfg.Tools))
	for _, t := range cfg.Tools {
		if _, dup := seen[t]; dup {
			return nil, fmt.Errorf("profile %s: tool %q listed twice", cfg.Name, t)
		}
		seen[t] = struct{}{}
	}

	p := &AgentProfile{
		name:        cfg.Name,
		description: cfg.Description,
		prompt:      cfg.Prompt,
		tools:       append([]string(nil), cfg.Tools...),
		maxSteps:    cfg.MaxSteps,
		model:       cfg.Model,
	}
	if cfg.Temperature != nil {
		t := *cfg.Temperature
		p.temperature = &t
	}
	return p, nil
}

func (p *AgentProfile) Name() string        { return p.name }
func (p *AgentProfile) Description() string { return p.description }
func (p *AgentProfile) MaxSteps() int       { return p.maxSteps }
func (p *AgentProfile) Model() string       { return p.model }

// Tools returns a copy of the bound tool names in offer order.
func (p *AgentProfile) Tools() []string {
	return append([]string(nil), p.tools...)
}

func (p *AgentProfile) Temperature() *float64 {
	if p.temperature == nil {
		return nil
	}
	t := *p.temperature
	return &t
}

func (p *AgentProfile) SystemPrompt(context map[string]any) (string, error) {
	s, err := p.prompt.Render(context)
	if err != nil {
		return "", fmt.Errorf("profile %s: render prompt: %w", p.name, err)
	}
	return s, nil
}

// WithOverrides returns a copy with the non-zero overrides applied.
func (p *AgentProfile) WithOverrides(model string, temperature *float64, maxSteps int) *AgentProfile {
	cp := *p
	cp.tools = p.Tools()
	cp.temperature = p.Temperature()
	if model != "" {
		cp.model = model
	}
	if temperature != nil {
		t := *temperature
		cp.temperature = &t
	}
	if maxSteps > 0 {
		cp.maxSteps = maxSteps
	}
	return &cp
}
