// Package catalog defines the built-in agent types.
package catalog

import (
	"fmt"

	"agentsmith/internal/agent"
	"agentsmith/internal/config"
	"agentsmith/internal/llm"
	"agentsmith/internal/tools"
)

const (
	CodeReview      = "code-review"
	ContentWriter   = "content-writer"
	CustomerSupport = "customer-support"
	SalesAssistant  = "sales-assistant"
)

// Aliases maps alternative agent type names to their profile.
var Aliases = map[string]string{
	"sales": SalesAssistant,
}

var builtins = []agent.ProfileConfig{
	{
		Name:        CodeReview,
		Description: "Reviews code for security issues, quality problems and refactoring opportunities",
		Prompt:      agent.StaticPrompt(codeReviewPrompt),
		Tools:       []string{tools.AnalyzeCodeSecurity, tools.CheckCodeQuality, tools.SuggestImprovements},
		MaxSteps:    5,
	},
	{
		Name:        ContentWriter,
		Description: "Researches, outlines and SEO-optimizes written content",
		Prompt:      ContentWriterPrompt{},
		Tools:       []string{tools.ResearchTopic, tools.GenerateOutline, tools.OptimizeForSEO},
		MaxSteps:    4,
	},
	{
		Name:        CustomerSupport,
		Description: "Answers support questions from the knowledge base and escalates with tickets",
		Prompt:      SupportPrompt{},
		Tools:       []string{tools.SearchKnowledgeBase, tools.CreateTicket},
		MaxSteps:    3,
	},
	{
		Name:        SalesAssistant,
		Description: "Explains plans, estimates ROI and books demos",
		Prompt:      SalesPrompt{},
		Tools:       []string{tools.GetProductInfo, tools.CalculateROI, tools.ScheduleDemo},
		MaxSteps:    3,
	},
}

var failureLabels = map[string]string{
	CodeReview:      "code review",
	ContentWriter:   "content writing",
	CustomerSupport: "customer support",
	SalesAssistant:  "sales",
}

// FailureMessage is the client-facing message for a failed run of the given
// agent type.
func FailureMessage(agentType string) string {
	if target, ok := Aliases[agentType]; ok {
		agentType = target
	}
	if label, ok := failureLabels[agentType]; ok {
		return fmt.Sprintf("Failed to process %s request", label)
	}
	return "Failed to process message"
}

// Profiles builds the built-in profiles with the per-type overrides from cfg
// applied. cfg may be nil.
func Profiles(cfg *config.Config) ([]*agent.AgentProfile, error) {
	out := make([]*agent.AgentProfile, 0, len(builtins))
	for _, pc := range builtins {
		p, err := agent.NewProfile(pc)
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			if o, ok := cfg.Agents[pc.Name]; ok && o != nil {
				p = p.WithOverrides(o.Model, o.Temperature, o.MaxSteps)
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// NewFactory wires the built-in profiles and their aliases into a runner
// factory over registry.
func NewFactory(cfg *config.Config, provider llm.Provider, registry *agent.Registry, opts ...agent.LoopOption) (*agent.RunnerFactory, error) {
	profiles, err := Profiles(cfg)
	if err != nil {
		return nil, err
	}
	f, err := agent.NewRunnerFactory(provider, registry, profiles, opts...)
	if err != nil {
		return nil, err
	}
	for alias, target := range Aliases {
		if err := f.Alias(alias, target); err != nil {
			return nil, err
		}
	}
	return f, nil
}
