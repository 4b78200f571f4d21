package agent

import (
	"fmt"

	"agentsmith/internal/llm"
)

// RunnerFactory builds scoped runners from agent profiles.
type RunnerFactory struct {
	provider       llm.Provider
	globalRegistry *Registry
	profiles       map[string]*AgentProfile
	order          []string
	aliases        map[string]string
	opts           []LoopOption
}

// NewRunnerFactory validates every profile against the registry up front.
func NewRunnerFactory(provider llm.Provider, registry *Registry, profiles []*AgentProfile, opts ...LoopOption) (*RunnerFactory, error) {
	f := &RunnerFactory{
		provider:       provider,
		globalRegistry: registry,
		profiles:       make(map[string]*AgentProfile, len(profiles)),
		aliases:        make(map[string]string),
		opts:           opts,
	}
	for _, p := range profiles {
		if _, dup := f.profiles[p.Name()]; dup {
			return nil, fmt.Errorf("duplicate agent profile: %s", p.Name())
		}
		if _, err := registry.Scope(p.Tools()); err != nil {
			return nil, fmt.Errorf("agent profile %s: %w", p.Name(), err)
		}
		f.profiles[p.Name()] = p
		f.order = append(f.order, p.Name())
	}
	return f, nil
}

// Alias makes alias resolve to the named profile.
func (f *RunnerFactory) Alias(alias, profileName string) error {
	if _, ok := f.profiles[profileName]; !ok {
		return fmt.Errorf("unknown agent profile: %s", profileName)
	}
	f.aliases[alias] = profileName
	return nil
}

// Build creates a Loop scoped to the given profile.
func (f *RunnerFactory) Build(profileName string) (*Loop, error) {
	profile, ok := f.Profile(profileName)
	if !ok {
		return nil, fmt.Errorf("unknown agent profile: %s", profileName)
	}
	return f.BuildFor(profile)
}

// BuildFor creates a Loop for a profile that is not registered with the
// factory, such as a saved custom agent.
func (f *RunnerFactory) BuildFor(profile *AgentProfile) (*Loop, error) {
	return NewLoop(f.provider, f.globalRegistry, profile, f.opts...)
}

func (f *RunnerFactory) Profile(name string) (*AgentProfile, bool) {
	if target, ok := f.aliases[name]; ok {
		name = target
	}
	p, ok := f.profiles[name]
	return p, ok
}

// Profiles returns all registered profiles in registration order.
func (f *RunnerFactory) Profiles() []*AgentProfile {
	out := make([]*AgentProfile, 0, len(f.order))
	for _, name := range f.order {
		out = append(out, f.profiles[name])
	}
	return out
}

func (f *RunnerFactory) Registry() *Registry { return f.globalRegistry }
