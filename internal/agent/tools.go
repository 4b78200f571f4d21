package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"agentsmith/internal/llm"
)

type Tool interface {
	Name() string
	Description() string
	// Schema is the JSON schema of the arguments object.
	Schema() map[string]any
	// Execute receives arguments that already passed schema validation.
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

// NewTool builds a Tool from a typed function. The schema is reflected from
// Args, whose fields use json and jsonschema struct tags.
func NewTool[Args, Out any](name, description string, fn func(context.Context, Args) (Out, error)) (Tool, error) {
	if name == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	if fn == nil {
		return nil, fmt.Errorf("tool %s: executor is required", name)
	}
	schema, err := reflectSchema[Args]()
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	return &funcTool[Args, Out]{name: name, description: description, schema: schema, fn: fn}, nil
}

// MustTool is NewTool for package-level tool tables; it panics on error.
func MustTool[Args, Out any](name, description string, fn func(context.Context, Args) (Out, error)) Tool {
	t, err := NewTool(name, description, fn)
	if err != nil {
		panic(err)
	}
	return t
}

type funcTool[Args, Out any] struct {
	name        string
	description string
	schema      map[string]any
	fn          func(context.Context, Args) (Out, error)
}

func (t *funcTool[Args, Out]) Name() string           { return t.name }
func (t *funcTool[Args, Out]) Description() string    { return t.description }
func (t *funcTool[Args, Out]) Schema() map[string]any { return t.schema }

func (t *funcTool[Args, Out]) Execute(ctx context.Context, raw json.RawMessage) (any, error) {
	var args Args
	if err := json.Unmarshal(normalizeArgs(raw), &args); err != nil {
		return nil, &SchemaValidationError{Tool: t.name, Reason: err.Error()}
	}
	return t.fn(ctx, args)
}

// Registry is an ordered, closed set of tools. It is built at startup and
// read-only afterwards, so it is safe for concurrent use once populated.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool name is required")
	}
	if _, dup := r.tools[name]; dup {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Lookup is Get that fails loudly.
func (r *Registry) Lookup(name string) (Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return t, nil
}

// All returns the tools in registration order.
func (r *Registry) All() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Len() int { return len(r.order) }

// Scope returns a sub-registry holding the named tools in the given order.
// An empty list yields an empty registry.
func (r *Registry) Scope(names []string) (*Registry, error) {
	scoped := NewRegistry()
	for _, name := range names {
		t, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}
		if err := scoped.Register(t); err != nil {
			return nil, err
		}
	}
	return scoped, nil
}

// Specs returns what the model is allowed to see: names, descriptions and
// argument schemas.
func (r *Registry) Specs() []llm.ToolSchema {
	specs := make([]llm.ToolSchema, 0, len(r.order))
	for _, t := range r.All() {
		specs = append(specs, llm.ToolSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return specs
}

// Invoke validates raw arguments against the named tool's schema, runs it
// and returns the JSON-encoded result.
func (r *Registry) Invoke(ctx context.Context, name string, raw json.RawMessage) (json.RawMessage, error) {
	t, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return invoke(ctx, t, raw)
}

func invoke(ctx context.Context, t Tool, raw json.RawMessage) (out json.RawMessage, err error) {
	if err := Validate(t.Name(), t.Schema(), raw); err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			slog.Error("agent: tool panicked", "tool", t.Name(), "panic", p, "stack", string(debug.Stack()))
			out = nil
			err = &ExecutionError{Tool: t.Name(), Message: fmt.Sprintf("panic: %v", p)}
		}
	}()

	result, execErr := t.Execute(ctx, normalizeArgs(raw))
	if execErr != nil {
		return nil, asToolError(t.Name(), execErr)
	}

	data, mErr := json.Marshal(result)
	if mErr != nil {
		return nil, &ExecutionError{Tool: t.Name(), Message: "result is not JSON-serializable", Err: mErr}
	}
	return data, nil
}

// asToolError keeps validation and execution errors as they are and wraps
// anything else as an ExecutionError.
func asToolError(tool string, err error) error {
	switch err.(type) {
	case *SchemaValidationError, *ExecutionError:
		return err
	}
	return &ExecutionError{Tool: tool, Message: err.Error(), Err: err}
}

func normalizeArgs(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return json.RawMessage("{}")
	}
	return raw
}
