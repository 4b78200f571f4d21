package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"agentsmith/internal/llm"
	"agentsmith/internal/metrics"
	"agentsmith/internal/trace"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const defaultToolConcurrency = 4

type LoopOption func(*Loop)

// WithToolConcurrency bounds how many tool calls of one round run at once.
func WithToolConcurrency(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) LoopOption {
	return func(l *Loop) { l.metrics = m }
}

// Loop drives one profile against the completion API. Each round sends the
// transcript and the profile's tool schemas; tool calls are executed locally
// and their results appended, until the model answers with text or the step
// budget runs out. A Loop holds no per-run state and may serve concurrent runs.
type Loop struct {
	provider    llm.Provider
	registry    *Registry
	profile     *AgentProfile
	specs       []llm.ToolSchema
	concurrency int
	metrics     *metrics.Metrics
}

// NewLoop scopes registry to the profile's tools. It fails if the profile
// names a tool the registry does not have.
func NewLoop(provider llm.Provider, registry *Registry, profile *AgentProfile, opts ...LoopOption) (*Loop, error) {
	scoped, err := registry.Scope(profile.Tools())
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", profile.Name(), err)
	}
	l := &Loop{
		provider:    provider,
		registry:    scoped,
		profile:     profile,
		specs:       scoped.Specs(),
		concurrency: defaultToolConcurrency,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Loop) Profile() *AgentProfile { return l.profile }

func (l *Loop) Run(ctx context.Context, req Request, emit func(Event)) (*Result, error) {
	send := func(e Event) {
		if emit != nil {
			emit(e)
		}
	}
	var onToken func(string)
	if emit != nil {
		onToken = func(s string) { emit(Event{Type: EventToken, Data: s}) }
	}

	runID := uuid.NewString()
	name := l.profile.Name()
	ctx = ContextWithRunID(ctx, runID)
	ctx = ContextWithAgentName(ctx, name)

	truncatedMsg := truncateUTF8(req.Message, 200)
	ctx, span := trace.Tracer().Start(ctx, "agent.run",
		oteltrace.WithAttributes(
			attribute.String("agentsmith.agent.name", name),
			attribute.String("agentsmith.run.id", runID),
			attribute.String("user.message", truncatedMsg),
		),
	)
	defer span.End()

	start := time.Now()
	res, err := l.run(ctx, runID, req, send, onToken)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.metrics.RecordRun(ctx, name, "ERROR", time.Since(start))
		slog.Warn("agent: run failed", "agent", name, "run_id", runID, "error", err)
		send(Event{Type: EventError, Data: err.Error()})
		return nil, err
	}

	span.SetAttributes(
		attribute.String("agentsmith.run.state", string(res.State)),
		attribute.Int("agentsmith.run.steps", res.Steps),
		attribute.Int64("agentsmith.run.total_units", res.Usage.TotalUnits),
	)
	l.metrics.RecordRun(ctx, name, string(res.State), time.Since(start))
	slog.Info("agent: run finished",
		"agent", name,
		"run_id", runID,
		"state", res.State,
		"steps", res.Steps,
		"tool_calls", len(res.ToolCalls),
		"total_units", res.Usage.TotalUnits,
	)
	send(Event{Type: EventDone, Data: res})
	return res, nil
}

func (l *Loop) run(ctx context.Context, runID string, req Request, send func(Event), onToken func(string)) (*Result, error) {
	system, err := l.profile.SystemPrompt(req.Context)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:     runID,
		Profile:   l.profile.Name(),
		ToolCalls: []ToolCallRecord{},
	}
	transcript := []llm.Turn{
		llm.SystemTurn{Text: system},
		llm.UserTurn{Text: req.Message},
	}

	var (
		state    = StateAwaitingModel
		pending  []llm.ToolCall
		lastText string
	)

	for {
		switch state {
		case StateAwaitingModel:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			resp, err := l.callModel(ctx, transcript, res.Steps, onToken)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				return nil, &UpstreamError{Err: err}
			}
			res.Usage.Add(resp.Usage)
			transcript = append(transcript, llm.AssistantTurn{Text: resp.Text, ToolCalls: resp.ToolCalls})
			if resp.Text != "" {
				lastText = resp.Text
			}
			if len(resp.ToolCalls) == 0 {
				res.FinalText = resp.Text
				state = StateDone
				continue
			}
			pending = resp.ToolCalls
			state = StateExecutingTools

		case StateExecutingTools:
			turns, records, err := l.act(ctx, pending, send)
			if err != nil {
				return nil, err
			}
			transcript = append(transcript, turns...)
			res.ToolCalls = append(res.ToolCalls, records...)
			res.Steps++
			pending = nil
			if res.Steps >= l.profile.MaxSteps() {
				res.FinalText = lastText
				state = StateStepLimitExceeded
				continue
			}
			state = StateAwaitingModel

		default:
			res.State = state
			res.Transcript = transcript
			return res, nil
		}
	}
}

func (l *Loop) callModel(ctx context.Context, transcript []llm.Turn, round int, onToken func(string)) (*llm.Response, error) {
	ctx, span := trace.Tracer().Start(ctx, "llm.call",
		oteltrace.WithAttributes(
			attribute.Int("llm.round", round),
			attribute.String("llm.model", l.profile.Model()),
			attribute.Int("llm.tools", len(l.specs)),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := l.provider.ChatStream(ctx, llm.Request{
		Model:       l.profile.Model(),
		Transcript:  transcript,
		Tools:       l.specs,
		Temperature: l.profile.Temperature(),
	}, onToken)
	if err == nil {
		err = resp.Validate()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.metrics.RecordModelCall(ctx, l.profile.Name(), time.Since(start), 0, 0, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("llm.response_model", resp.Model),
		attribute.Int64("llm.prompt_units", resp.Usage.PromptUnits),
		attribute.Int64("llm.completion_units", resp.Usage.CompletionUnits),
		attribute.Int("llm.tool_calls", len(resp.ToolCalls)),
	)
	l.metrics.RecordModelCall(ctx, l.profile.Name(), time.Since(start), resp.Usage.PromptUnits, resp.Usage.CompletionUnits, nil)
	slog.Debug("agent: model responded",
		"agent", l.profile.Name(),
		"round", round,
		"tool_calls", len(resp.ToolCalls),
		"text_len", len(resp.Text),
	)
	return resp, nil
}

type toolOutcome struct {
	content string
	isError bool
}

// act executes one round of tool calls. Every call is resolved before any
// runs, so an unknown tool aborts the round without side effects. Calls run
// concurrently; a failing call becomes an error payload and never cancels
// its siblings. Results come back in request order.
func (l *Loop) act(ctx context.Context, calls []llm.ToolCall, send func(Event)) ([]llm.Turn, []ToolCallRecord, error) {
	tools := make([]Tool, len(calls))
	for i, c := range calls {
		t, err := l.registry.Lookup(c.Name)
		if err != nil {
			return nil, nil, err
		}
		tools[i] = t
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	for _, c := range calls {
		send(Event{Type: EventToolCall, Data: ToolCallEvent{
			Tool:      c.Name,
			CallID:    c.CallID,
			Arguments: string(normalizeArgs(c.Arguments)),
		}})
	}

	outcomes := make([]toolOutcome, len(calls))
	var g errgroup.Group
	g.SetLimit(l.concurrency)
	for i, c := range calls {
		g.Go(func() error {
			outcomes[i] = l.runTool(ctx, tools[i], c)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	turns := make([]llm.Turn, len(calls))
	records := make([]ToolCallRecord, len(calls))
	for i, c := range calls {
		o := outcomes[i]
		turns[i] = llm.ToolResultTurn{
			ToolName: c.Name,
			CallID:   c.CallID,
			Content:  o.content,
			IsError:  o.isError,
		}
		records[i] = ToolCallRecord{
			Tool:      c.Name,
			CallID:    c.CallID,
			Arguments: normalizeArgs(c.Arguments),
			Result:    json.RawMessage(o.content),
			IsError:   o.isError,
		}
		send(Event{Type: EventToolResult, Data: ToolResultEvent{
			Tool:    c.Name,
			CallID:  c.CallID,
			Content: o.content,
			IsError: o.isError,
		}})
	}
	return turns, records, nil
}

func (l *Loop) runTool(ctx context.Context, t Tool, c llm.ToolCall) toolOutcome {
	if err := ctx.Err(); err != nil {
		return errorOutcome(err)
	}

	start := time.Now()
	out, err := invoke(ctx, withTrace(t, c.CallID), c.Arguments)
	l.metrics.RecordTool(ctx, t.Name(), time.Since(start), err != nil)
	if err != nil {
		slog.Warn("agent: tool call failed", "tool", t.Name(), "call_id", c.CallID, "error", err)
		return errorOutcome(err)
	}
	return toolOutcome{content: string(out)}
}

func errorOutcome(err error) toolOutcome {
	payload, _ := json.Marshal(map[string]string{"error": err.Error()})
	return toolOutcome{content: string(payload), isError: true}
}
