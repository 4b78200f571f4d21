package agent

import (
	"context"
	"encoding/json"
	"log/slog"

	"agentsmith/internal/trace"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

type tracedTool struct {
	Tool
	callID string
}

func withTrace(t Tool, callID string) Tool {
	return &tracedTool{Tool: t, callID: callID}
}

func (t *tracedTool) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	ctx, span := trace.Tracer().Start(ctx, "tool."+t.Name(),
		oteltrace.WithAttributes(
			attribute.String("gen_ai.tool.name", t.Name()),
			attribute.String("gen_ai.tool.call.id", t.callID),
			attribute.String("gen_ai.tool.input", string(args)),
			attribute.String("agentsmith.run.id", RunIDFromContext(ctx)),
			attribute.String("agentsmith.agent.name", AgentNameFromContext(ctx)),
		),
	)
	defer span.End()

	sc := span.SpanContext()
	slog.Debug("agent: tool span started", "agent", AgentNameFromContext(ctx), "tool", t.Name(), "trace_id", sc.TraceID(), "span_id", sc.SpanID())

	result, err := t.Tool.Execute(ctx, args)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}
	return result, nil
}
