// Package metrics records agent, model and tool metrics through the
// OpenTelemetry metric SDK and exposes them in Prometheus format.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the instruments. A nil *Metrics is valid and records nothing.
type Metrics struct {
	handler http.Handler

	runs          metric.Int64Counter
	runDuration   metric.Float64Histogram
	modelCalls    metric.Int64Counter
	modelErrors   metric.Int64Counter
	modelDuration metric.Float64Histogram
	promptUnits   metric.Int64Counter
	outputUnits   metric.Int64Counter
	toolCalls     metric.Int64Counter
	toolErrors    metric.Int64Counter
	toolDuration  metric.Float64Histogram
	httpRequests  metric.Int64Counter
	httpDuration  metric.Float64Histogram
}

// New builds the instruments on a private Prometheus registry.
func New() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("agentsmith")

	m := &Metrics{
		handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.runs, "agentsmith_agent_runs_total", "Total agent runs by agent and terminal state"},
		{&m.modelCalls, "agentsmith_model_calls_total", "Total completion API calls"},
		{&m.modelErrors, "agentsmith_model_errors_total", "Total failed completion API calls"},
		{&m.promptUnits, "agentsmith_prompt_units_total", "Total prompt units reported by the completion API"},
		{&m.outputUnits, "agentsmith_completion_units_total", "Total completion units reported by the completion API"},
		{&m.toolCalls, "agentsmith_tool_calls_total", "Total tool invocations"},
		{&m.toolErrors, "agentsmith_tool_errors_total", "Total tool invocations that returned an error payload"},
		{&m.httpRequests, "agentsmith_http_requests_total", "Total HTTP requests by route and status"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", c.name, err)
		}
		*c.dst = counter
	}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&m.runDuration, "agentsmith_agent_run_duration_seconds", "Agent run duration in seconds"},
		{&m.modelDuration, "agentsmith_model_call_duration_seconds", "Completion API call duration in seconds"},
		{&m.toolDuration, "agentsmith_tool_duration_seconds", "Tool execution duration in seconds"},
		{&m.httpDuration, "agentsmith_http_request_duration_seconds", "HTTP request duration in seconds"},
	}
	for _, h := range histograms {
		hist, err := meter.Float64Histogram(h.name, metric.WithDescription(h.desc), metric.WithUnit("s"))
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", h.name, err)
		}
		*h.dst = hist
	}

	return m, nil
}

// Handler serves the Prometheus exposition format. It returns 404 when
// metrics are disabled.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return m.handler
}

func (m *Metrics) RecordRun(ctx context.Context, agent, state string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("agent", agent),
		attribute.String("state", state),
	)
	m.runs.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, d.Seconds(), attrs)
}

func (m *Metrics) RecordModelCall(ctx context.Context, agent string, d time.Duration, promptUnits, completionUnits int64, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("agent", agent))
	m.modelCalls.Add(ctx, 1, attrs)
	m.modelDuration.Record(ctx, d.Seconds(), attrs)
	if err != nil {
		m.modelErrors.Add(ctx, 1, attrs)
		return
	}
	m.promptUnits.Add(ctx, promptUnits, attrs)
	m.outputUnits.Add(ctx, completionUnits, attrs)
}

func (m *Metrics) RecordTool(ctx context.Context, tool string, d time.Duration, failed bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("tool", tool))
	m.toolCalls.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, d.Seconds(), attrs)
	if failed {
		m.toolErrors.Add(ctx, 1, attrs)
	}
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, d.Seconds(), attrs)
}
