package run

import (
	"bytes"
	"testing"

	"agentsmith/internal/agent"

	"github.com/stretchr/testify/assert"
)

func TestStreamTo(t *testing.T) {
	var out, status bytes.Buffer
	emit := streamTo(&out, &status)

	emit(agent.Event{Type: agent.EventToolCall, Data: agent.ToolCallEvent{Tool: "calculateROI", CallID: "c1", Arguments: `{"teamSize":3}`}})
	emit(agent.Event{Type: agent.EventToolResult, Data: agent.ToolResultEvent{Tool: "calculateROI", CallID: "c1", Content: `{"error":"x"}`, IsError: true}})
	emit(agent.Event{Type: agent.EventToken, Data: "Hello "})
	emit(agent.Event{Type: agent.EventToken, Data: "world"})
	emit(agent.Event{Type: agent.EventDone, Data: &agent.Result{State: agent.StateDone, Steps: 1}})

	assert.Equal(t, "Hello world", out.String())
	assert.Contains(t, status.String(), `→ calculateROI {"teamSize":3}`)
	assert.Contains(t, status.String(), `✗ calculateROI {"error":"x"}`)
	assert.Contains(t, status.String(), "[DONE after 1 steps, 0 units]")
}
