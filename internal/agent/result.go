package agent

import (
	"encoding/json"

	"agentsmith/internal/llm"
)

type State string

const (
	StateAwaitingModel     State = "AWAITING_MODEL"
	StateExecutingTools    State = "EXECUTING_TOOLS"
	StateDone              State = "DONE"
	StateStepLimitExceeded State = "STEP_LIMIT_EXCEEDED"
)

// ToolCallRecord is one entry of the tool call log.
type ToolCallRecord struct {
	Tool      string          `json:"tool"`
	CallID    string          `json:"callId"`
	Arguments json.RawMessage `json:"arguments"`
	Result    json.RawMessage `json:"result"`
	IsError   bool            `json:"isError,omitempty"`
}

// Result is the outcome of a run that reached a terminal state.
type Result struct {
	RunID     string           `json:"runId"`
	Profile   string           `json:"agentType"`
	FinalText string           `json:"response"`
	ToolCalls []ToolCallRecord `json:"toolCalls"`
	Usage     llm.Usage        `json:"usage"`
	Steps     int              `json:"steps"`
	State     State            `json:"state"`

	Transcript []llm.Turn `json:"-"`
}

// ToolsUsed returns the distinct tool names in call order.
func (r *Result) ToolsUsed() []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, c := range r.ToolCalls {
		if _, ok := seen[c.Tool]; ok {
			continue
		}
		seen[c.Tool] = struct{}{}
		out = append(out, c.Tool)
	}
	return out
}
