package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"agentsmith/internal/agent"
	"agentsmith/internal/catalog"
	"agentsmith/internal/llm"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type agentRequest struct {
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

type toolCallView struct {
	Tool      string          `json:"tool"`
	CallID    string          `json:"callId"`
	Arguments json.RawMessage `json:"args"`
	Result    json.RawMessage `json:"result"`
	IsError   bool            `json:"isError,omitempty"`
}

type agentResponse struct {
	Response  string         `json:"response"`
	ToolCalls []toolCallView `json:"toolCalls"`
	Usage     llm.Usage      `json:"usage"`
	AgentType string         `json:"agentType"`
	Steps     int            `json:"steps"`
	State     agent.State    `json:"state"`
	RunID     string         `json:"runId"`
}

func toAgentResponse(res *agent.Result) agentResponse {
	calls := make([]toolCallView, 0, len(res.ToolCalls))
	for _, c := range res.ToolCalls {
		calls = append(calls, toolCallView{
			Tool:      c.Tool,
			CallID:    c.CallID,
			Arguments: c.Arguments,
			Result:    c.Result,
			IsError:   c.IsError,
		})
	}
	return agentResponse{
		Response:  res.FinalText,
		ToolCalls: calls,
		Usage:     res.Usage,
		AgentType: res.Profile,
		Steps:     res.Steps,
		State:     res.State,
		RunID:     res.RunID,
	}
}

func (s *Server) handleRunAgent(w http.ResponseWriter, r *http.Request) {
	agentType := chi.URLParam(r, "agentType")
	loop, req, ok := s.prepareAgentRun(w, r, agentType)
	if !ok {
		return
	}

	res, err := loop.Run(r.Context(), req, nil)
	if err != nil {
		logRunError(r.Context(), agentType, err)
		writeError(w, http.StatusInternalServerError, catalog.FailureMessage(agentType))
		return
	}
	writeJSON(w, http.StatusOK, toAgentResponse(res))
}

func (s *Server) handleStreamAgent(w http.ResponseWriter, r *http.Request) {
	agentType := chi.URLParam(r, "agentType")
	loop, req, ok := s.prepareAgentRun(w, r, agentType)
	if !ok {
		return
	}

	sse := NewSSEWriter(w)
	defer sse.Done()

	_, err := loop.Run(r.Context(), req, func(ev agent.Event) {
		switch ev.Type {
		case agent.EventToken:
			sse.Data(map[string]string{"content": ev.Data.(string)})
		case agent.EventToolCall:
			sse.Send("tool_call", ev.Data)
		case agent.EventToolResult:
			sse.Send("tool_result", ev.Data)
		case agent.EventDone:
			sse.Send("done", toAgentResponse(ev.Data.(*agent.Result)))
		}
	})
	if err != nil {
		logRunError(r.Context(), agentType, err)
		sse.Send("error", map[string]string{"error": catalog.FailureMessage(agentType)})
	}
}

// prepareAgentRun resolves the agent type and decodes the body. It writes
// the error response itself and reports false on failure.
func (s *Server) prepareAgentRun(w http.ResponseWriter, r *http.Request, agentType string) (*agent.Loop, agent.Request, bool) {
	if _, ok := s.factory.Profile(agentType); !ok {
		writeError(w, http.StatusNotFound, "unknown agent type: "+agentType)
		return nil, agent.Request{}, false
	}

	var body agentRequest
	if !decodeBody(w, r, &body) {
		return nil, agent.Request{}, false
	}
	if body.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return nil, agent.Request{}, false
	}

	loop, err := s.factory.Build(agentType)
	if err != nil {
		slog.Error("gateway: building agent", "agent", agentType, "error", err)
		writeError(w, http.StatusInternalServerError, catalog.FailureMessage(agentType))
		return nil, agent.Request{}, false
	}
	return loop, agent.Request{Message: body.Message, Context: body.Context}, true
}

type agentInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tools       []string `json:"tools"`
	MaxSteps    int      `json:"maxSteps"`
	Model       string   `json:"model,omitempty"`
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	profiles := s.factory.Profiles()
	out := make([]agentInfo, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, agentInfo{
			Name:        p.Name(),
			Description: p.Description(),
			Tools:       p.Tools(),
			MaxSteps:    p.MaxSteps(),
			Model:       p.Model(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": out})
}

type toolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	specs := s.registry.Specs()
	out := make([]toolInfo, 0, len(specs))
	for _, spec := range specs {
		out = append(out, toolInfo{Name: spec.Name, Description: spec.Description, Parameters: spec.Parameters})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": out})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func logRunError(ctx context.Context, agentType string, err error) {
	if errors.Is(err, context.Canceled) {
		slog.Info("gateway: run cancelled by client", "agent", agentType)
		return
	}
	slog.Error("gateway: run failed", "agent", agentType, "error", err)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("gateway: writing response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
