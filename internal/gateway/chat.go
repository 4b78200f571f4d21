package gateway

import (
	"log/slog"
	"net/http"

	"agentsmith/internal/agent"
	"agentsmith/internal/definitions"
	"agentsmith/internal/llm"
)

const chatFailure = "Failed to process message"

type chatRequest struct {
	Message     string                  `json:"message"`
	AgentID     string                  `json:"agentId,omitempty"`
	AgentConfig *definitions.Definition `json:"agentConfig,omitempty"`
	Context     map[string]any          `json:"context,omitempty"`
}

type chatResponse struct {
	Content           string      `json:"content"`
	ToolsUsed         []string    `json:"toolsUsed"`
	HandoffSuggestion *string     `json:"handoffSuggestion"`
	Usage             llm.Usage   `json:"usage"`
	State             agent.State `json:"state"`
	RunID             string      `json:"runId"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	def, loop, req, ok := s.prepareChat(w, r)
	if !ok {
		return
	}

	res, err := loop.Run(r.Context(), req, nil)
	if err != nil {
		logRunError(r.Context(), def.Name, err)
		writeError(w, http.StatusInternalServerError, chatFailure)
		return
	}

	resp := chatResponse{
		Content:   res.FinalText,
		ToolsUsed: res.ToolsUsed(),
		Usage:     res.Usage,
		State:     res.State,
		RunID:     res.RunID,
	}
	if h := def.HandoffSuggestion(); h != "" {
		resp.HandoffSuggestion = &h
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	def, loop, req, ok := s.prepareChat(w, r)
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
		}
	})
	if err != nil {
		logRunError(r.Context(), def.Name, err)
		sse.Send("error", map[string]string{"error": chatFailure})
	}
}

// prepareChat resolves the custom agent from a saved id or an inline
// configuration and builds its loop.
func (s *Server) prepareChat(w http.ResponseWriter, r *http.Request) (*definitions.Definition, *agent.Loop, agent.Request, bool) {
	var body chatRequest
	if !decodeBody(w, r, &body) {
		return nil, nil, agent.Request{}, false
	}
	if body.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return nil, nil, agent.Request{}, false
	}

	var def *definitions.Definition
	switch {
	case body.AgentID != "":
		if s.store == nil {
			writeError(w, http.StatusNotFound, "agent definitions are not enabled")
			return nil, nil, agent.Request{}, false
		}
		d, err := s.store.Get(r.Context(), body.AgentID)
		if err != nil {
			s.writeDefinitionError(w, err)
			return nil, nil, agent.Request{}, false
		}
		def = d
	case body.AgentConfig != nil:
		d := body.AgentConfig.Normalize()
		if err := d.Validate(s.hasTool); err != nil {
			s.writeDefinitionError(w, err)
			return nil, nil, agent.Request{}, false
		}
		def = &d
	default:
		writeError(w, http.StatusBadRequest, "agentId or agentConfig is required")
		return nil, nil, agent.Request{}, false
	}

	profile, err := def.ToProfile(s.customMaxSteps)
	if err != nil {
		slog.Error("gateway: custom agent profile", "agent", def.Name, "error", err)
		writeError(w, http.StatusInternalServerError, chatFailure)
		return nil, nil, agent.Request{}, false
	}
	loop, err := s.factory.BuildFor(profile)
	if err != nil {
		slog.Error("gateway: building custom agent", "agent", def.Name, "error", err)
		writeError(w, http.StatusInternalServerError, chatFailure)
		return nil, nil, agent.Request{}, false
	}
	return def, loop, agent.Request{Message: body.Message, Context: body.Context}, true
}

func (s *Server) hasTool(name string) bool {
	_, ok := s.registry.Get(name)
	return ok
}
