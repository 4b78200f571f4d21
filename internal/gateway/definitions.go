package gateway

import (
	"errors"
	"log/slog"
	"net/http"

	"agentsmith/internal/definitions"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	defs, err := s.store.List(r.Context())
	if err != nil {
		s.writeDefinitionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"definitions": defs})
}

func (s *Server) handleCreateDefinition(w http.ResponseWriter, r *http.Request) {
	var body definitions.Definition
	if !decodeBody(w, r, &body) {
		return
	}
	d, err := s.store.Create(r.Context(), body)
	if err != nil {
		s.writeDefinitionError(w, err)
		return
	}
	w.Header().Set("Location", "/api/definitions/"+d.ID)
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDefinitionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleUpdateDefinition(w http.ResponseWriter, r *http.Request) {
	var body definitions.Definition
	if !decodeBody(w, r, &body) {
		return
	}
	d, err := s.store.Update(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		s.writeDefinitionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDefinition(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDefinitionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeDefinitionError maps store errors to statuses. Validation messages
// are user input problems and are returned as-is.
func (s *Server) writeDefinitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, definitions.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, definitions.ErrNotFound):
		writeError(w, http.StatusNotFound, "agent definition not found")
	case errors.Is(err, definitions.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("gateway: definition store", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process definition request")
	}
}
