package mcp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/m-mizutani/devpilot/pkg/utils/logging"
)

// Router serves the MCP endpoint at /mcp next to read-only JSON views of the
// session state for dashboards.
//
//	GET  /healthz
//	GET  /metrics
//	GET  /workflows
//	GET  /workflows/{id}
//	GET  /interactions
//	POST /mcp
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", s.handleMetrics)
	r.Get("/workflows", s.handleListWorkflows)
	r.Get("/workflows/{id}", s.handleGetWorkflow)
	r.Get("/interactions", s.handleListInteractions)
	r.Handle("/mcp", s.Handler())

	return r
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.RefreshMetrics())
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, _ *http.Request) {
	workflows := s.sess.State().Workflows
	if workflows == nil {
		workflows = []model.WorkflowTask{}
	}
	writeJSON(w, http.StatusOK, workflows)
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	id := model.WorkflowID(chi.URLParam(r, "id"))
	task, ok := s.sess.State().Workflow(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workflow not found"})
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleListInteractions(w http.ResponseWriter, r *http.Request) {
	kind := model.InteractionKind(r.URL.Query().Get("kind"))
	if kind != "" {
		if err := kind.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown interaction kind"})
			return
		}
	}
	writeJSON(w, http.StatusOK, recentInteractions(s.sess.State().Interactions, kind, defaultListLimit))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Default().Warn("failed to write response", "error", err)
	}
}
