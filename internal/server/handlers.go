package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/leapstack-labs/dashvars/internal/dag"
	"github.com/leapstack-labs/dashvars/internal/engine"
	"github.com/leapstack-labs/dashvars/pkg/core"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

var validate = validator.New()

// DashboardSummary is the listing view of a loaded dashboard.
type DashboardSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Variables int    `json:"variables"`
	Cycle     bool   `json:"cycle"`
}

// DashboardResponse is a dashboard with the live state of its variables.
type DashboardResponse struct {
	ID        string                 `json:"id"`
	Title     string                 `json:"title"`
	Order     []string               `json:"order"`
	Variables []engine.VariableState `json:"variables"`
}

// GraphResponse describes the dependency graph of a dashboard.
type GraphResponse struct {
	Nodes     []string            `json:"nodes"`
	Edges     map[string][]string `json:"edges"`
	Parents   map[string][]string `json:"parents"`
	Order     []string            `json:"order"`
	Levels    [][]string          `json:"levels,omitempty"`
	EdgeCount int                 `json:"edge_count"`
}

// CheckResponse is the result of a cycle check.
type CheckResponse struct {
	OK        bool     `json:"ok"`
	Error     string   `json:"error,omitempty"`
	Cycle     []string `json:"cycle,omitempty"`
	Unreached []string `json:"unreached,omitempty"`
}

// PropagateRequest names the variable whose selection changed.
type PropagateRequest struct {
	Variable string `json:"variable" validate:"required"`
}

// PropagateResponse lists what a change to Variable refreshes.
type PropagateResponse struct {
	Variable string   `json:"variable"`
	Affected []string `json:"affected"`
	Pending  []string `json:"pending"`
}

// SelectRequest sets the selection of a variable. Value may be a string,
// a number or a list; "__ALL__" selects every option.
type SelectRequest struct {
	Variable string `json:"variable" validate:"required"`
	Value    any    `json:"value"`
}

// SelectResponse is the report of a selection and the resulting state.
type SelectResponse struct {
	Report    *engine.Report         `json:"report"`
	Variables []engine.VariableState `json:"variables"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decodeBody reads a JSON body into v and validates it.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	loaded, failed := len(s.ids), len(s.loadErrs)
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"dashboards": loaded,
		"errors":     failed,
	})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	out := make([]DashboardSummary, 0, len(s.ids))
	for _, id := range s.ids {
		d := s.dashboards[id]
		out = append(out, DashboardSummary{
			ID:        d.ID,
			Title:     d.Title,
			Variables: len(d.Variables),
			Cycle:     dag.NewDependencyContext(d.Variables).HasCycle(),
		})
	}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, out)
}

// withEngine resolves the {id} URL parameter to a dashboard engine.
func (s *Server) withEngine(w http.ResponseWriter, r *http.Request) (*engine.Engine, bool) {
	id := chi.URLParam(r, "id")
	eng, ok := s.engineFor(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("dashboard %q not found", id))
		return nil, false
	}
	return eng, true
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.withEngine(w, r)
	if !ok {
		return
	}
	d := eng.Dashboard()
	writeJSON(w, http.StatusOK, DashboardResponse{
		ID:        d.ID,
		Title:     d.Title,
		Order:     eng.Dependencies().Order,
		Variables: eng.Variables(),
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.withEngine(w, r)
	if !ok {
		return
	}
	deps := eng.Dependencies()
	resp := GraphResponse{
		Nodes:     deps.Graph.Nodes(),
		Edges:     deps.Graph.Map(),
		Parents:   deps.Parents.Map(),
		Order:     deps.Order,
		EdgeCount: deps.Graph.EdgeCount(),
	}
	if levels, err := deps.Graph.Levels(); err == nil {
		resp.Levels = levels
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.withEngine(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, checkResponse(eng.Check()))
}

func checkResponse(err error) CheckResponse {
	if err == nil {
		return CheckResponse{OK: true}
	}
	resp := CheckResponse{Error: err.Error()}
	var ce *dag.CycleError
	if errors.As(err, &ce) {
		resp.Cycle = ce.Path
		resp.Unreached = ce.Unreached
	}
	return resp
}

func (s *Server) handlePropagate(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.withEngine(w, r)
	if !ok {
		return
	}
	var req PropagateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	d := eng.Dashboard()
	if _, ok := d.Variable(req.Variable); !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown variable %q", req.Variable))
		return
	}

	deps := eng.Dependencies()
	kinds := d.Kinds()
	resp := PropagateResponse{Variable: req.Variable, Affected: []string{}, Pending: []string{}}
	deps.Propagate(req.Variable, func(id string) {
		resp.Affected = append(resp.Affected, id)
		if id != req.Variable && kinds[id] == core.KindQuery {
			resp.Pending = append(resp.Pending, id)
		}
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.withEngine(w, r)
	if !ok {
		return
	}
	report, err := eng.RefreshAll(r.Context())
	if err != nil {
		writeError(w, refreshStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, SelectResponse{Report: report, Variables: eng.Variables()})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.withEngine(w, r)
	if !ok {
		return
	}
	var req SelectRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, ok := eng.Dashboard().Variable(req.Variable); !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown variable %q", req.Variable))
		return
	}

	report, err := eng.Select(r.Context(), req.Variable, req.Value)
	if err != nil {
		writeError(w, refreshStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, SelectResponse{Report: report, Variables: eng.Variables()})
}

// refreshStatus maps a refresh error to an HTTP status.
func refreshStatus(err error) int {
	if errors.Is(err, dag.ErrCycle) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.dashboard(id); !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("dashboard %q not found", id))
		return
	}
	if s.cfg.Store == nil {
		writeError(w, http.StatusNotImplemented, errors.New("run history is not recorded"))
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	runs, err := s.cfg.Store.ListRuns(id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []*core.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}
