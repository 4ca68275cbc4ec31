package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/leapstack-labs/leapflow/internal/codegen"
	"github.com/leapstack-labs/leapflow/internal/graph"
	"github.com/leapstack-labs/leapflow/internal/interp"
	"github.com/leapstack-labs/leapflow/internal/state"
	"github.com/leapstack-labs/leapflow/internal/validate"
)

// previewLimit caps how many rows a run response carries.
const previewLimit = 200

type generateResponse struct {
	Python string `json:"python"`
	SQL    string `json:"sql"`
}

type runResponse struct {
	Columns    []string          `json:"columns"`
	Rows       []interp.Row      `json:"rows"`
	RowCount   int               `json:"row_count"`
	Truncated  bool              `json:"truncated"`
	NodeErrors map[string]string `json:"node_errors"`
	Python     string            `json:"python"`
	SQL        string            `json:"sql"`
}

type violationJSON struct {
	NodeID string `json:"node_id,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Msg    string `json:"msg"`
}

type errorResponse struct {
	Error      string          `json:"error"`
	Violations []violationJSON `json:"violations,omitempty"`
}

// decodeRequest reads a workflow document plus the optional preview
// target from the request body.
func decodeRequest(r *http.Request) (*graph.Workflow, string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, 32<<20))
	if err != nil {
		return nil, "", err
	}
	var extra struct {
		Target string `json:"target"`
	}
	_ = json.Unmarshal(body, &extra)

	wf, err := graph.DecodeWorkflow(body)
	if err != nil {
		return nil, "", err
	}
	return wf, extra.Target, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	wf, target, err := decodeRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	g := wf.Graph()
	s.writeJSON(w, http.StatusOK, generateResponse{
		Python: codegen.Pandas(g, target),
		SQL:    codegen.SQL(g, target),
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	wf, target, err := decodeRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	g := wf.Graph()

	rec := s.startRecord(state.RunKindRun, target)
	res, err := s.runner.Run(r.Context(), g, target)
	if err != nil {
		s.finishRecord(rec, state.RunStatusFailed, 0, err.Error())
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.finishRecord(rec, state.RunStatusSuccess, len(res.RowSet.Rows), "")

	rows := res.RowSet.Rows
	truncated := false
	if len(rows) > previewLimit {
		rows = rows[:previewLimit]
		truncated = true
	}
	s.writeJSON(w, http.StatusOK, runResponse{
		Columns:    res.RowSet.Cols,
		Rows:       rows,
		RowCount:   len(res.RowSet.Rows),
		Truncated:  truncated,
		NodeErrors: res.NodeErrors,
		Python:     codegen.Pandas(g, target),
		SQL:        codegen.SQL(g, target),
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	wf, target, err := decodeRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	rec := s.startRecord(state.RunKindValidate, target)
	rep, err := s.checker.Check(r.Context(), wf.Graph(), target)
	if err != nil {
		s.finishRecord(rec, state.RunStatusFailed, 0, err.Error())
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	status := state.RunStatusSuccess
	if !rep.Match {
		status = state.RunStatusMismatch
	}
	s.finishRecord(rec, status, rep.Interp.Rows, rep.Reason)
	s.writeJSON(w, http.StatusOK, rep)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}

	var verr *validate.Error
	if errors.As(err, &verr) {
		for _, v := range verr.Violations {
			resp.Violations = append(resp.Violations, violationJSON{
				NodeID: v.NodeID,
				Kind:   string(v.Kind),
				Msg:    v.Msg,
			})
		}
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) startRecord(kind state.RunKind, target string) *state.Run {
	if s.store == nil {
		return nil
	}
	run, err := s.store.StartRun(kind, target)
	if err != nil {
		s.logger.Warn("record run start", "error", err)
		return nil
	}
	return run
}

func (s *Server) finishRecord(run *state.Run, status state.RunStatus, rows int, errMsg string) {
	if run == nil || s.store == nil {
		return
	}
	if err := s.store.FinishRun(run.ID, status, rows, errMsg); err != nil {
		s.logger.Warn("record run finish", "error", err)
	}
}
