package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
)

type estimationRequest struct {
	TenantID string `json:"tenant_id"`
	LeadID   string `json:"lead_id"`
}

type estimationResponse struct {
	EstimationID string `json:"estimation_id"`
	LeadID       string `json:"lead_id"`
}

// handleRecordEstimation handles POST /v1/calibration/estimations.
func (s *Server) handleRecordEstimation(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_estimation"
	var req estimationRequest
	if err := s.decode(w, r, op, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.LeadID) == "" {
		s.fail(w, r, WrapKind(op, ErrBadRequest, errors.New("missing lead_id")))
		return
	}
	id, err := s.deps.RecordEstimation(r.Context(), req.TenantID, req.LeadID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, estimationResponse{EstimationID: id, LeadID: req.LeadID})
}

// handleGetEstimation handles GET /v1/calibration/estimations/{id}.
func (s *Server) handleGetEstimation(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.GetEstimation(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type outcomeRequest struct {
	Success         bool               `json:"success"`
	RealizedMetrics map[string]float64 `json:"realized_metrics,omitempty"`
	ObservedAt      time.Time          `json:"observed_at"`
}

// handleReconcile handles POST /v1/calibration/estimations/{id}/outcome.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	const op = "api.reconcile"
	var req outcomeRequest
	if err := s.decode(w, r, op, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	summary, err := s.deps.Reconcile(r.Context(), r.PathValue("id"), model.Outcome{
		Success:         req.Success,
		RealizedMetrics: req.RealizedMetrics,
		ObservedAt:      req.ObservedAt,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleDashboard handles GET /v1/calibration/dashboard?tenant_id=.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Dashboard(r.Context(), r.URL.Query().Get("tenant_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
