package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	service "github.com/Bizoholic-Digital/leadscore/internal/app"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
	"github.com/Bizoholic-Digital/leadscore/pkg/logger"
)

const defaultTopLimit = 10

// Update, when present, is applied on top of Lead before scoring, so a
// collaborator can send the last known record plus what changed.
type scoreRequest struct {
	Lead              model.LeadRecord   `json:"lead"`
	Update            *model.LeadUpdate  `json:"update,omitempty"`
	AdditionalMetrics map[string]float64 `json:"additional_metrics,omitempty"`
	UseAI             bool               `json:"use_ai"`
}

type scoreResponse struct {
	*model.ScoringResult
	Warnings []string `json:"warnings,omitempty"`
}

type bulkRequest struct {
	Leads []model.LeadRecord `json:"leads"`
	UseAI bool               `json:"use_ai"`
}

type bulkResponse struct {
	Results   []model.ScoringResult `json:"results"`
	Failures  []service.LeadFailure `json:"failures"`
	Warnings  []service.LeadFailure `json:"warnings"`
	Cancelled bool                  `json:"cancelled,omitempty"`
}

type enqueueRequest struct {
	SignalID          string             `json:"signal_id"`
	Lead              model.LeadRecord   `json:"lead"`
	Update            *model.LeadUpdate  `json:"update,omitempty"`
	AdditionalMetrics map[string]float64 `json:"additional_metrics,omitempty"`
	UseAI             bool               `json:"use_ai"`
}

// handleScore handles POST /v1/leads/score. A persistence failure still
// answers 200 with the result and a warning.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.score_lead"
	var req scoreRequest
	if err := s.decode(w, r, op, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.deps.ScoreLeadWithMetrics(r.Context(), withUpdate(req.Lead, req.Update), req.UseAI, req.AdditionalMetrics)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, scoreResponse{ScoringResult: res})
	case errors.Is(err, service.ErrPersistence) && res != nil:
		writeJSON(w, http.StatusOK, scoreResponse{ScoringResult: res, Warnings: []string{err.Error()}})
	default:
		s.fail(w, r, err)
	}
}

// handleBulkScore handles POST /v1/leads/bulk-score.
func (s *Server) handleBulkScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.bulk_score"
	var req bulkRequest
	if err := s.decode(w, r, op, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	results, err := s.deps.BulkScore(r.Context(), req.Leads, req.UseAI)
	resp := bulkResponse{
		Results:  results,
		Failures: []service.LeadFailure{},
		Warnings: []service.LeadFailure{},
	}
	var partial *service.BatchPartialFailure
	if errors.As(err, &partial) {
		resp.Failures = append(resp.Failures, partial.Failures...)
		resp.Warnings = append(resp.Warnings, partial.Warnings...)
	}
	if r.Context().Err() != nil && errors.Is(err, r.Context().Err()) {
		resp.Cancelled = true
		s.log.Warn(r.Context(), "bulk request cancelled", logger.Int("scored", len(results)))
	}
	if err != nil && partial == nil && !resp.Cancelled {
		s.fail(w, r, err)
		return
	}
	if resp.Results == nil {
		resp.Results = []model.ScoringResult{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleEnqueue handles POST /v1/leads/enqueue: 202 when queued, 200 for a
// duplicate signal, 429 when the queue is full.
func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	const op = "api.enqueue"
	var req enqueueRequest
	if err := s.decode(w, r, op, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	lead := withUpdate(req.Lead, req.Update)
	ack, err := s.deps.Enqueue(r.Context(), strings.TrimSpace(req.SignalID), lead, req.UseAI, req.AdditionalMetrics)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status := http.StatusAccepted
	if ack.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, ack)
}

// handleGetScore handles GET /v1/leads/{id}/score.
func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.GetCachedScore(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleTopLeads handles GET /v1/leads/top?limit=N. The limit defaults to 10
// and is capped at the configured maximum.
func (s *Server) handleTopLeads(w http.ResponseWriter, r *http.Request) {
	const op = "api.top_leads"
	n := defaultTopLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			s.fail(w, r, WrapKind(op, ErrBadRequest, errors.New("limit must be a positive integer")))
			return
		}
		n = v
	}
	n = min(n, s.maxTopLimit)
	leads, err := s.deps.TopLeads(r.Context(), n)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

func withUpdate(lead model.LeadRecord, u *model.LeadUpdate) model.LeadRecord {
	if u == nil || u.IsZero() {
		return lead
	}
	return u.Apply(lead)
}
