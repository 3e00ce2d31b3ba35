// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Bizoholic-Digital/leadscore/internal/adapters/mq/queue"
	"github.com/Bizoholic-Digital/leadscore/internal/adapters/repository"
	service "github.com/Bizoholic-Digital/leadscore/internal/app"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/calibration"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/types"
	"github.com/Bizoholic-Digital/leadscore/pkg/logger"
)

var errTrailingData = errors.New("trailing data after JSON body")

const (
	defaultMaxTopLimit  = 100
	defaultMaxBodyBytes = 4 << 20
)

// LeadDependencies covers the scoring operations.
type LeadDependencies interface {
	ScoreLeadWithMetrics(ctx context.Context, lead model.LeadRecord, useAI bool, extra map[string]float64) (*model.ScoringResult, error)
	BulkScore(ctx context.Context, leads []model.LeadRecord, useAI bool) ([]model.ScoringResult, error)
	GetCachedScore(ctx context.Context, leadID string) (*model.ScoringResult, error)
	TopLeads(ctx context.Context, n int) ([]types.RankedLead, error)
	Enqueue(ctx context.Context, signalID string, lead model.LeadRecord, useAI bool, extra map[string]float64) (types.EnqueueAck, error)
}

// CalibrationDependencies covers the feedback loop.
type CalibrationDependencies interface {
	RecordEstimation(ctx context.Context, tenantID, leadID string) (string, error)
	GetEstimation(ctx context.Context, estimationID string) (model.CalibrationRecord, error)
	Reconcile(ctx context.Context, estimationID string, outcome model.Outcome) (calibration.Summary, error)
	Dashboard(ctx context.Context, tenantID string) (calibration.Dashboard, error)
}

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	LeadDependencies
	CalibrationDependencies
	StatsProvider
}

// Option configures a Server.
type Option func(*Server)

// WithMaxTopLimit caps GET /v1/leads/top?limit.
func WithMaxTopLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxTopLimit = n
		}
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps         Dependencies
	health       *HealthHandler
	stats        *StatsHandler
	maxTopLimit  int
	maxBodyBytes int64
	log          logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:         deps,
		health:       NewHealthHandler(),
		stats:        NewStatsHandler(deps),
		maxTopLimit:  defaultMaxTopLimit,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("http")
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.stats.HandleStats, "stats"))

	mux.HandleFunc("POST /v1/leads/score", MetricsMiddleware(s.handleScore, "score"))
	mux.HandleFunc("POST /v1/leads/bulk-score", MetricsMiddleware(s.handleBulkScore, "bulk_score"))
	mux.HandleFunc("POST /v1/leads/enqueue", MetricsMiddleware(s.handleEnqueue, "enqueue"))
	mux.HandleFunc("GET /v1/leads/top", MetricsMiddleware(s.handleTopLeads, "top_leads"))
	mux.HandleFunc("GET /v1/leads/{id}/score", MetricsMiddleware(s.handleGetScore, "get_score"))

	mux.HandleFunc("POST /v1/calibration/estimations", MetricsMiddleware(s.handleRecordEstimation, "record_estimation"))
	mux.HandleFunc("GET /v1/calibration/estimations/{id}", MetricsMiddleware(s.handleGetEstimation, "get_estimation"))
	mux.HandleFunc("POST /v1/calibration/estimations/{id}/outcome", MetricsMiddleware(s.handleReconcile, "reconcile"))
	mux.HandleFunc("GET /v1/calibration/dashboard", MetricsMiddleware(s.handleDashboard, "calibration_dashboard"))
}

type errorResponse struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Fields  []model.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	resp := errorResponse{Code: code, Message: http.StatusText(status)}
	if err != nil {
		resp.Message = err.Error()
	}
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	writeJSON(w, status, resp)
}

// statusFor maps an error to the response status and code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrBatchTooBig):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, calibration.ErrNotFound),
		errors.Is(err, calibration.ErrUnknownEstimation):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, calibration.ErrAlreadyReconciled):
		return http.StatusConflict, "already_reconciled"
	case errors.Is(err, queue.ErrFull), errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, queue.ErrClosed):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// fail logs server side failures and writes the mapped error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("method", r.Method),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}

// decode reads a single JSON document and rejects unknown fields.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, op string, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return WrapKind(op, ErrBadRequest, errTrailingData)
	}
	return nil
}
