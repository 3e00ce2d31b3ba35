// Package calibration records score projections and reconciles them with
// observed outcomes to measure how well the engine predicts conversions.
package calibration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
	"github.com/Bizoholic-Digital/leadscore/pkg/logger"
	"github.com/Bizoholic-Digital/leadscore/pkg/metrics"
)

// Neutral values reported before anything has been reconciled.
const (
	neutralAccuracy    = 0.5
	neutralSuccessRate = 0.0
)

// Archiver receives reconciled records for long-term storage.
type Archiver interface {
	Archive(ctx context.Context, rec model.CalibrationRecord) error
}

// Summary is returned by Reconcile.
type Summary struct {
	EstimationID        string             `json:"estimation_id"`
	LeadID              string             `json:"lead_id"`
	Success             bool               `json:"success"`
	CalibrationAccuracy float64            `json:"calibration_accuracy"`
	MetricAccuracy      map[string]float64 `json:"metric_accuracy"`
	ReconciledAt        time.Time          `json:"reconciled_at"`
}

// LevelStats aggregates records projected at one qualification level.
type LevelStats struct {
	Estimations         int     `json:"estimations"`
	Reconciled          int     `json:"reconciled"`
	SuccessRate         float64 `json:"success_rate"`
	CalibrationAccuracy float64 `json:"calibration_accuracy"`
}

// Dashboard aggregates a tenant's calibration history.
type Dashboard struct {
	TenantID            string                                  `json:"tenant_id,omitempty"`
	TotalEstimations    int                                     `json:"total_estimations"`
	ReconciledCount     int                                     `json:"reconciled_count"`
	PendingCount        int                                     `json:"pending_count"`
	SuccessRate         float64                                 `json:"success_rate"`
	CalibrationAccuracy float64                                 `json:"calibration_accuracy"`
	ByLevel             map[model.QualificationLevel]LevelStats `json:"by_level"`
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithRepository sets the record store. Defaults to a MemoryRepository.
func WithRepository(r Repository) Option {
	return func(t *Tracker) {
		if r != nil {
			t.repo = r
		}
	}
}

// WithArchiver exports every reconciled record.
func WithArchiver(a Archiver) Option {
	return func(t *Tracker) { t.archiver = a }
}

// WithLogger sets the tracker logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithIDGenerator overrides estimation id generation.
func WithIDGenerator(gen func() string) Option {
	return func(t *Tracker) {
		if gen != nil {
			t.newID = gen
		}
	}
}

// Tracker records estimations and reconciles them. Safe for concurrent use;
// atomicity of reconciliation is delegated to the Repository.
type Tracker struct {
	repo     Repository
	archiver Archiver
	log      logger.Logger
	now      func() time.Time
	newID    func() string
}

// NewTracker builds a Tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		repo:  NewMemoryRepository(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.log == nil {
		t.log = logger.Get().Named("calibration")
	}
	return t
}

// RecordEstimation stores the projection of result and returns its id.
// An empty tenantID falls back to the lead's tenant.
func (t *Tracker) RecordEstimation(ctx context.Context, tenantID string, lead model.LeadRecord, result model.ScoringResult) (string, error) {
	if tenantID == "" {
		tenantID = lead.TenantID
	}
	leadID := lead.LeadID
	if leadID == "" {
		leadID = result.LeadID
	}
	rec := model.CalibrationRecord{
		EstimationID: t.newID(),
		LeadID:       leadID,
		TenantID:     tenantID,
		Projected:    model.ProjectFromResult(result),
		RecordedAt:   t.now().UTC(),
	}
	if err := t.repo.Insert(ctx, rec); err != nil {
		return "", fmt.Errorf("record estimation for lead %s: %w", leadID, err)
	}
	metrics.RecordEstimation()
	t.log.Debug(ctx, "estimation recorded",
		logger.String("estimation_id", rec.EstimationID),
		logger.String("lead_id", leadID),
		logger.Float64("projected_score", result.TotalScore),
	)
	return rec.EstimationID, nil
}

// Get returns a recorded estimation or ErrNotFound.
func (t *Tracker) Get(ctx context.Context, estimationID string) (model.CalibrationRecord, error) {
	rec, err := t.repo.Get(ctx, estimationID)
	if err != nil {
		return model.CalibrationRecord{}, fmt.Errorf("get estimation %s: %w", estimationID, err)
	}
	return rec, nil
}

// Reconcile attaches the observed outcome to an estimation exactly once.
func (t *Tracker) Reconcile(ctx context.Context, estimationID string, outcome model.Outcome) (Summary, error) {
	rec, err := t.repo.Get(ctx, estimationID)
	switch {
	case errors.Is(err, ErrNotFound):
		return Summary{}, fmt.Errorf("%w: %s", ErrUnknownEstimation, estimationID)
	case err != nil:
		return Summary{}, fmt.Errorf("load estimation %s: %w", estimationID, err)
	case rec.Reconciled():
		return Summary{}, fmt.Errorf("%w: %s", ErrAlreadyReconciled, estimationID)
	}

	now := t.now().UTC()
	if outcome.ObservedAt.IsZero() {
		outcome.ObservedAt = now
	}
	accuracy, perMetric := Accuracy(rec.Projected, outcome)

	updated, err := t.repo.Reconcile(ctx, estimationID, outcome, accuracy, now)
	switch {
	case errors.Is(err, ErrAlreadyReconciled):
		return Summary{}, fmt.Errorf("%w: %s", ErrAlreadyReconciled, estimationID)
	case errors.Is(err, ErrNotFound):
		return Summary{}, fmt.Errorf("%w: %s", ErrUnknownEstimation, estimationID)
	case err != nil:
		return Summary{}, fmt.Errorf("reconcile estimation %s: %w", estimationID, err)
	}

	metrics.RecordReconciliation(outcome.Success, accuracy)
	t.log.Info(ctx, "estimation reconciled",
		logger.String("estimation_id", estimationID),
		logger.String("lead_id", updated.LeadID),
		logger.Bool("success", outcome.Success),
		logger.Float64("accuracy", accuracy),
	)

	if t.archiver != nil {
		if err := t.archiver.Archive(ctx, updated); err != nil {
			metrics.RecordErrorByComponent("calibration", "archive")
			t.log.Warn(ctx, "archive reconciled estimation failed",
				logger.String("estimation_id", estimationID),
				logger.Error(err),
			)
		}
	}

	return Summary{
		EstimationID:        estimationID,
		LeadID:              updated.LeadID,
		Success:             outcome.Success,
		CalibrationAccuracy: accuracy,
		MetricAccuracy:      perMetric,
		ReconciledAt:        now,
	}, nil
}

// Dashboard aggregates the history of tenantID ("" for every tenant).
func (t *Tracker) Dashboard(ctx context.Context, tenantID string) (Dashboard, error) {
	records, err := t.repo.List(ctx, tenantID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list estimations: %w", err)
	}

	d := Dashboard{TenantID: tenantID, ByLevel: make(map[model.QualificationLevel]LevelStats, len(model.Levels))}
	type acc struct {
		n, reconciled, wins int
		accuracy            float64
	}
	levels := make(map[model.QualificationLevel]*acc, len(model.Levels))
	for _, l := range model.Levels {
		levels[l] = &acc{}
	}
	var all acc

	for _, rec := range records {
		la, ok := levels[rec.Projected.QualificationLevel]
		if !ok {
			la = &acc{}
			levels[rec.Projected.QualificationLevel] = la
		}
		for _, a := range []*acc{&all, la} {
			a.n++
			if rec.Reconciled() {
				a.reconciled++
				if rec.ActualOutcome.Success {
					a.wins++
				}
				if rec.CalibrationAccuracy != nil {
					a.accuracy += *rec.CalibrationAccuracy
				}
			}
		}
	}

	rates := func(a *acc) (success, accuracy float64) {
		if a.reconciled == 0 {
			return neutralSuccessRate, neutralAccuracy
		}
		return float64(a.wins) / float64(a.reconciled), a.accuracy / float64(a.reconciled)
	}

	d.TotalEstimations = all.n
	d.ReconciledCount = all.reconciled
	d.PendingCount = all.n - all.reconciled
	d.SuccessRate, d.CalibrationAccuracy = rates(&all)
	for level, a := range levels {
		s, c := rates(a)
		d.ByLevel[level] = LevelStats{Estimations: a.n, Reconciled: a.reconciled, SuccessRate: s, CalibrationAccuracy: c}
	}
	return d, nil
}
