package calibration

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
)

// Repository persists calibration records. Reconcile must be atomic: it
// attaches the outcome only when none is present and otherwise returns
// ErrAlreadyReconciled.
type Repository interface {
	Insert(ctx context.Context, rec model.CalibrationRecord) error
	Get(ctx context.Context, estimationID string) (model.CalibrationRecord, error)
	Reconcile(ctx context.Context, estimationID string, outcome model.Outcome, accuracy float64, at time.Time) (model.CalibrationRecord, error)
	// List returns records of tenantID in insertion order; "" lists every tenant.
	List(ctx context.Context, tenantID string) ([]model.CalibrationRecord, error)
}

// MemoryRepository keeps records in process. Safe for concurrent use.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*model.CalibrationRecord
	order   []string
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]*model.CalibrationRecord)}
}

// Insert appends rec. Records are never deleted.
func (r *MemoryRepository) Insert(_ context.Context, rec model.CalibrationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := cloneRecord(rec)
	r.records[rec.EstimationID] = &c
	r.order = append(r.order, rec.EstimationID)
	return nil
}

// Get returns a copy of the record or ErrNotFound.
func (r *MemoryRepository) Get(_ context.Context, id string) (model.CalibrationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return model.CalibrationRecord{}, ErrNotFound
	}
	return cloneRecord(*rec), nil
}

// Reconcile attaches outcome once.
func (r *MemoryRepository) Reconcile(_ context.Context, id string, outcome model.Outcome, accuracy float64, at time.Time) (model.CalibrationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return model.CalibrationRecord{}, ErrNotFound
	}
	if rec.ActualOutcome != nil {
		return model.CalibrationRecord{}, ErrAlreadyReconciled
	}
	o := outcome
	o.RealizedMetrics = cloneMetrics(outcome.RealizedMetrics)
	rec.ActualOutcome = &o
	rec.CalibrationAccuracy = &accuracy
	rec.ReconciledAt = &at
	return cloneRecord(*rec), nil
}

// List returns copies of the matching records.
func (r *MemoryRepository) List(_ context.Context, tenantID string) ([]model.CalibrationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.CalibrationRecord, 0, len(r.order))
	for _, id := range r.order {
		rec := r.records[id]
		if tenantID != "" && rec.TenantID != tenantID {
			continue
		}
		out = append(out, cloneRecord(*rec))
	}
	return out, nil
}

func cloneRecord(rec model.CalibrationRecord) model.CalibrationRecord {
	out := rec
	out.Projected.Metrics = cloneMetrics(rec.Projected.Metrics)
	if rec.ActualOutcome != nil {
		o := *rec.ActualOutcome
		o.RealizedMetrics = cloneMetrics(o.RealizedMetrics)
		out.ActualOutcome = &o
	}
	if rec.CalibrationAccuracy != nil {
		a := *rec.CalibrationAccuracy
		out.CalibrationAccuracy = &a
	}
	if rec.ReconciledAt != nil {
		t := *rec.ReconciledAt
		out.ReconciledAt = &t
	}
	return out
}

func cloneMetrics(m map[string]float64) map[string]float64 {
	return maps.Clone(m)
}

var _ Repository = (*MemoryRepository)(nil)
