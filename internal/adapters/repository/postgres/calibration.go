package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/calibration"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
)

// CalibrationRepository implements calibration.Repository on the
// calibration_records table.
type CalibrationRepository struct {
	pool *pgxpool.Pool
}

// NewCalibrationRepository wraps pool.
func NewCalibrationRepository(pool *pgxpool.Pool) *CalibrationRepository {
	return &CalibrationRepository{pool: pool}
}

const recordColumns = `estimation_id, lead_id, tenant_id, projected, actual_outcome, calibration_accuracy, recorded_at, reconciled_at`

func (r *CalibrationRepository) Insert(ctx context.Context, rec model.CalibrationRecord) error {
	projected, err := json.Marshal(rec.Projected)
	if err != nil {
		return fmt.Errorf("encode projection %s: %w", rec.EstimationID, err)
	}
	_, err = r.pool.Exec(ctx, `
INSERT INTO calibration_records (estimation_id, lead_id, tenant_id, projected, recorded_at)
VALUES ($1, $2, $3, $4, $5)`,
		rec.EstimationID, rec.LeadID, rec.TenantID, projected, rec.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert estimation %s: %w", rec.EstimationID, err)
	}
	return nil
}

func (r *CalibrationRepository) Get(ctx context.Context, id string) (model.CalibrationRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM calibration_records WHERE estimation_id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CalibrationRecord{}, calibration.ErrNotFound
	}
	if err != nil {
		return model.CalibrationRecord{}, fmt.Errorf("get estimation %s: %w", id, err)
	}
	return rec, nil
}

// Reconcile uses a conditional update so concurrent callers cannot both
// attach an outcome.
func (r *CalibrationRepository) Reconcile(ctx context.Context, id string, outcome model.Outcome, accuracy float64, at time.Time) (model.CalibrationRecord, error) {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return model.CalibrationRecord{}, fmt.Errorf("encode outcome %s: %w", id, err)
	}
	row := r.pool.QueryRow(ctx, `
UPDATE calibration_records
SET actual_outcome = $2, calibration_accuracy = $3, reconciled_at = $4
WHERE estimation_id = $1 AND actual_outcome IS NULL
RETURNING `+recordColumns, id, payload, accuracy, at)
	rec, err := scanRecord(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.CalibrationRecord{}, fmt.Errorf("reconcile estimation %s: %w", id, err)
	}
	if _, getErr := r.Get(ctx, id); getErr != nil {
		return model.CalibrationRecord{}, getErr
	}
	return model.CalibrationRecord{}, calibration.ErrAlreadyReconciled
}

func (r *CalibrationRepository) List(ctx context.Context, tenantID string) ([]model.CalibrationRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM calibration_records`
	args := []any{}
	if tenantID != "" {
		query += ` WHERE tenant_id = $1`
		args = append(args, tenantID)
	}
	query += ` ORDER BY seq`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list estimations: %w", err)
	}
	defer rows.Close()

	var out []model.CalibrationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan estimation: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate estimations: %w", err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (model.CalibrationRecord, error) {
	var (
		rec       model.CalibrationRecord
		projected []byte
		outcome   []byte
	)
	err := row.Scan(&rec.EstimationID, &rec.LeadID, &rec.TenantID, &projected, &outcome,
		&rec.CalibrationAccuracy, &rec.RecordedAt, &rec.ReconciledAt)
	if err != nil {
		return model.CalibrationRecord{}, err
	}
	if err := json.Unmarshal(projected, &rec.Projected); err != nil {
		return model.CalibrationRecord{}, fmt.Errorf("decode projection: %w", err)
	}
	if len(outcome) > 0 {
		var o model.Outcome
		if err := json.Unmarshal(outcome, &o); err != nil {
			return model.CalibrationRecord{}, fmt.Errorf("decode outcome: %w", err)
		}
		rec.ActualOutcome = &o
	}
	return rec, nil
}

var _ calibration.Repository = (*CalibrationRepository)(nil)
