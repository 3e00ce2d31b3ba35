package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bizoholic-Digital/leadscore/internal/adapters/repository"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
	"github.com/Bizoholic-Digital/leadscore/pkg/metrics"
)

// ScoreStore implements repository.Store on the lead_scores table.
type ScoreStore struct {
	pool *pgxpool.Pool
}

// NewScoreStore wraps pool.
func NewScoreStore(pool *pgxpool.Pool) *ScoreStore {
	return &ScoreStore{pool: pool}
}

const upsertScore = `
INSERT INTO lead_scores (lead_id, tenant_id, total_score, qualification_level, result, computed_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
ON CONFLICT (lead_id) DO UPDATE SET
    tenant_id = EXCLUDED.tenant_id,
    total_score = EXCLUDED.total_score,
    qualification_level = EXCLUDED.qualification_level,
    result = EXCLUDED.result,
    computed_at = EXCLUDED.computed_at,
    updated_at = now()`

func (s *ScoreStore) Save(ctx context.Context, leadID string, result model.ScoringResult) error {
	if leadID == "" {
		return repository.ErrEmptyLeadID
	}
	defer observe("save", time.Now())

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result %s: %w", leadID, err)
	}
	_, err = s.pool.Exec(ctx, upsertScore,
		leadID, result.TenantID, result.TotalScore, string(result.QualificationLevel), payload, result.ComputedAt)
	if err != nil {
		return fmt.Errorf("save result %s: %w", leadID, err)
	}
	return nil
}

func (s *ScoreStore) Load(ctx context.Context, leadID string) (model.ScoringResult, error) {
	defer observe("load", time.Now())

	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT result FROM lead_scores WHERE lead_id = $1`, leadID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ScoringResult{}, repository.ErrNotFound
	}
	if err != nil {
		return model.ScoringResult{}, fmt.Errorf("load result %s: %w", leadID, err)
	}
	var res model.ScoringResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return model.ScoringResult{}, fmt.Errorf("decode result %s: %w", leadID, err)
	}
	return res, nil
}

func (s *ScoreStore) TopN(ctx context.Context, n int) ([]repository.Entry, error) {
	if n <= 0 {
		return nil, repository.ErrInvalidLimit
	}
	defer observe("top", time.Now())

	rows, err := s.pool.Query(ctx, `
SELECT lead_id, tenant_id, total_score, qualification_level, computed_at
FROM lead_scores
ORDER BY total_score DESC, lead_id ASC
LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("query top leads: %w", err)
	}
	defer rows.Close()

	entries := make([]repository.Entry, 0, n)
	for rows.Next() {
		var (
			e     repository.Entry
			level string
		)
		if err := rows.Scan(&e.LeadID, &e.TenantID, &e.TotalScore, &level, &e.ComputedAt); err != nil {
			return nil, fmt.Errorf("scan top lead: %w", err)
		}
		e.QualificationLevel = model.QualificationLevel(level)
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top leads: %w", err)
	}
	return entries, nil
}

func (s *ScoreStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM lead_scores`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	metrics.UpdateStoredLeads(n)
	return n, nil
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

var _ repository.Store = (*ScoreStore)(nil)
