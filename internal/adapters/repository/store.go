// Package repository persists scoring results and ranks them for sales
// prioritisation.
package repository

import (
	"context"
	"time"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
)

// Entry is one row of the ranked lead list.
type Entry struct {
	Rank               int
	LeadID             string
	TenantID           string
	TotalScore         float64
	QualificationLevel model.QualificationLevel
	ComputedAt         time.Time
}

// Store provides read/write access to scoring results. Writes for the same
// lead id are last-writer-wins.
type Store interface {
	// Save replaces the stored result of leadID.
	Save(ctx context.Context, leadID string, result model.ScoringResult) error

	// Load returns the stored result or ErrNotFound.
	Load(ctx context.Context, leadID string) (model.ScoringResult, error)

	// TopN returns up to n entries ordered by total score desc, lead id asc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of stored leads.
	Count(ctx context.Context) (int, error)
}

// Less orders two entries the way TopN does.
func Less(a, b Entry) bool {
	if a.TotalScore != b.TotalScore {
		return a.TotalScore > b.TotalScore
	}
	return a.LeadID < b.LeadID
}

// EntryFromResult builds an unranked entry.
func EntryFromResult(res model.ScoringResult) Entry {
	return Entry{
		LeadID:             res.LeadID,
		TenantID:           res.TenantID,
		TotalScore:         res.TotalScore,
		QualificationLevel: res.QualificationLevel,
		ComputedAt:         res.ComputedAt,
	}
}
