package testleads

import (
	"errors"
	"fmt"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/types"
)

var (
	// ErrRankingOrder means the top list is not sorted by descending score.
	ErrRankingOrder = errors.New("ranking out of order")
	// ErrRankingGap means ranks are not the sequence 1..n.
	ErrRankingGap = errors.New("ranking has gaps")
	// ErrUnknownLead means the ranking holds a lead the run never sent.
	ErrUnknownLead = errors.New("ranking holds unknown lead")
)

// VerifyRanking checks that top is ordered by descending total score with
// ties broken by lead id, ranked from 1 and only holds ids from known.
func VerifyRanking(top []types.RankedLead, known map[string]struct{}) error {
	var errs []error
	for i, l := range top {
		if l.Rank != i+1 {
			errs = append(errs, fmt.Errorf("%w: position %d has rank %d", ErrRankingGap, i+1, l.Rank))
		}
		if known != nil {
			if _, ok := known[l.LeadID]; !ok {
				errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownLead, l.LeadID))
			}
		}
		if i == 0 {
			continue
		}
		prev := top[i-1]
		if prev.TotalScore < l.TotalScore ||
			(prev.TotalScore == l.TotalScore && prev.LeadID > l.LeadID) {
			errs = append(errs, fmt.Errorf("%w: %s (%.2f) before %s (%.2f)",
				ErrRankingOrder, prev.LeadID, prev.TotalScore, l.LeadID, l.TotalScore))
		}
	}
	return errors.Join(errs...)
}
