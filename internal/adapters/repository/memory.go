package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
	"github.com/Bizoholic-Digital/leadscore/pkg/metrics"
)

const defaultMaxTopCache = 1_000

// MemoryStore keeps results in process. Rankings are computed lazily and
// cached until the next write.
type MemoryStore struct {
	mu       sync.RWMutex
	results  map[string]model.ScoringResult
	capacity int

	// ranked is nil when stale.
	ranked      []Entry
	maxTopCache int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{maxTopCache: defaultMaxTopCache}
	for _, opt := range opts {
		opt(s)
	}
	s.results = make(map[string]model.ScoringResult, s.capacity)
	return s
}

func (s *MemoryStore) Save(_ context.Context, leadID string, result model.ScoringResult) error {
	if leadID == "" {
		return ErrEmptyLeadID
	}
	start := time.Now()
	result.Recommendations = slices.Clone(result.Recommendations)

	s.mu.Lock()
	s.results[leadID] = result
	s.ranked = nil
	n := len(s.results)
	s.mu.Unlock()

	metrics.UpdateStoredLeads(n)
	metrics.RecordStoreLatency("save", float64(time.Since(start).Microseconds())/1000)
	return nil
}

func (s *MemoryStore) Load(_ context.Context, leadID string) (model.ScoringResult, error) {
	s.mu.RLock()
	res, ok := s.results[leadID]
	s.mu.RUnlock()
	if !ok {
		return model.ScoringResult{}, ErrNotFound
	}
	res.Recommendations = slices.Clone(res.Recommendations)
	return res, nil
}

func (s *MemoryStore) TopN(_ context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("top", float64(time.Since(start).Microseconds())/1000)
	}()

	s.mu.RLock()
	if s.ranked != nil && (n <= len(s.ranked) || len(s.ranked) == len(s.results)) {
		out := head(s.ranked, n)
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]Entry, 0, len(s.results))
	for _, res := range s.results {
		all = append(all, EntryFromResult(res))
	}
	slices.SortFunc(all, func(a, b Entry) int {
		switch {
		case Less(a, b):
			return -1
		case Less(b, a):
			return 1
		}
		return 0
	})
	for i := range all {
		all[i].Rank = i + 1
	}
	keep := max(s.maxTopCache, n)
	s.ranked = head(all, keep)
	return head(all, n), nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results), nil
}

// head copies at most n entries of src.
func head(src []Entry, n int) []Entry {
	if n > len(src) {
		n = len(src)
	}
	return slices.Clone(src[:n])
}

var _ Store = (*MemoryStore)(nil)
