package service

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for this package.
var (
	// ErrPersistence marks a result that was computed but could not be stored.
	ErrPersistence    = errors.New("persistence failed")
	ErrNotStarted     = errors.New("service not started")
	ErrNoQualifier    = errors.New("no ai qualifier configured")
	ErrQualifierPanic = errors.New("ai qualifier panicked")
	ErrScoringPanic   = errors.New("scoring panicked")
	ErrBatchTooBig    = errors.New("too many leads in one batch")
)

// PersistenceError is returned together with a valid result when the store
// or the cache rejected it.
type PersistenceError struct {
	LeadID  string
	Targets []string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist lead %s (%s): %v", e.LeadID, strings.Join(e.Targets, ", "), e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrPersistence) hold.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// LeadFailure reports one lead of a bulk request.
type LeadFailure struct {
	Index  int    `json:"index"`
	LeadID string `json:"lead_id"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// BatchPartialFailure lists the leads of a bulk request that failed or were
// scored with warnings. It never replaces the successful results.
type BatchPartialFailure struct {
	Failures []LeadFailure
	Warnings []LeadFailure
}

func (e *BatchPartialFailure) Error() string {
	return fmt.Sprintf("bulk scoring: %d failed, %d with warnings", len(e.Failures), len(e.Warnings))
}

// Unwrap exposes every per-lead error to errors.Is and errors.As.
func (e *BatchPartialFailure) Unwrap() []error {
	out := make([]error, 0, len(e.Failures)+len(e.Warnings))
	for _, f := range e.Failures {
		out = append(out, f.Err)
	}
	for _, w := range e.Warnings {
		out = append(out, w.Err)
	}
	return out
}

func newLeadFailure(index int, leadID string, err error) LeadFailure {
	return LeadFailure{Index: index, LeadID: leadID, Reason: err.Error(), Err: err}
}
