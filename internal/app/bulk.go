package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Bizoholic-Digital/leadscore/internal/adapters/ai"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
	"github.com/Bizoholic-Digital/leadscore/pkg/logger"
	"github.com/Bizoholic-Digital/leadscore/pkg/metrics"
)

type bulkOutcome struct {
	res *model.ScoringResult
	err error
}

// BulkScore scores leads in sequential batches. Leads inside a batch run
// concurrently and the whole batch finishes before the next one starts.
//
// Results keep the input order of the leads that produced one. Failed leads
// and leads scored with a persistence warning are listed in a
// *BatchPartialFailure. When ctx is cancelled between batches the results
// scored so far are returned with ctx.Err() joined into the error.
func (s *Service) BulkScore(ctx context.Context, leads []model.LeadRecord, useAI bool) ([]model.ScoringResult, error) {
	if len(leads) > s.maxBulkLeads {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooBig, len(leads), s.maxBulkLeads)
	}
	if len(leads) == 0 {
		return []model.ScoringResult{}, nil
	}

	size := s.bulkBatchSize(useAI)
	ctx, span := s.tracer.Start(ctx, "BulkScore", trace.WithAttributes(
		attribute.Int("bulk.leads", len(leads)),
		attribute.Int("bulk.batch_size", size),
		attribute.Bool("bulk.use_ai", useAI),
	))
	defer span.End()

	outcomes := make([]bulkOutcome, len(leads))
	processed := 0
	var cancelErr error

	for from := 0; from < len(leads); from += size {
		if from > 0 {
			if err := s.pauseBetweenBatches(ctx, useAI); err != nil {
				cancelErr = err
				break
			}
		}
		to := min(from+size, len(leads))
		s.runBatch(ctx, leads, useAI, outcomes, from, to, size)
		processed = to
	}

	results := make([]model.ScoringResult, 0, processed)
	report := &BatchPartialFailure{}
	for i := range processed {
		o := outcomes[i]
		switch {
		case o.res == nil:
			report.Failures = append(report.Failures, newLeadFailure(i, leads[i].LeadID, o.err))
			s.log.Warn(ctx, "bulk lead failed", logger.Int("index", i), logger.String("lead_id", leads[i].LeadID), logger.Error(o.err))
		case o.err != nil:
			results = append(results, *o.res)
			report.Warnings = append(report.Warnings, newLeadFailure(i, leads[i].LeadID, o.err))
		default:
			results = append(results, *o.res)
		}
	}

	var err error
	if len(report.Failures) > 0 || len(report.Warnings) > 0 {
		err = report
	}
	if cancelErr != nil {
		s.log.Warn(ctx, "bulk scoring cancelled",
			logger.Int("processed", processed),
			logger.Int("remaining", len(leads)-processed),
		)
		err = errors.Join(cancelErr, err)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	s.log.Info(ctx, "bulk scoring finished",
		logger.Int("leads", len(leads)),
		logger.Int("scored", len(results)),
		logger.Int("failed", len(report.Failures)),
	)
	return results, err
}

// runBatch scores leads[from:to] concurrently. Items run on a context that
// ignores cancellation so none is abandoned half written.
func (s *Service) runBatch(ctx context.Context, leads []model.LeadRecord, useAI bool, out []bulkOutcome, from, to, limit int) {
	start := time.Now()
	itemCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(limit)
	for i := from; i < to; i++ {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					err := fmt.Errorf("%w: lead %s: %v", ErrScoringPanic, leads[i].LeadID, r)
					s.log.Error(itemCtx, "lead scoring panicked", logger.Int("index", i), logger.Error(err))
					metrics.RecordErrorByComponent("bulk", "panic")
					out[i] = bulkOutcome{err: err}
				}
			}()
			res, err := s.ScoreLead(itemCtx, leads[i], useAI)
			out[i] = bulkOutcome{res: res, err: err}
			return nil
		})
	}
	_ = g.Wait()

	failures := 0
	for i := from; i < to; i++ {
		if out[i].res == nil {
			failures++
		}
	}
	metrics.RecordBulkBatch(float64(time.Since(start).Milliseconds()), failures)
}

// bulkBatchSize is the configured size, capped by the qualifier burst when AI
// is used.
func (s *Service) bulkBatchSize(useAI bool) int {
	if !useAI {
		return s.batchSize
	}
	size := s.aiBatchSize
	if rb, ok := s.qualifier.(ai.RateBudget); ok {
		if b := rb.Burst(); b > 0 && b < size {
			size = b
		}
	}
	return size
}

func (s *Service) pauseBetweenBatches(ctx context.Context, useAI bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !useAI || s.aiBatchDelay <= 0 {
		return nil
	}
	t := time.NewTimer(s.aiBatchDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
