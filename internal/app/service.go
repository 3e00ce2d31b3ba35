// Package service wires scoring, persistence, AI qualification, calibration
// and the async queue into the operations exposed by the HTTP API and CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Bizoholic-Digital/leadscore/internal/adapters/ai"
	"github.com/Bizoholic-Digital/leadscore/internal/adapters/cache"
	"github.com/Bizoholic-Digital/leadscore/internal/adapters/mq/queue"
	"github.com/Bizoholic-Digital/leadscore/internal/adapters/mq/worker"
	"github.com/Bizoholic-Digital/leadscore/internal/adapters/repository"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/calibration"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/dedupe"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/scoring"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/types"
	"github.com/Bizoholic-Digital/leadscore/pkg/logger"
	"github.com/Bizoholic-Digital/leadscore/pkg/metrics"
)

const tracerName = "github.com/Bizoholic-Digital/leadscore/internal/app"

const (
	defaultAITimeout     = 15 * time.Second
	defaultQueueSize     = 10_000
	defaultDedupeSize    = 50_000
	defaultBatchSize     = 20
	defaultAIBatchSize   = 5
	defaultAIBatchDelay  = time.Second
	defaultMaxBulkLeads  = 1_000
	defaultShutdownGrace = 10 * time.Second
)

// Service implements the lead scoring operations.
type Service struct {
	mu sync.RWMutex

	engine     *scoring.Engine
	engineOpts []scoring.Option
	validator  *model.Validator

	store     repository.Store
	cache     cache.Cache
	cacheTTL  time.Duration
	qualifier ai.Qualifier
	aiTimeout time.Duration
	tracker   *calibration.Tracker
	deduper   dedupe.Deduper

	workerCount   int
	queueSize     int
	dedupeSize    int
	batchSize     int
	aiBatchSize   int
	aiBatchDelay  time.Duration
	maxBulkLeads  int
	shutdownGrace time.Duration

	queue   *queue.InMemoryQueue
	pool    *worker.Pool
	started bool

	log    logger.Logger
	now    func() time.Time
	tracer trace.Tracer
}

// Stats is a runtime snapshot for monitoring.
type Stats struct {
	Started       bool         `json:"started"`
	StoredLeads   int          `json:"stored_leads"`
	QueueLength   int          `json:"queue_length"`
	QueueCapacity int          `json:"queue_capacity"`
	SignalsSeen   int64        `json:"signals_seen"`
	AIEnabled     bool         `json:"ai_enabled"`
	Blending      bool         `json:"blending"`
	Workers       worker.Stats `json:"workers"`
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the result store. Defaults to an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCache enables the score cache with the given entry TTL.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithQualifier sets the AI qualifier. Without one every AI request degrades
// to an AI score of 0.
func WithQualifier(q ai.Qualifier) Option {
	return func(s *Service) { s.qualifier = q }
}

// WithAITimeout bounds a single AI qualification call.
func WithAITimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.aiTimeout = d
		}
	}
}

// WithBlender enables classifier blending.
func WithBlender(b *scoring.Blender) Option {
	return func(s *Service) {
		if b != nil {
			s.engineOpts = append(s.engineOpts, scoring.WithBlender(b))
		}
	}
}

// WithFixedAIWeight keeps the AI weight in the composite when AI is not requested.
func WithFixedAIWeight(fixed bool) Option {
	return func(s *Service) { s.engineOpts = append(s.engineOpts, scoring.WithFixedAIWeight(fixed)) }
}

// WithWeights replaces the category weights. New fails when they are invalid.
func WithWeights(w scoring.Weights) Option {
	return func(s *Service) { s.engineOpts = append(s.engineOpts, scoring.WithWeights(w)) }
}

// WithTracker sets the calibration tracker. Defaults to an in-memory one.
func WithTracker(t *calibration.Tracker) Option {
	return func(s *Service) {
		if t != nil {
			s.tracker = t
		}
	}
}

// WithDeduper replaces the in-memory signal deduper, e.g. with a Redis one.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithWorkerCount sets the number of async scoring workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize bounds the async scoring queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many signal ids the default deduper remembers.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithBulkBatchSizes sets the bulk batch size without and with AI.
func WithBulkBatchSizes(plain, withAI int) Option {
	return func(s *Service) {
		if plain > 0 {
			s.batchSize = plain
		}
		if withAI > 0 {
			s.aiBatchSize = withAI
		}
	}
}

// WithBulkAIBatchDelay sets the pause between AI-enabled bulk batches.
func WithBulkAIBatchDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.aiBatchDelay = d
		}
	}
}

// WithMaxBulkLeads caps the number of leads accepted by BulkScore.
func WithMaxBulkLeads(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBulkLeads = n
		}
	}
}

// WithShutdownGrace sets how long Stop waits for queued jobs.
func WithShutdownGrace(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.shutdownGrace = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source for results.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
			s.engineOpts = append(s.engineOpts, scoring.WithClock(now))
		}
	}
}

// New constructs a Service. It fails when the configured weights are invalid.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		validator:     model.NewValidator(),
		aiTimeout:     defaultAITimeout,
		workerCount:   runtime.NumCPU() * 2,
		queueSize:     defaultQueueSize,
		dedupeSize:    defaultDedupeSize,
		batchSize:     defaultBatchSize,
		aiBatchSize:   defaultAIBatchSize,
		aiBatchDelay:  defaultAIBatchDelay,
		maxBulkLeads:  defaultMaxBulkLeads,
		shutdownGrace: defaultShutdownGrace,
		now:           time.Now,
		tracer:        otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}

	engine, err := scoring.NewEngine(s.engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("build scoring engine: %w", err)
	}
	s.engine = engine

	if s.log == nil {
		s.log = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	}
	if s.tracker == nil {
		s.tracker = calibration.NewTracker()
	}
	return s, nil
}

// Start creates the async queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, worker.ProcessorFunc(s.Process))
	s.pool.Start(ctx)
	s.started = true

	s.log.Info(ctx, "lead scoring service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Bool("ai_enabled", s.qualifier != nil),
	)
	return nil
}

// Stop closes the queue and waits up to the shutdown grace period for the
// workers to drain it.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.log.Info(ctx, "stopping lead scoring service...")

	ctx, cancel := context.WithTimeout(ctx, s.shutdownGrace)
	defer cancel()
	err := s.pool.Shutdown(ctx)

	s.started = false
	if err != nil {
		s.log.Warn(ctx, "queued jobs abandoned", logger.Int("remaining", s.queue.Len()), logger.Error(err))
		return err
	}
	s.log.Info(ctx, "lead scoring service stopped")
	return nil
}

// ScoreLead validates and scores a lead, then persists the result. A
// *PersistenceError is returned together with the valid result.
func (s *Service) ScoreLead(ctx context.Context, lead model.LeadRecord, useAI bool) (*model.ScoringResult, error) {
	return s.ScoreLeadWithMetrics(ctx, lead, useAI, nil)
}

// ScoreLeadWithMetrics is ScoreLead with extra context metrics for the AI prompt.
func (s *Service) ScoreLeadWithMetrics(ctx context.Context, lead model.LeadRecord, useAI bool, extra map[string]float64) (*model.ScoringResult, error) {
	ctx, span := s.tracer.Start(ctx, "ScoreLead", trace.WithAttributes(
		attribute.String("lead.id", lead.LeadID),
		attribute.Bool("lead.use_ai", useAI),
	))
	defer span.End()

	start := time.Now()
	if err := s.validator.Lead(lead); err != nil {
		metrics.RecordValidationError()
		span.SetStatus(codes.Error, "invalid lead")
		return nil, err
	}

	assessment := scoring.AIAssessment{}
	if useAI {
		assessment = s.qualify(ctx, lead, extra)
	}

	result, err := s.engine.Score(lead, assessment)
	if err != nil {
		metrics.RecordErrorByComponent("scoring", "blend")
		s.log.Warn(ctx, "classifier blend skipped", logger.String("lead_id", lead.LeadID), logger.Error(err))
	}
	if result.Blended {
		metrics.RecordBlendApplied()
	}
	metrics.RecordLeadScored(string(result.QualificationLevel), result.TotalScore)
	metrics.RecordScoringLatency(float64(time.Since(start).Milliseconds()))
	span.SetAttributes(
		attribute.Float64("lead.total_score", result.TotalScore),
		attribute.String("lead.qualification_level", string(result.QualificationLevel)),
	)

	if perr := s.persist(ctx, result); perr != nil {
		span.RecordError(perr)
		return &result, perr
	}
	return &result, nil
}

// qualify runs the AI step. A qualifier that panics is treated like one that failed.
func (s *Service) qualify(ctx context.Context, lead model.LeadRecord, extra map[string]float64) (assessment scoring.AIAssessment) {
	assessment = scoring.AIAssessment{Requested: true}
	if s.qualifier == nil {
		s.aiFailed(ctx, lead.LeadID, "unconfigured", ErrNoQualifier, 0)
		return assessment
	}

	ctx, span := s.tracer.Start(ctx, "Qualify")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrQualifierPanic, r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")
			s.aiFailed(ctx, lead.LeadID, "panic", err, float64(time.Since(start).Milliseconds()))
			assessment = scoring.AIAssessment{Requested: true}
		}
	}()
	q, err := s.qualifier.Qualify(ctx, ai.Request{
		Lead:              lead,
		Scores:            scoring.RuleBreakdown(lead),
		AdditionalMetrics: extra,
	})
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		result := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			result = "timeout"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		s.aiFailed(ctx, lead.LeadID, result, err, elapsed)
		return assessment
	}

	metrics.RecordAICall("ok", elapsed)
	assessment.Succeeded = true
	assessment.Score = q.Score
	assessment.Confidence = q.Confidence
	assessment.Explanation = q.Explanation
	return assessment
}

// aiFailed records a degraded AI call. The error never reaches the caller.
func (s *Service) aiFailed(ctx context.Context, leadID, result string, err error, elapsedMs float64) {
	if !errors.Is(err, ai.ErrAdapterUnavailable) {
		err = fmt.Errorf("%w: %w", ai.ErrAdapterUnavailable, err)
	}
	metrics.RecordAICall(result, elapsedMs)
	metrics.RecordErrorByComponent("ai", result)
	s.log.Warn(ctx, "ai qualification unavailable, scoring without it",
		logger.String("lead_id", leadID),
		logger.String("result", result),
		logger.Error(err),
	)
}

// persist writes the store first, then the cache.
func (s *Service) persist(ctx context.Context, result model.ScoringResult) error {
	var (
		targets []string
		errs    []error
	)
	if err := s.store.Save(ctx, result.LeadID, result); err != nil {
		metrics.RecordPersistenceError("store")
		targets = append(targets, "store")
		errs = append(errs, err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, result.LeadID, result, s.cacheTTL); err != nil {
			metrics.RecordPersistenceError("cache")
			targets = append(targets, "cache")
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	perr := &PersistenceError{LeadID: result.LeadID, Targets: targets, Err: errors.Join(errs...)}
	s.log.Error(ctx, "persist scoring result", logger.String("lead_id", result.LeadID), logger.Error(perr))
	return perr
}

// GetCachedScore returns the last result for leadID from the cache, falling
// back to the store and back-filling the cache. Unknown ids yield
// repository.ErrNotFound.
func (s *Service) GetCachedScore(ctx context.Context, leadID string) (*model.ScoringResult, error) {
	if s.cache != nil {
		res, ok, err := s.cache.Get(ctx, leadID)
		switch {
		case err != nil:
			s.log.Warn(ctx, "cache read failed, using store", logger.String("lead_id", leadID), logger.Error(err))
		case ok:
			metrics.RecordCacheLookup(true)
			return &res, nil
		}
		metrics.RecordCacheLookup(false)
	}

	res, err := s.store.Load(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("load score for lead %s: %w", leadID, err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, leadID, res, s.cacheTTL); err != nil {
			metrics.RecordPersistenceError("cache")
			s.log.Warn(ctx, "cache back-fill failed", logger.String("lead_id", leadID), logger.Error(err))
		}
	}
	return &res, nil
}

// TopLeads returns the n highest scoring stored leads.
func (s *Service) TopLeads(ctx context.Context, n int) ([]types.RankedLead, error) {
	entries, err := s.store.TopN(ctx, n)
	if err != nil {
		return nil, err
	}
	out := make([]types.RankedLead, len(entries))
	for i, e := range entries {
		out[i] = types.RankedLead{
			Rank:               e.Rank,
			LeadID:             e.LeadID,
			TenantID:           e.TenantID,
			TotalScore:         e.TotalScore,
			QualificationLevel: string(e.QualificationLevel),
			ComputedAt:         e.ComputedAt,
		}
	}
	return out, nil
}

// Enqueue validates a lead and queues it for async scoring. A signal id seen
// before is reported as a duplicate and not queued again. An empty signal id
// gets a fresh one, so such submissions are never deduplicated.
func (s *Service) Enqueue(ctx context.Context, signalID string, lead model.LeadRecord, useAI bool, extra map[string]float64) (types.EnqueueAck, error) {
	s.mu.RLock()
	q, started := s.queue, s.started
	s.mu.RUnlock()
	if !started {
		return types.EnqueueAck{}, ErrNotStarted
	}
	if err := s.validator.Lead(lead); err != nil {
		metrics.RecordValidationError()
		return types.EnqueueAck{}, err
	}
	if signalID == "" {
		signalID = uuid.NewString()
	}
	ack := types.EnqueueAck{SignalID: signalID, LeadID: lead.LeadID}

	if s.deduper.SeenAndRecord(ctx, signalID) {
		metrics.RecordSignalDuplicate()
		s.log.Debug(ctx, "duplicate signal skipped", logger.String("signal_id", signalID), logger.String("lead_id", lead.LeadID))
		ack.Status, ack.Duplicate = "duplicate", true
		return ack, nil
	}

	err := q.Enqueue(ctx, queue.Job{
		SignalID:          signalID,
		Lead:              lead,
		UseAI:             useAI,
		AdditionalMetrics: extra,
		EnqueuedAt:        s.now().UTC(),
	})
	if err != nil {
		// the signal may be retried once the queue has room
		s.deduper.Unrecord(ctx, signalID)
		return types.EnqueueAck{}, fmt.Errorf("enqueue lead %s: %w", lead.LeadID, err)
	}
	ack.Status = "accepted"
	return ack, nil
}

// Process scores one queued job. It is the worker pool's processor.
func (s *Service) Process(ctx context.Context, job queue.Job) error { //nolint:gocritic // jobs travel by value
	_, err := s.ScoreLeadWithMetrics(ctx, job.Lead, job.UseAI, job.AdditionalMetrics)
	if err != nil {
		return fmt.Errorf("signal %s: %w", job.SignalID, err)
	}
	return nil
}

// RecordEstimation snapshots the stored result of leadID as a calibration
// estimation.
func (s *Service) RecordEstimation(ctx context.Context, tenantID, leadID string) (string, error) {
	res, err := s.GetCachedScore(ctx, leadID)
	if err != nil {
		return "", err
	}
	return s.tracker.RecordEstimation(ctx, tenantID, model.LeadRecord{LeadID: leadID, TenantID: res.TenantID}, *res)
}

// GetEstimation returns a recorded estimation.
func (s *Service) GetEstimation(ctx context.Context, estimationID string) (model.CalibrationRecord, error) {
	return s.tracker.Get(ctx, estimationID)
}

// Reconcile attaches an observed outcome to an estimation.
func (s *Service) Reconcile(ctx context.Context, estimationID string, outcome model.Outcome) (calibration.Summary, error) {
	return s.tracker.Reconcile(ctx, estimationID, outcome)
}

// Dashboard aggregates calibration history for tenantID ("" for all).
func (s *Service) Dashboard(ctx context.Context, tenantID string) (calibration.Dashboard, error) {
	return s.tracker.Dashboard(ctx, tenantID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Started:     s.started,
		SignalsSeen: s.deduper.Size(),
		AIEnabled:   s.qualifier != nil,
		Blending:    s.engine.Blending(),
	}
	if n, err := s.store.Count(ctx); err == nil {
		stats.StoredLeads = n
	} else {
		s.log.Warn(ctx, "count stored leads", logger.Error(err))
	}
	if s.started {
		stats.QueueLength = s.queue.Len()
		stats.QueueCapacity = s.queue.Cap()
		stats.Workers = s.pool.Stats()
		metrics.UpdateQueueSize(stats.QueueLength)
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateSystemMemoryUsage(mem.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	return stats
}
