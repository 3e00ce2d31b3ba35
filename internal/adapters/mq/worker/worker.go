// Package worker consumes queued scoring jobs with a fixed pool of goroutines.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Bizoholic-Digital/leadscore/internal/adapters/mq/queue"
	"github.com/Bizoholic-Digital/leadscore/pkg/logger"
	"github.com/Bizoholic-Digital/leadscore/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2
	metricsUpdateInterval   = 5 * time.Second
)

// Processor handles one job. Errors are logged and counted; the job is not retried.
type Processor interface {
	Process(ctx context.Context, job queue.Job) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, job queue.Job) error

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, job queue.Job) error { //nolint:gocritic // jobs travel by value
	return f(ctx, job)
}

// Source is where workers read jobs from.
type Source interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker runs one consume loop.
type Worker struct {
	source    Source
	processor Processor
	name      string
	log       logger.Logger

	// counters shared with the pool; may be nil
	active    *atomic.Int64
	processed *atomic.Int64
	failed    *atomic.Int64

	done chan struct{}
}

// NewWorker creates a worker.
func NewWorker(source Source, processor Processor, opts ...Option) *Worker {
	w := &Worker{
		source:    source,
		processor: processor,
		name:      "worker",
		log:       logger.Get().Named("worker"),
		active:    new(atomic.Int64),
		processed: new(atomic.Int64),
		failed:    new(atomic.Int64),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes jobs until the source is drained or ctx is done. Each job
// runs to completion even if ctx is cancelled meanwhile.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	for job := range w.source.Dequeue(ctx) {
		w.handle(ctx, job)
	}
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) handle(ctx context.Context, job queue.Job) { //nolint:gocritic // jobs travel by value
	w.active.Add(1)
	start := time.Now()
	defer func() {
		w.active.Add(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	err := w.process(context.WithoutCancel(ctx), job)
	if err != nil {
		w.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "process")
		w.log.Error(ctx, "job failed",
			logger.String("worker", w.name),
			logger.String("signal_id", job.SignalID),
			logger.String("lead_id", job.Lead.LeadID),
			logger.Error(err))
		return
	}
	w.processed.Add(1)
}

// process runs the processor, turning a panic into a failed job so one bad
// lead cannot take the pool down.
func (w *Worker) process(ctx context.Context, job queue.Job) (err error) { //nolint:gocritic // jobs travel by value
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrProcessorPanic, r)
		}
	}()
	return w.processor.Process(ctx, job)
}

// Stats is a snapshot of pool activity.
type Stats struct {
	Workers   int   `json:"workers"`
	Active    int64 `json:"active"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Pool runs a fixed number of workers over one source.
type Pool struct {
	workers []*Worker
	source  Source
	log     logger.Logger

	active    atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64

	startOnce sync.Once
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewPool creates count workers. count < 1 defaults to 2×NumCPU.
func NewPool(count int, source Source, processor Processor) *Pool {
	if count < 1 {
		count = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		workers: make([]*Worker, count),
		source:  source,
		log:     logger.Get().Named("worker-pool"),
		stop:    make(chan struct{}),
	}
	for i := range p.workers {
		w := NewWorker(source, processor, WithName("worker-"+strconv.Itoa(i)))
		w.active, w.processed, w.failed = &p.active, &p.processed, &p.failed
		p.workers[i] = w
	}
	metrics.UpdateWorkerCount(count)
	return p
}

// Start launches the workers once.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		for _, w := range p.workers {
			go w.Run(ctx)
		}
		go p.reportMetrics(ctx)
	})
}

func (p *Pool) reportMetrics(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			active := int(p.active.Load())
			metrics.UpdateWorkerActiveCount(active)
			metrics.UpdateWorkerIdleCount(len(p.workers) - active)
		}
	}
}

// Stats returns current counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   len(p.workers),
		Active:    p.active.Load(),
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
	}
}

// Shutdown closes the source when it supports it and waits for workers to
// drain what is already queued. It returns ctx.Err() if ctx expires first.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.source.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.log.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	p.stopOnce.Do(func() { close(p.stop) })

	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			p.log.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
		}
	}
	return nil
}
