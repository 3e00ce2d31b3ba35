package testleads

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
	"github.com/Bizoholic-Digital/leadscore/pkg/logger"
)

const settlePoll = 50 * time.Millisecond

// Run executes a full simulation: health check, generate, submit, wait for
// the queue to settle, then fetch and verify the ranking.
func Run(ctx context.Context, cfg Config) (Stats, error) {
	log := logger.Get().Named("simulate")
	start := time.Now()
	var st Stats

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return st, fmt.Errorf("service health check: %w", err)
	}
	before, err := client.Stats(ctx)
	if err != nil {
		return st, fmt.Errorf("read initial stats: %w", err)
	}

	gen := NewGenerator(cfg.Seed, time.Now().UTC())
	leads := gen.Generate(cfg.NumLeads)
	st.Generated = len(leads)
	log.Info(ctx, "generated leads", logger.Int("count", len(leads)), logger.Int("seed", int(cfg.Seed)))

	if cfg.OutputFile != "" {
		if err := saveLeads(cfg.OutputFile, leads); err != nil {
			return st, err
		}
	}

	if err := submit(ctx, client, gen, leads, cfg, &st); err != nil {
		return st, err
	}
	log.Info(ctx, "submitted leads",
		logger.Int("accepted", st.Accepted),
		logger.Int("duplicates", st.Duplicates),
		logger.Int("rejected", st.Rejected),
		logger.Int("failed", st.Failed),
	)

	want := before.StoredLeads + st.Accepted
	scored, err := waitForScores(ctx, client, want, cfg.SettleTimeout)
	st.Scored = scored - before.StoredLeads
	if err != nil {
		return st, err
	}

	top, err := client.Top(ctx, cfg.TopN)
	if err != nil {
		return st, fmt.Errorf("fetch top leads: %w", err)
	}
	st.TopLeads = len(top)
	var known map[string]struct{}
	if before.StoredLeads == 0 {
		known = make(map[string]struct{}, len(leads))
		for _, l := range leads {
			known[l.LeadID] = struct{}{}
		}
	}
	if err := VerifyRanking(top, known); err != nil {
		return st, err
	}
	for _, l := range top {
		log.Debug(ctx, "ranked lead",
			logger.Int("rank", l.Rank),
			logger.String("lead_id", l.LeadID),
			logger.Float64("total_score", l.TotalScore),
			logger.String("level", l.QualificationLevel),
		)
	}

	st.Duration = time.Since(start)
	log.Info(ctx, "simulation finished",
		logger.Int("scored", st.Scored),
		logger.Int("top", st.TopLeads),
		logger.Duration("duration", st.Duration),
	)
	return st, nil
}

// submit enqueues every lead with cfg.Workers concurrent requests. Every
// DuplicateEvery-th lead is sent twice with the same signal id.
func submit(ctx context.Context, client *Client, gen *Generator, leads []model.LeadRecord, cfg Config, st *Stats) error {
	var submitted, accepted, duplicates, rejected, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.Workers))
	for i, lead := range leads {
		sends := 1
		if cfg.DuplicateEvery > 0 && i%cfg.DuplicateEvery == 0 {
			sends = 2
		}
		signal := gen.SignalID(i)
		for range sends {
			g.Go(func() error {
				submitted.Add(1)
				ack, err := client.Enqueue(gctx, signal, lead, cfg.UseAI)
				switch {
				case errors.Is(err, ErrRejected):
					rejected.Add(1)
				case err != nil:
					failed.Add(1)
				case ack.Duplicate:
					duplicates.Add(1)
				default:
					accepted.Add(1)
				}
				return gctx.Err()
			})
		}
	}
	err := g.Wait()

	st.Submitted = int(submitted.Load())
	st.Accepted = int(accepted.Load())
	st.Duplicates = int(duplicates.Load())
	st.Rejected = int(rejected.Load())
	st.Failed = int(failed.Load())
	if err != nil {
		return fmt.Errorf("submit leads: %w", err)
	}
	return nil
}

// waitForScores polls /stats until want leads are stored and the queue is
// empty, returning the last stored count.
func waitForScores(ctx context.Context, client *Client, want int, timeout time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	t := time.NewTicker(settlePoll)
	defer t.Stop()
	stored := 0
	for {
		st, err := client.Stats(ctx)
		if err == nil {
			stored = st.StoredLeads
			if stored >= want && st.QueueLength == 0 && st.Workers.Active == 0 {
				return stored, nil
			}
		}
		select {
		case <-ctx.Done():
			return stored, fmt.Errorf("waiting for %d scored leads, have %d: %w", want, stored, ctx.Err())
		case <-t.C:
		}
	}
}

func saveLeads(path string, leads []model.LeadRecord) error {
	buf, err := yaml.Marshal(leads)
	if err != nil {
		return fmt.Errorf("encode leads: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
