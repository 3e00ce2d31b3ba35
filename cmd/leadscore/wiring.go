package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bizoholic-Digital/leadscore/internal/adapters/ai"
	"github.com/Bizoholic-Digital/leadscore/internal/adapters/archive"
	"github.com/Bizoholic-Digital/leadscore/internal/adapters/cache"
	"github.com/Bizoholic-Digital/leadscore/internal/adapters/repository/postgres"
	service "github.com/Bizoholic-Digital/leadscore/internal/app"
	"github.com/Bizoholic-Digital/leadscore/internal/config"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/calibration"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/dedupe"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/scoring"
	"github.com/Bizoholic-Digital/leadscore/pkg/logger"
)

// signalTTL is how long redis remembers ingestion signal ids.
const signalTTL = 24 * time.Hour

// loadConfig loads configuration and initializes the global logger from it.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(logger.WithLevel(cfg.LogLevel), logger.WithFormat(cfg.LogFormat)); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

// buildService assembles the service and its backends from cfg. The returned
// cleanup releases every opened connection and is safe to call once.
func buildService(ctx context.Context, cfg *config.Config) (*service.Service, func(), error) {
	log := logger.Get()
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*service.Service, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	opts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithAITimeout(cfg.AITimeout()),
		service.WithBulkBatchSizes(cfg.BulkBatchSize, cfg.BulkAIBatchSize),
		service.WithBulkAIBatchDelay(cfg.BulkAIBatchDelay()),
		service.WithMaxBulkLeads(cfg.MaxBulkLeads),
		service.WithShutdownGrace(cfg.ShutdownGrace()),
		service.WithFixedAIWeight(cfg.FixedAIWeight),
	}

	if len(cfg.CategoryWeights) > 0 {
		w, err := scoring.NewWeights(cfg.CategoryWeights)
		if err != nil {
			return fail(fmt.Errorf("category weights: %w", err))
		}
		opts = append(opts, service.WithWeights(w))
	}

	if cfg.ClassifierPath != "" {
		m, err := scoring.LoadArtifact(cfg.ClassifierPath)
		if err != nil {
			return fail(err)
		}
		opts = append(opts, service.WithBlender(scoring.NewBlender(m, m.Version)))
		log.Info(ctx, "classifier loaded", logger.String("path", cfg.ClassifierPath), logger.String("version", m.Version))
	}

	q, err := ai.New(ctx, ai.Config{
		Provider:      cfg.AIProvider,
		APIKey:        cfg.AIAPIKey,
		Model:         cfg.AIModel,
		BaseURL:       cfg.AIBaseURL,
		RatePerMinute: cfg.AIRatePerMinute,
		Burst:         cfg.AIBurst,
	})
	if err != nil {
		return fail(fmt.Errorf("ai qualifier: %w", err))
	}
	if q != nil {
		opts = append(opts, service.WithQualifier(q))
		log.Info(ctx, "ai qualification enabled", logger.String("provider", cfg.AIProvider))
	}

	trackerOpts := []calibration.Option{calibration.WithLogger(log.Named("calibration"))}

	if strings.EqualFold(cfg.StoreBackend, config.StorePostgres) {
		pool, err := openPostgres(ctx, cfg)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, pool.Close)
		opts = append(opts, service.WithStore(postgres.NewScoreStore(pool)))
		trackerOpts = append(trackerOpts, calibration.WithRepository(postgres.NewCalibrationRepository(pool)))
	}

	if cfg.RedisURL != "" {
		client, err := cache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = client.Close() })
		fallback := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize), dedupe.WithTTL(signalTTL))
		opts = append(opts,
			service.WithCache(cache.NewRedisCache(client), cfg.CacheTTL()),
			service.WithDeduper(cache.NewRedisDeduper(client, signalTTL, fallback)),
		)
		log.Info(ctx, "redis cache enabled")
	}

	if cfg.ArchiveBucket != "" {
		arch, err := archive.NewS3Archiver(ctx, archive.S3Config{
			Bucket:    cfg.ArchiveBucket,
			Region:    cfg.ArchiveRegion,
			Endpoint:  cfg.ArchiveEndpoint,
			AccessKey: cfg.ArchiveAccessKey,
			SecretKey: cfg.ArchiveSecretKey,
		})
		if err != nil {
			return fail(err)
		}
		trackerOpts = append(trackerOpts, calibration.WithArchiver(arch))
		log.Info(ctx, "calibration archive enabled", logger.String("bucket", cfg.ArchiveBucket))
	}
	opts = append(opts, service.WithTracker(calibration.NewTracker(trackerOpts...)))

	svc, err := service.New(opts...)
	if err != nil {
		return fail(err)
	}
	return svc, cleanup, nil
}

// openPostgres connects and applies pending migrations.
func openPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database_url is not set")
	}
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
