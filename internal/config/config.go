// Package config defines service configuration and its loading hooks.
//
// Conventions:
//   - New(ctx) returns a Config populated with defaults.
//   - Load(ctx) layers defaults, an optional YAML file and LEADSCORE_* env vars.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Supported values for the enumerated keys.
const (
	AIProviderNone      = "none"
	AIProviderOpenAI    = "openai"
	AIProviderAnthropic = "anthropic"
	AIProviderGemini    = "gemini"

	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the async scoring queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of async scoring workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize sets how many ingestion signal ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`
	// MaxTopLimit caps GET /v1/leads/top?limit.
	MaxTopLimit int `koanf:"max_top_limit"`

	// CategoryWeights overrides the composite weights. Must sum to 1.
	CategoryWeights map[string]float64 `koanf:"category_weights"`
	// FixedAIWeight counts the AI weight at 0 instead of spreading it when AI is not requested.
	FixedAIWeight bool `koanf:"fixed_ai_weight"`
	// ClassifierPath points at a logistic model artifact; empty means rule-only scoring.
	ClassifierPath string `koanf:"classifier_path"`

	AIProvider      string `koanf:"ai_provider"`
	AIAPIKey        string `koanf:"ai_api_key"`
	AIModel         string `koanf:"ai_model"`
	AIBaseURL       string `koanf:"ai_base_url"`
	AITimeoutMS     int    `koanf:"ai_timeout_ms"`
	AIRatePerMinute int    `koanf:"ai_rate_per_minute"`
	AIBurst         int    `koanf:"ai_burst"`

	BulkBatchSize       int `koanf:"bulk_batch_size"`
	BulkAIBatchSize     int `koanf:"bulk_ai_batch_size"`
	BulkAIBatchDelayMS  int `koanf:"bulk_ai_batch_delay_ms"`
	MaxBulkLeads        int `koanf:"max_bulk_leads"`
	ShutdownGracePeriod int `koanf:"shutdown_grace_ms"`

	// StoreBackend is memory or postgres.
	StoreBackend string `koanf:"store_backend"`
	DatabaseURL  string `koanf:"database_url"`
	DBMaxConns   int    `koanf:"db_max_conns"`

	// RedisURL enables the score cache when set.
	RedisURL        string `koanf:"redis_url"`
	CacheTTLSeconds int    `koanf:"cache_ttl_seconds"`

	// ArchiveBucket enables S3 export of reconciled estimations when set.
	ArchiveBucket    string `koanf:"archive_bucket"`
	ArchiveRegion    string `koanf:"archive_region"`
	ArchiveEndpoint  string `koanf:"archive_endpoint"`
	ArchiveAccessKey string `koanf:"archive_access_key"`
	ArchiveSecretKey string `koanf:"archive_secret_key"`

	// OTelEndpoint enables OTLP/HTTP trace export when set.
	OTelEndpoint string `koanf:"otel_endpoint"`
	// OTelHeaders is a comma separated key=value list sent with every export.
	OTelHeaders string `koanf:"otel_headers"`
	ServiceName string `koanf:"service_name"`
}

// New creates a Config with defaults. The context is reserved for future
// sources and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU() * 2,
		DedupeSize:          100_000,
		MaxTopLimit:         100,
		CategoryWeights:     nil,
		AIProvider:          AIProviderNone,
		AIModel:             "",
		AITimeoutMS:         15_000,
		AIRatePerMinute:     60,
		AIBurst:             5,
		BulkBatchSize:       20,
		BulkAIBatchSize:     5,
		BulkAIBatchDelayMS:  1_000,
		MaxBulkLeads:        1_000,
		ShutdownGracePeriod: 10_000,
		StoreBackend:        StoreMemory,
		DBMaxConns:          10,
		CacheTTLSeconds:     3_600,
		ArchiveRegion:       "us-east-1",
		ServiceName:         "leadscore",
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var problems []string
	if c.Addr == "" {
		problems = append(problems, "addr must not be empty")
	}
	if c.QueueSize <= 0 {
		problems = append(problems, "queue_size must be positive")
	}
	if c.WorkerCount <= 0 {
		problems = append(problems, "worker_count must be positive")
	}
	if c.DedupeSize <= 0 {
		problems = append(problems, "dedupe_size must be positive")
	}
	if c.MaxTopLimit <= 0 {
		problems = append(problems, "max_top_limit must be positive")
	}
	if c.BulkBatchSize <= 0 || c.BulkAIBatchSize <= 0 {
		problems = append(problems, "bulk batch sizes must be positive")
	}
	if c.BulkAIBatchDelayMS < 0 {
		problems = append(problems, "bulk_ai_batch_delay_ms must not be negative")
	}
	if c.AITimeoutMS <= 0 {
		problems = append(problems, "ai_timeout_ms must be positive")
	}
	switch strings.ToLower(c.AIProvider) {
	case "", AIProviderNone:
	case AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		if c.AIAPIKey == "" {
			problems = append(problems, "ai_api_key is required for provider "+c.AIProvider)
		}
	default:
		problems = append(problems, "unknown ai_provider "+c.AIProvider)
	}
	switch strings.ToLower(c.StoreBackend) {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "database_url is required for the postgres store")
		}
	default:
		problems = append(problems, "unknown store_backend "+c.StoreBackend)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// AITimeout returns the AI call timeout.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutMS) * time.Millisecond
}

// BulkAIBatchDelay returns the pause between AI-enabled bulk batches.
func (c *Config) BulkAIBatchDelay() time.Duration {
	return time.Duration(c.BulkAIBatchDelayMS) * time.Millisecond
}

// CacheTTL returns the score cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// ShutdownGrace returns how long Stop waits for in-flight work.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGracePeriod) * time.Millisecond
}
