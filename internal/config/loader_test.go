package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Bizoholic-Digital/leadscore/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.BulkBatchSize, convey.ShouldEqual, 20)
				convey.So(cfg.BulkAIBatchSize, convey.ShouldEqual, 5)
				convey.So(cfg.BulkAIBatchDelay(), convey.ShouldEqual, time.Second)
				convey.So(cfg.StoreBackend, convey.ShouldEqual, config.StoreMemory)
				convey.So(cfg.AIProvider, convey.ShouldEqual, config.AIProviderNone)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("LEADSCORE_ADDR", ":8080")
			_ = os.Setenv("LEADSCORE_QUEUE_SIZE", "500")
			_ = os.Setenv("LEADSCORE_WORKER_COUNT", "16")
			_ = os.Setenv("LEADSCORE_AI_TIMEOUT_MS", "2500")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.AITimeout(), convey.ShouldEqual, 2500*time.Millisecond)
			})
		})

		convey.Convey("When loading config with a YAML file and env overrides", func() {
			tmpFile := createTempConfigFile(`
# comments are fine
addr: ":9090"
worker_count: 24
bulk_ai_batch_size: 3
fixed_ai_weight: true
category_weights:
  demographic: 0.3
  behavioral: 0.2
  engagement: 0.2
  fit: 0.1
  ai_qualification: 0.2
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("LEADSCORE_CONFIG", tmpFile)
			_ = os.Setenv("LEADSCORE_WORKER_COUNT", "32")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env wins over the file and the file wins over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)
				convey.So(cfg.BulkAIBatchSize, convey.ShouldEqual, 3)
				convey.So(cfg.BulkBatchSize, convey.ShouldEqual, 20)
				convey.So(cfg.CategoryWeights["demographic"], convey.ShouldEqual, 0.3)
				convey.So(cfg.CategoryWeights, convey.ShouldHaveLength, 5)
				convey.So(cfg.FixedAIWeight, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("LEADSCORE_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a non-existent file", func() {
			_ = os.Setenv("LEADSCORE_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("LEADSCORE_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("LEADSCORE_QUEUE_SIZE", "invalid")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a provider is selected without an API key", func() {
			_ = os.Setenv("LEADSCORE_AI_PROVIDER", "openai")

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "ai_api_key is required")
			})
		})

		convey.Convey("When the postgres store has no database url", func() {
			_ = os.Setenv("LEADSCORE_STORE_BACKEND", "postgres")

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "database_url is required")
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, envVar := range []string{
		"LEADSCORE_CONFIG",
		"LEADSCORE_ADDR",
		"LEADSCORE_QUEUE_SIZE",
		"LEADSCORE_WORKER_COUNT",
		"LEADSCORE_AI_TIMEOUT_MS",
		"LEADSCORE_AI_PROVIDER",
		"LEADSCORE_STORE_BACKEND",
	} {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "leadscore-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
