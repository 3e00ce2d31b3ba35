package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/smartystreets/goconvey/convey"

	"github.com/Bizoholic-Digital/leadscore/internal/config"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
	"github.com/Bizoholic-Digital/leadscore/pkg/logger"
)

const leadYAML = `lead_id: cli-lead
company_size: 150
industry: technology
job_title: VP of Marketing
budget: 25000
timeline: 1-3 months
website_visits: 8
email_opens: 5
content_downloads: 2
response_time_hours: 2.5
meetings_attended: 1
referral_source: partner
`

const artifactYAML = `version: test-v1
features: [company_size, website_visits, email_opens, content_downloads, response_time_hours]
coefficients: [0.1, 0.2, 0.3, 0.4, -0.1]
intercept: 0.0
scaler:
  mean: [100, 5, 3, 1, 24]
  scale: [50, 2, 2, 1, 12]
`

func init() {
	_ = logger.Init()
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScoreCommand(t *testing.T) {
	convey.Convey("Given a lead file", t, func() {
		path := writeFile(t, "lead.yaml", leadYAML)

		convey.Convey("When it is scored without AI", func() {
			out, err := run("score", path)

			convey.Convey("Then the rule based result is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				var res model.ScoringResult
				convey.So(json.Unmarshal([]byte(out), &res), convey.ShouldBeNil)
				convey.So(res.LeadID, convey.ShouldEqual, "cli-lead")
				convey.So(res.TotalScore, convey.ShouldAlmostEqual, 63.375, 0.01)
				convey.So(res.QualificationLevel, convey.ShouldEqual, model.LevelWarm)
				convey.So(res.AIEvaluated, convey.ShouldBeFalse)
			})
		})
	})

	convey.Convey("Given an invalid lead", t, func() {
		path := writeFile(t, "lead.yaml", "lead_id: bad\nwebsite_visits: -3\n")

		convey.Convey("Then scoring reports the validation failure", func() {
			_, err := run("score", path)
			convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a missing file", t, func() {
		_, err := run("score", filepath.Join(t.TempDir(), "nope.yaml"))
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestMigrateCommand(t *testing.T) {
	convey.Convey("Given the in-memory store", t, func() {
		_, err := run("migrate")
		convey.So(errors.Is(err, errNotPostgres), convey.ShouldBeTrue)
	})
}

func TestBuildService(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given the default configuration", t, func() {
		cfg := config.New(ctx)
		svc, cleanup, err := buildService(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		defer cleanup()

		convey.So(svc.GetStats(ctx).AIEnabled, convey.ShouldBeFalse)
		convey.So(svc.GetStats(ctx).Blending, convey.ShouldBeFalse)
	})

	convey.Convey("Given a classifier artifact", t, func() {
		cfg := config.New(ctx)
		cfg.ClassifierPath = writeFile(t, "model.yaml", artifactYAML)
		svc, cleanup, err := buildService(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		defer cleanup()

		convey.So(svc.GetStats(ctx).Blending, convey.ShouldBeTrue)
	})

	convey.Convey("Given weights that do not sum to one", t, func() {
		cfg := config.New(ctx)
		cfg.CategoryWeights = map[string]float64{"demographic": 0.9}
		_, _, err := buildService(ctx, cfg)
		convey.So(err, convey.ShouldNotBeNil)
	})

	convey.Convey("Given a redis url", t, func() {
		mr := miniredis.RunT(t)
		cfg := config.New(ctx)
		cfg.RedisURL = "redis://" + mr.Addr()
		svc, cleanup, err := buildService(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		defer cleanup()

		convey.Convey("Then scores are cached in redis", func() {
			lead := model.LeadRecord{LeadID: "cached", WebsiteVisits: 3}
			_, err := svc.ScoreLead(ctx, lead, false)
			convey.So(err, convey.ShouldBeNil)
			convey.So(mr.Exists("leadscore:score:cached"), convey.ShouldBeTrue)
		})
	})
}
