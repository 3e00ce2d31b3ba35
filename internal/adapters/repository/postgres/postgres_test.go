package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smartystreets/goconvey/convey"

	"github.com/Bizoholic-Digital/leadscore/internal/adapters/repository"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/calibration"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
)

// These tests need a disposable database:
//
//	LEADSCORE_TEST_DATABASE_URL=postgres://... go test ./internal/adapters/repository/postgres/
const testDatabaseEnv = "LEADSCORE_TEST_DATABASE_URL"

func TestPostgresStores(t *testing.T) {
	url := os.Getenv(testDatabaseEnv)
	if url == "" {
		t.Skipf("%s not set", testDatabaseEnv)
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, url, 4)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := Migrate(pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	convey.Convey("Given a migrated database", t, func() {
		scores := NewScoreStore(pool)
		suffix := uuid.NewString()
		hot := "pg-hot-" + suffix
		cold := "pg-cold-" + suffix

		convey.Convey("Scores round trip and upsert", func() {
			res := model.ScoringResult{
				LeadID:             hot,
				TotalScore:         99.5,
				QualificationLevel: model.LevelHot,
				Recommendations:    []string{"call today"},
				ComputedAt:         time.Now().UTC().Truncate(time.Microsecond),
			}
			convey.So(scores.Save(ctx, hot, res), convey.ShouldBeNil)
			convey.So(scores.Save(ctx, cold, model.ScoringResult{LeadID: cold, TotalScore: 1, QualificationLevel: model.LevelUnqualified}), convey.ShouldBeNil)

			got, err := scores.Load(ctx, hot)
			convey.So(err, convey.ShouldBeNil)
			convey.So(got.TotalScore, convey.ShouldEqual, 99.5)
			convey.So(got.Recommendations, convey.ShouldResemble, []string{"call today"})

			res.TotalScore = 99.9
			convey.So(scores.Save(ctx, hot, res), convey.ShouldBeNil)
			got, _ = scores.Load(ctx, hot)
			convey.So(got.TotalScore, convey.ShouldEqual, 99.9)

			_, err = scores.Load(ctx, "missing-"+suffix)
			convey.So(err, convey.ShouldEqual, repository.ErrNotFound)

			n, err := scores.Count(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(n, convey.ShouldBeGreaterThanOrEqualTo, 2)
		})

		convey.Convey("Calibration records reconcile exactly once", func() {
			repo := NewCalibrationRepository(pool)
			id := uuid.NewString()
			rec := model.CalibrationRecord{
				EstimationID: id,
				LeadID:       hot,
				TenantID:     "tenant-" + suffix,
				Projected:    model.ProjectFromResult(model.ScoringResult{TotalScore: 80}),
				RecordedAt:   time.Now().UTC().Truncate(time.Microsecond),
			}
			convey.So(repo.Insert(ctx, rec), convey.ShouldBeNil)

			got, err := repo.Get(ctx, id)
			convey.So(err, convey.ShouldBeNil)
			convey.So(got.Reconciled(), convey.ShouldBeFalse)

			outcome := model.Outcome{Success: true, ObservedAt: time.Now().UTC()}
			done, err := repo.Reconcile(ctx, id, outcome, 0.8, time.Now().UTC())
			convey.So(err, convey.ShouldBeNil)
			convey.So(*done.CalibrationAccuracy, convey.ShouldEqual, 0.8)

			_, err = repo.Reconcile(ctx, id, outcome, 0.1, time.Now().UTC())
			convey.So(err, convey.ShouldEqual, calibration.ErrAlreadyReconciled)

			_, err = repo.Reconcile(ctx, uuid.NewString(), outcome, 0.1, time.Now().UTC())
			convey.So(err, convey.ShouldEqual, calibration.ErrNotFound)

			list, err := repo.List(ctx, rec.TenantID)
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(list), convey.ShouldEqual, 1)
		})
	})
}
