package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
	"github.com/Bizoholic-Digital/leadscore/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisCache(t *testing.T) {
	Convey("Given a RedisCache backed by miniredis", t, func() {
		ctx := context.Background()
		mr, client := newTestClient(t)
		c := NewRedisCache(client, WithKeyPrefix("test:"))

		want := model.ScoringResult{
			LeadID:             "lead-1",
			TotalScore:         63.375,
			QualificationLevel: model.LevelWarm,
			Scores:             model.ScoreBreakdown{Demographic: 80, Behavioral: 51, Engagement: 57.5, Fit: 60},
			Recommendations:    []string{"Schedule a discovery call"},
			Confidence:         0.875,
			ComputedAt:         time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
			ScoreVersion:       "rules-v1",
		}

		Convey("A miss is reported without error", func() {
			_, ok, err := c.Get(ctx, "nope")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("A stored result round trips under the prefixed key", func() {
			So(c.Set(ctx, "lead-1", want, time.Minute), ShouldBeNil)
			So(mr.Exists("test:lead-1"), ShouldBeTrue)

			got, ok, err := c.Get(ctx, "lead-1")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(cmp.Diff(want, got), ShouldBeEmpty)
		})

		Convey("Entries expire after the ttl", func() {
			So(c.Set(ctx, "lead-1", want, time.Minute), ShouldBeNil)
			mr.FastForward(2 * time.Minute)
			_, ok, err := c.Get(ctx, "lead-1")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("Corrupt values surface as errors", func() {
			So(mr.Set("test:bad", "{not json"), ShouldBeNil)
			_, _, err := c.Get(ctx, "bad")
			So(err, ShouldNotBeNil)
		})

		Convey("Transport failures surface as errors", func() {
			mr.Close()
			_, _, err := c.Get(ctx, "lead-1")
			So(err, ShouldNotBeNil)
			So(c.Set(ctx, "lead-1", want, time.Minute), ShouldNotBeNil)
		})
	})
}

func TestRedisDeduper(t *testing.T) {
	Convey("Given a RedisDeduper", t, func() {
		ctx := context.Background()
		mr, client := newTestClient(t)
		d := NewRedisDeduper(client, time.Hour, nil)

		Convey("The first sighting records and the second is a duplicate", func() {
			So(d.SeenAndRecord(ctx, "sig-1"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "sig-1"), ShouldBeTrue)
			So(d.Size(), ShouldEqual, 1)
		})

		Convey("Two instances sharing Redis agree", func() {
			other := NewRedisDeduper(client, time.Hour, nil)
			So(d.SeenAndRecord(ctx, "sig-2"), ShouldBeFalse)
			So(other.SeenAndRecord(ctx, "sig-2"), ShouldBeTrue)
		})

		Convey("Unrecord allows a retry", func() {
			d.SeenAndRecord(ctx, "sig-3")
			d.Unrecord(ctx, "sig-3")
			So(d.Size(), ShouldEqual, 0)
			So(d.SeenAndRecord(ctx, "sig-3"), ShouldBeFalse)
		})

		Convey("Ids expire with the ttl", func() {
			d.SeenAndRecord(ctx, "sig-4")
			mr.FastForward(2 * time.Hour)
			So(d.SeenAndRecord(ctx, "sig-4"), ShouldBeFalse)
		})

		Convey("When Redis is down the local fallback still dedupes", func() {
			mr.Close()
			So(d.SeenAndRecord(ctx, "sig-5"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "sig-5"), ShouldBeTrue)
		})
	})
}
