package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
	"github.com/google/go-cmp/cmp"
	"github.com/smartystreets/goconvey/convey"
)

func TestLeadValidation(t *testing.T) {
	convey.Convey("Given the lead validator", t, func() {
		v := model.NewValidator()
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		convey.Convey("When the lead is well formed", func() {
			lead := model.LeadRecord{
				LeadID:         "L-1",
				CompanySize:    model.Ptr(150),
				WebsiteVisits:  8,
				CreatedAt:      now,
				LastActivityAt: now.Add(time.Hour),
			}

			convey.Convey("Then it passes", func() {
				convey.So(v.Lead(lead), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the lead only carries an id", func() {
			convey.Convey("Then missing optional fields are accepted", func() {
				convey.So(v.Lead(model.LeadRecord{LeadID: "L-2"}), convey.ShouldBeNil)
			})
		})

		convey.Convey("When counters are negative and the id is missing", func() {
			err := v.Lead(model.LeadRecord{WebsiteVisits: -1, EmailOpens: -3, Budget: model.Ptr(-5.0)})

			convey.Convey("Then every violation is listed", func() {
				convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
				var verr *model.ValidationError
				convey.So(errors.As(err, &verr), convey.ShouldBeTrue)

				fields := map[string]string{}
				for _, f := range verr.Fields {
					fields[f.Field] = f.Rule
				}
				convey.So(fields["lead_id"], convey.ShouldEqual, "required")
				convey.So(fields["website_visits"], convey.ShouldEqual, "gte")
				convey.So(fields["email_opens"], convey.ShouldEqual, "gte")
				convey.So(fields["budget"], convey.ShouldEqual, "gte")
			})
		})

		convey.Convey("When last activity precedes creation", func() {
			err := v.Lead(model.LeadRecord{LeadID: "L-3", CreatedAt: now, LastActivityAt: now.Add(-time.Minute)})

			convey.Convey("Then the ordering rule fails", func() {
				var verr *model.ValidationError
				convey.So(errors.As(err, &verr), convey.ShouldBeTrue)
				convey.So(verr.Fields, convey.ShouldResemble, []model.FieldError{{Field: "last_activity_at", Rule: "gte_created_at"}})
				convey.So(err.Error(), convey.ShouldContainSubstring, `lead "L-3"`)
			})
		})
	})
}

func TestLeadCompleteness(t *testing.T) {
	convey.Convey("Given leads with different amounts of data", t, func() {
		convey.Convey("Then an empty lead is 0 complete", func() {
			convey.So(model.LeadRecord{LeadID: "x"}.Completeness(), convey.ShouldEqual, 0)
		})

		convey.Convey("Then empty strings do not count as present", func() {
			lead := model.LeadRecord{Industry: model.Ptr(""), CompanySize: model.Ptr(0)}
			convey.So(lead.Completeness(), convey.ShouldEqual, 1.0/model.OptionalSignalCount)
		})

		convey.Convey("Then a full profile is fully complete", func() {
			lead := model.LeadRecord{
				CompanySize:       model.Ptr(10),
				Industry:          model.Ptr("saas"),
				JobTitle:          model.Ptr("CEO"),
				Location:          model.Ptr("Canada"),
				Budget:            model.Ptr(1000.0),
				Timeline:          model.Ptr("immediate"),
				ResponseTimeHours: model.Ptr(1.0),
				ReferralSource:    model.Ptr("partner"),
			}
			convey.So(lead.Completeness(), convey.ShouldEqual, 1)
		})
	})
}

func TestLeadUpdateApply(t *testing.T) {
	convey.Convey("Given a lead and an update", t, func() {
		original := model.LeadRecord{
			LeadID:              "L-9",
			Industry:            model.Ptr("retail"),
			WebsiteVisits:       3,
			ServiceRequirements: []string{"seo"},
		}
		reqs := []string{"ppc", "seo"}
		update := model.LeadUpdate{
			Industry:            model.Ptr("technology"),
			WebsiteVisits:       model.Ptr(10),
			MeetingsAttended:    model.Ptr(2),
			ServiceRequirements: &reqs,
		}

		updated := update.Apply(original)

		convey.Convey("Then set fields are replaced and the rest kept", func() {
			convey.So(*updated.Industry, convey.ShouldEqual, "technology")
			convey.So(updated.WebsiteVisits, convey.ShouldEqual, 10)
			convey.So(updated.MeetingsAttended, convey.ShouldEqual, 2)
			convey.So(updated.LeadID, convey.ShouldEqual, "L-9")
			convey.So(updated.ServiceRequirements, convey.ShouldResemble, []string{"ppc", "seo"})
		})

		convey.Convey("Then the original is left untouched", func() {
			want := model.LeadRecord{
				LeadID:              "L-9",
				Industry:            model.Ptr("retail"),
				WebsiteVisits:       3,
				ServiceRequirements: []string{"seo"},
			}
			convey.So(cmp.Diff(want, original), convey.ShouldBeEmpty)
		})

		convey.Convey("Then the update does not alias caller memory", func() {
			reqs[0] = "changed"
			*update.Industry = "changed"
			convey.So(updated.ServiceRequirements[0], convey.ShouldEqual, "ppc")
			convey.So(*updated.Industry, convey.ShouldEqual, "technology")
		})

		convey.Convey("Then a zero update is reported as such", func() {
			convey.So(model.LeadUpdate{}.IsZero(), convey.ShouldBeTrue)
			convey.So(update.IsZero(), convey.ShouldBeFalse)
		})
	})
}

func TestProjectFromResult(t *testing.T) {
	convey.Convey("Given a scoring result", t, func() {
		res := model.ScoringResult{LeadID: "L-1", TotalScore: 72, QualificationLevel: model.LevelWarm, Confidence: 0.6}

		p := model.ProjectFromResult(res)

		convey.Convey("Then the conversion probability is the score as a fraction", func() {
			convey.So(p.ConversionProbability, convey.ShouldAlmostEqual, 0.72)
			convey.So(p.Metrics[model.MetricTotalScore], convey.ShouldEqual, 72)
			convey.So(p.QualificationLevel, convey.ShouldEqual, model.LevelWarm)
		})
	})
}

func TestScoreBreakdownMap(t *testing.T) {
	b := model.ScoreBreakdown{Demographic: 80, Behavioral: 51, Engagement: 57.5, Fit: 60}
	m := b.Map()
	if len(m) != len(model.Categories) {
		t.Fatalf("expected %d categories, got %d", len(model.Categories), len(m))
	}
	if m[model.CategoryEngagement] != 57.5 || m[model.CategoryAIQualification] != 0 {
		t.Errorf("unexpected map: %v", m)
	}
	if b.Get(model.Category("unknown")) != 0 {
		t.Error("unknown categories should score 0")
	}
}
