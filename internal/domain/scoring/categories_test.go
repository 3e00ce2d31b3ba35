package scoring

import (
	"testing"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDemographic(t *testing.T) {
	Convey("Given the demographic scorer", t, func() {
		Convey("Company size falls into tiers", func() {
			So(companySizePoints(model.Ptr(150)), ShouldEqual, 30)
			So(companySizePoints(model.Ptr(100)), ShouldEqual, 30)
			So(companySizePoints(model.Ptr(50)), ShouldEqual, 25)
			So(companySizePoints(model.Ptr(10)), ShouldEqual, 15)
			So(companySizePoints(model.Ptr(3)), ShouldEqual, 5)
			So(companySizePoints(nil), ShouldEqual, 5)
		})

		Convey("Job titles map onto seniority", func() {
			cases := map[string]float64{
				"CEO":                   25,
				"Co-Founder & CTO":      25,
				"President":             25,
				"VP of Marketing":       20,
				"Vice President, Sales": 20,
				"Head of Growth":        20,
				"Marketing Director":    20,
				"Marketing Manager":     15,
				"Team Lead":             15,
				"Intern":                5,
				"":                      5,
				"Partner":               25,
				"Managing Partner":      25,
				"Partner Manager":       15,
				"Channel Partner Lead":  15,
			}
			for title, want := range cases {
				So(TitlePoints(title), ShouldEqual, want)
			}
		})

		Convey("Industry and location use allow lists on whole words", func() {
			So(industryPoints("Technology"), ShouldEqual, 25)
			So(industryPoints("Financial Services"), ShouldEqual, 25)
			So(industryPoints("Agriculture"), ShouldEqual, 10)
			So(locationPoints("Austin, USA"), ShouldEqual, 20)
			So(locationPoints("Mauritius"), ShouldEqual, 5)
			So(locationPoints(""), ShouldEqual, 5)
		})

		Convey("A full executive profile reaches the maximum", func() {
			lead := model.LeadRecord{
				CompanySize: model.Ptr(500),
				Industry:    model.Ptr("SaaS"),
				JobTitle:    model.Ptr("Chief Marketing Officer"),
				Location:    model.Ptr("United Kingdom"),
			}
			So(Demographic(lead), ShouldEqual, 100)
		})
	})
}

func TestBehavioral(t *testing.T) {
	Convey("Given the behavioral scorer", t, func() {
		Convey("An idle lead scores 0", func() {
			So(Behavioral(model.LeadRecord{}), ShouldEqual, 0)
		})

		Convey("Each signal is capped separately", func() {
			lead := model.LeadRecord{WebsiteVisits: 50}
			So(Behavioral(lead), ShouldEqual, 20)

			lead = model.LeadRecord{TimeOnSiteSeconds: 300, PagesViewed: 4}
			So(Behavioral(lead), ShouldEqual, 9)
		})

		Convey("Heavy activity saturates at 100", func() {
			lead := model.LeadRecord{
				WebsiteVisits: 30, PagesViewed: 40, TimeOnSiteSeconds: 3600,
				EmailOpens: 10, EmailClicks: 10, ContentDownloads: 5, FormSubmissions: 4,
			}
			So(Behavioral(lead), ShouldEqual, 100)
		})
	})
}

func TestEngagement(t *testing.T) {
	Convey("Given the engagement scorer", t, func() {
		Convey("Response time tiers are inclusive upper bounds", func() {
			So(responsePoints(model.Ptr(0.5)), ShouldEqual, 30)
			So(responsePoints(model.Ptr(1.0)), ShouldEqual, 30)
			So(responsePoints(model.Ptr(2.5)), ShouldEqual, 25)
			So(responsePoints(model.Ptr(24.0)), ShouldEqual, 20)
			So(responsePoints(model.Ptr(48.0)), ShouldEqual, 15)
			So(responsePoints(model.Ptr(49.0)), ShouldEqual, 5)
			So(responsePoints(nil), ShouldEqual, 5)
		})

		Convey("Meetings and proposals are capped", func() {
			lead := model.LeadRecord{MeetingsAttended: 3, ProposalRequests: 4}
			So(Engagement(lead), ShouldEqual, 5+25+25+10)
		})

		Convey("Referral sources", func() {
			So(referralPoints("Partner"), ShouldEqual, 20)
			So(referralPoints("customer referral"), ShouldEqual, 20)
			So(referralPoints("google ads"), ShouldEqual, 10)
			So(referralPoints(""), ShouldEqual, 10)
		})
	})
}

func TestFit(t *testing.T) {
	Convey("Given the fit scorer", t, func() {
		Convey("Budget tiers", func() {
			So(budgetPoints(model.Ptr(75_000.0)), ShouldEqual, 40)
			So(budgetPoints(model.Ptr(50_000.0)), ShouldEqual, 40)
			So(budgetPoints(model.Ptr(25_000.0)), ShouldEqual, 35)
			So(budgetPoints(model.Ptr(12_000.0)), ShouldEqual, 25)
			So(budgetPoints(model.Ptr(5_000.0)), ShouldEqual, 15)
			So(budgetPoints(model.Ptr(4_999.0)), ShouldEqual, 10)
			So(budgetPoints(nil), ShouldEqual, 10)
		})

		Convey("Timeline urgency", func() {
			cases := map[string]float64{
				"immediate":   30,
				"ASAP":        30,
				"1-3 months":  25,
				"3-6 months":  15,
				"6-12 months": 10,
				">12 months":  5,
				"12+ months":  5,
				"someday":     5,
				"next year":   5,

				"more than 1 month":  25,
				"more than 3 months": 15,
				"over 6 months":      10,
				"more than a year":   5,
				"at least 2 years":   5,
				"2+ weeks":           30,
				"":            5,
			}
			for timeline, want := range cases {
				So(TimelinePoints(timeline), ShouldEqual, want)
			}
		})

		Convey("Requirement matches are counted and capped", func() {
			So(RequirementMatches([]string{"SEO", "PPC campaigns", "catering"}), ShouldEqual, 2)
			lead := model.LeadRecord{ServiceRequirements: []string{"seo", "ppc", "branding", "crm", "analytics"}}
			So(Fit(lead), ShouldEqual, 10+5+30)
		})
	})
}

func TestScorersNeverPanicOnEmptyLead(t *testing.T) {
	lead := model.LeadRecord{LeadID: "empty"}
	for name, fn := range map[string]CategoryScorer{
		"demographic": Demographic,
		"behavioral":  Behavioral,
		"engagement":  Engagement,
		"fit":         Fit,
	} {
		v := fn(lead)
		if v < 0 || v > 100 {
			t.Errorf("%s scored %v outside [0,100]", name, v)
		}
	}
}
