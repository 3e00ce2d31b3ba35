package testleads

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
)

// Profile is the rough sales readiness a synthetic lead is drawn from.
type Profile int

const (
	ProfileCold Profile = iota
	ProfileWarm
	ProfileHot
	profileCount
)

var (
	industries = []string{"technology", "saas", "finance", "retail", "hospitality", "healthcare", "education"}
	titles     = []string{"CEO", "Founder", "VP of Sales", "Director of Marketing", "Marketing Manager", "Analyst", "Intern"}
	locations  = []string{"United States", "Canada", "Germany", "India", "Brazil", "Kenya", "UK"}
	timelines  = []string{"immediate", "1-3 months", "3-6 months", "6-12 months", "next year"}
	referrals  = []string{"partner", "referral", "linkedin", "google", "newsletter"}
	services   = []string{"SEO", "PPC", "content marketing", "web design", "catering", "analytics"}
)

// namespace keeps generated ids stable for a seed.
var namespace = uuid.MustParse("6f1c9f7e-8a3b-4c1d-9e2f-5b7a0c4d3e21")

// Generator builds deterministic synthetic leads for a seed.
type Generator struct {
	rng  *rand.Rand
	seed uint64
	now  time.Time
}

// NewGenerator returns a generator; equal seeds yield equal leads.
func NewGenerator(seed uint64, now time.Time) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), seed: seed, now: now}
}

// LeadID returns the stable id of the i-th lead.
func (g *Generator) LeadID(i int) string {
	return uuid.NewSHA1(namespace, []byte(fmt.Sprintf("lead/%d/%d", g.seed, i))).String()
}

// SignalID returns the stable ingestion signal id of the i-th lead.
func (g *Generator) SignalID(i int) string {
	return uuid.NewSHA1(namespace, []byte(fmt.Sprintf("signal/%d/%d", g.seed, i))).String()
}

// Generate returns n leads cycling through the profiles.
func (g *Generator) Generate(n int) []model.LeadRecord {
	out := make([]model.LeadRecord, n)
	for i := range out {
		out[i] = g.Lead(i, Profile(i%int(profileCount)))
	}
	return out
}

// Lead draws one lead of profile p. Hot profiles favour the high tiers of
// every category, cold ones the low tiers.
func (g *Generator) Lead(i int, p Profile) model.LeadRecord {
	// options are ordered best first
	bias := func(n int) int {
		switch p {
		case ProfileHot:
			return g.rng.IntN(max(1, n/3))
		case ProfileWarm:
			return g.rng.IntN(max(1, 2*n/3))
		default:
			return g.rng.IntN(n)
		}
	}
	scale := float64(p) + 1

	created := g.now.Add(-time.Duration(30+g.rng.IntN(90)) * 24 * time.Hour)
	lead := model.LeadRecord{
		LeadID:            g.LeadID(i),
		CompanySize:       model.Ptr(int(5 * scale * scale * float64(1+g.rng.IntN(10)))),
		Industry:          model.Ptr(industries[bias(len(industries))]),
		JobTitle:          model.Ptr(titles[bias(len(titles))]),
		Location:          model.Ptr(locations[bias(len(locations))]),
		Budget:            model.Ptr(float64(2_000 * scale * scale * float64(1+g.rng.IntN(5)))),
		Timeline:          model.Ptr(timelines[bias(len(timelines))]),
		WebsiteVisits:     g.rng.IntN(4 * int(scale)),
		PagesViewed:       g.rng.IntN(8 * int(scale)),
		TimeOnSiteSeconds: float64(g.rng.IntN(300 * int(scale))),
		EmailOpens:        g.rng.IntN(3 * int(scale)),
		EmailClicks:       g.rng.IntN(2 * int(scale)),
		ContentDownloads:  g.rng.IntN(int(scale)),
		FormSubmissions:   g.rng.IntN(int(scale)),
		ResponseTimeHours: model.Ptr(float64(g.rng.IntN(72/int(scale)) + 1)),
		MeetingsAttended:  g.rng.IntN(int(scale)),
		ProposalRequests:  g.rng.IntN(int(scale)) / 2,
		ReferralSource:    model.Ptr(referrals[bias(len(referrals))]),
		CreatedAt:         created,
		LastActivityAt:    created.Add(time.Duration(g.rng.IntN(30*24)) * time.Hour),
	}
	for range int(scale) {
		lead.ServiceRequirements = append(lead.ServiceRequirements, services[bias(len(services))])
	}
	return lead
}
