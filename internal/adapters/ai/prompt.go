package ai

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
)

const systemPrompt = `You are a B2B sales qualification analyst for a digital marketing agency.
Assess how likely the lead is to become a paying client within the next quarter.
Answer with a JSON object: {"score": <0-100>, "confidence": <0-1>, "explanation": "<one or two sentences>"}.
A score of 80 or more means sales-ready, 60-79 warm, 40-59 cold, below 40 unqualified.`

// UserPrompt renders the lead as plain text for the model.
func UserPrompt(req Request) string {
	l := req.Lead
	var b strings.Builder
	fmt.Fprintf(&b, "Lead %s\n", l.LeadID)

	b.WriteString("\nFirmographics:\n")
	if l.CompanySize != nil {
		fmt.Fprintf(&b, "- company size: %d employees\n", *l.CompanySize)
	}
	line(&b, "industry", l.Industry)
	line(&b, "job title", l.JobTitle)
	line(&b, "location", l.Location)

	b.WriteString("\nBuying signals:\n")
	if l.Budget != nil {
		fmt.Fprintf(&b, "- budget: %.0f\n", *l.Budget)
	}
	line(&b, "timeline", l.Timeline)
	if len(l.ServiceRequirements) > 0 {
		fmt.Fprintf(&b, "- services requested: %s\n", strings.Join(l.ServiceRequirements, ", "))
	}

	b.WriteString("\nActivity:\n")
	fmt.Fprintf(&b, "- website visits: %d, pages viewed: %d, minutes on site: %.1f\n",
		l.WebsiteVisits, l.PagesViewed, l.TimeOnSiteSeconds/60)
	fmt.Fprintf(&b, "- email opens: %d, clicks: %d, downloads: %d, forms: %d\n",
		l.EmailOpens, l.EmailClicks, l.ContentDownloads, l.FormSubmissions)
	if l.ResponseTimeHours != nil {
		fmt.Fprintf(&b, "- first response after %.1f hours\n", *l.ResponseTimeHours)
	}
	fmt.Fprintf(&b, "- meetings attended: %d, proposals requested: %d\n", l.MeetingsAttended, l.ProposalRequests)
	line(&b, "referral source", l.ReferralSource)

	b.WriteString("\nRule-based category scores (0-100):\n")
	fmt.Fprintf(&b, "- demographic %.1f, behavioral %.1f, engagement %.1f, fit %.1f\n",
		req.Scores.Demographic, req.Scores.Behavioral, req.Scores.Engagement, req.Scores.Fit)

	if len(req.AdditionalMetrics) > 0 {
		b.WriteString("\nAdditional metrics:\n")
		keys := make([]string, 0, len(req.AdditionalMetrics))
		for k := range req.AdditionalMetrics {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %g\n", k, req.AdditionalMetrics[k])
		}
	}
	return b.String()
}

func line(b *strings.Builder, label string, v *string) {
	if s := model.StringValue(v); s != "" {
		fmt.Fprintf(b, "- %s: %s\n", label, s)
	}
}
