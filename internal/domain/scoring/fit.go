package scoring

import (
	"strconv"
	"strings"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
)

// Budget tiers, highest first.
var budgetTiers = []struct {
	min    float64
	points float64
}{
	{50_000, 40},
	{25_000, 35},
	{10_000, 25},
	{5_000, 15},
}

const (
	budgetLow         = 10.0
	timelineNone      = 5.0
	requirementPoints = 10.0
	requirementCap    = 30.0
)

// Timeline buckets, most urgent first. A timeline matches the first bucket
// containing one of its phrases.
var timelineTiers = []struct {
	phrases []string
	points  float64
}{
	{[]string{"immediate", "immediately", "asap", "urgent", "this month", "within a month", "less than 1 month", "0 1 months", "1 month"}, 30},
	{[]string{"1 3 months", "1 3 month", "next quarter", "quarter", "2 months", "3 months"}, 25},
	{[]string{"3 6 months", "6 months", "4 months", "5 months"}, 15},
	{[]string{"6 12 months", "12 months", "this year", "1 year", "9 months"}, 10},
}

// Markers of a timeline given only as a lower bound, checked before
// normalisation strips symbols.
var openEndedMarkers = []string{">", "+", "more than", "over ", "beyond", "longer than", "at least"}

// Tiers for an open-ended timeline, keyed by its lower bound in months.
// A bound of a year or more scores timelineNone.
var openEndedTiers = []struct {
	minMonths float64
	points    float64
}{
	{6, 10},
	{3, 15},
	{1, 25},
	{0, 30},
}

const yearInMonths = 12

// Services offered; a requirement matching one of these counts towards fit.
var serviceKeywords = []string{
	"seo", "ppc", "paid search", "social media", "content marketing", "email marketing",
	"web development", "web design", "marketing automation", "analytics", "branding", "crm",
}

// Fit scores commercial fit: budget, urgency and overlap with offered services.
func Fit(lead model.LeadRecord) float64 {
	return clip(budgetPoints(lead.Budget) +
		TimelinePoints(model.StringValue(lead.Timeline)) +
		capped(float64(RequirementMatches(lead.ServiceRequirements))*requirementPoints, requirementCap))
}

func budgetPoints(budget *float64) float64 {
	if budget == nil {
		return budgetLow
	}
	for _, t := range budgetTiers {
		if *budget >= t.min {
			return t.points
		}
	}
	return budgetLow
}

// TimelinePoints maps a free-text purchase timeline onto its urgency tier.
// "More than N months" scores the tier starting at N months. Anything a
// year or more away, or unrecognised, scores the lowest tier.
func TimelinePoints(timeline string) float64 {
	t := normalize(timeline)
	raw := strings.ToLower(timeline)
	for _, marker := range openEndedMarkers {
		if strings.Contains(raw, marker) {
			return openEndedPoints(t)
		}
	}
	if t == "" || containsPhrase(t, "next year") {
		return timelineNone
	}
	for _, tier := range timelineTiers {
		for _, p := range tier.phrases {
			if containsPhrase(t, p) {
				return tier.points
			}
		}
	}
	return timelineNone
}

func openEndedPoints(t string) float64 {
	months, ok := lowerBoundMonths(t)
	if !ok || months >= yearInMonths {
		return timelineNone
	}
	for _, tier := range openEndedTiers {
		if months >= tier.minMonths {
			return tier.points
		}
	}
	return timelineNone
}

// lowerBoundMonths reads the first "<n> <unit>" pair of a normalised
// timeline as a number of months. A bare number counts as months.
func lowerBoundMonths(t string) (float64, bool) {
	words := strings.Fields(t)
	for i, w := range words {
		n, err := strconv.ParseFloat(w, 64)
		if err != nil {
			continue
		}
		unit := ""
		if i+1 < len(words) {
			unit = words[i+1]
		}
		switch {
		case strings.HasPrefix(unit, "year"), unit == "yr", unit == "yrs":
			return n * yearInMonths, true
		case strings.HasPrefix(unit, "week"), unit == "wk", unit == "wks":
			return n / 4, true
		case strings.HasPrefix(unit, "day"):
			return n / 30, true
		default:
			return n, true
		}
	}
	return 0, false
}

// RequirementMatches counts requirements that match an offered service.
func RequirementMatches(requirements []string) int {
	n := 0
	for _, r := range requirements {
		if containsAnyPhrase(r, serviceKeywords) {
			n++
		}
	}
	return n
}
