package scoring

import "github.com/Bizoholic-Digital/leadscore/internal/domain/model"

// Demographic points.
const (
	sizeEnterprise = 30.0
	sizeMidMarket  = 25.0
	sizeSmall      = 15.0
	sizeMicro      = 5.0
	industryHigh   = 25.0
	industryOther  = 10.0
	titleExecutive = 25.0
	titleVP        = 20.0
	titleManager   = 15.0
	titleOther     = 5.0
	locationHigh   = 20.0
	locationOther  = 5.0

	enterpriseSize = 100
	midMarketSize  = 50
	smallSize      = 10
)

var highValueIndustries = []string{
	"technology", "software", "saas", "it services", "information technology",
	"finance", "financial services", "fintech", "healthcare",
	"manufacturing", "e-commerce", "ecommerce", "professional services", "real estate",
}

var (
	executiveTitles = []string{
		"ceo", "cto", "cfo", "coo", "cmo", "cio", "chief", "founder", "co founder", "cofounder",
		"owner", "president", "managing director", "managing partner", "founding partner",
		"senior partner", "general partner", "equity partner",
	}
	// A title that is exactly one of these is executive; inside a longer
	// title ("Partner Manager") it is not.
	executiveBareTitles = []string{"partner"}
	vpTitles      = []string{"vp", "svp", "evp", "vice president", "director", "head"}
	managerTitles = []string{"manager", "lead", "supervisor"}
)

var highValueLocations = []string{
	"united states", "usa", "us", "canada", "united kingdom", "uk", "germany",
	"france", "netherlands", "australia", "singapore", "uae", "india",
}

// Demographic scores firmographics: company size, industry, seniority and location.
func Demographic(lead model.LeadRecord) float64 {
	return clip(companySizePoints(lead.CompanySize) +
		industryPoints(model.StringValue(lead.Industry)) +
		TitlePoints(model.StringValue(lead.JobTitle)) +
		locationPoints(model.StringValue(lead.Location)))
}

func companySizePoints(size *int) float64 {
	switch {
	case size == nil:
		return sizeMicro
	case *size >= enterpriseSize:
		return sizeEnterprise
	case *size >= midMarketSize:
		return sizeMidMarket
	case *size >= smallSize:
		return sizeSmall
	default:
		return sizeMicro
	}
}

func industryPoints(industry string) float64 {
	if containsAnyPhrase(industry, highValueIndustries) {
		return industryHigh
	}
	return industryOther
}

// TitlePoints maps a job title onto its seniority tier.
// "Vice President" is VP tier even though it contains "president".
func TitlePoints(title string) float64 {
	if title == "" {
		return titleOther
	}
	vice := containsPhrase(title, "vice")
	switch {
	case !vice && (containsAnyPhrase(title, executiveTitles) || isAnyTitle(title, executiveBareTitles)):
		return titleExecutive
	case containsAnyPhrase(title, vpTitles):
		return titleVP
	case containsAnyPhrase(title, managerTitles):
		return titleManager
	default:
		return titleOther
	}
}

func isAnyTitle(title string, titles []string) bool {
	t := normalize(title)
	for _, want := range titles {
		if t == normalize(want) {
			return true
		}
	}
	return false
}

func locationPoints(location string) float64 {
	if containsAnyPhrase(location, highValueLocations) {
		return locationHigh
	}
	return locationOther
}
