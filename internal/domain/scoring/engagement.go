package scoring

import "github.com/Bizoholic-Digital/leadscore/internal/domain/model"

const (
	meetingPoints  = 12.5
	meetingCap     = 25.0
	proposalPoints = 25.0
	proposalCap    = 25.0
	referralHigh   = 20.0
	referralOther  = 10.0
)

// Response time tiers, fastest first.
var responseTiers = []struct {
	maxHours float64
	points   float64
}{
	{1, 30},
	{4, 25},
	{24, 20},
	{48, 15},
}

const responseSlow = 5.0

var highValueReferrals = []string{
	"partner", "referral", "customer referral", "existing client", "linkedin", "event", "webinar",
}

// Engagement scores two-way interaction: responsiveness, meetings, proposals and referral source.
func Engagement(lead model.LeadRecord) float64 {
	return clip(responsePoints(lead.ResponseTimeHours) +
		capped(float64(lead.MeetingsAttended)*meetingPoints, meetingCap) +
		capped(float64(lead.ProposalRequests)*proposalPoints, proposalCap) +
		referralPoints(model.StringValue(lead.ReferralSource)))
}

func responsePoints(hours *float64) float64 {
	if hours == nil {
		return responseSlow
	}
	for _, t := range responseTiers {
		if *hours <= t.maxHours {
			return t.points
		}
	}
	return responseSlow
}

func referralPoints(source string) float64 {
	if containsAnyPhrase(source, highValueReferrals) {
		return referralHigh
	}
	return referralOther
}
