// Package model contains domain models passed between layers.
package model

import "time"

// LeadRecord is the input profile of one prospect. Optional attributes are
// pointers; a nil value means the signal was never captured.
type LeadRecord struct {
	LeadID   string `json:"lead_id" yaml:"lead_id" validate:"required,max=128"`
	TenantID string `json:"tenant_id,omitempty" yaml:"tenant_id" validate:"max=128"`

	// Demographic
	CompanySize *int    `json:"company_size,omitempty" yaml:"company_size" validate:"omitempty,gte=0"`
	Industry    *string `json:"industry,omitempty" yaml:"industry"`
	JobTitle    *string `json:"job_title,omitempty" yaml:"job_title"`
	Location    *string `json:"location,omitempty" yaml:"location"`

	// Fit
	Budget              *float64 `json:"budget,omitempty" yaml:"budget" validate:"omitempty,gte=0"`
	Timeline            *string  `json:"timeline,omitempty" yaml:"timeline"`
	ServiceRequirements []string `json:"service_requirements,omitempty" yaml:"service_requirements"`

	// Behavioural counters
	WebsiteVisits     int     `json:"website_visits" yaml:"website_visits" validate:"gte=0"`
	PagesViewed       int     `json:"pages_viewed" yaml:"pages_viewed" validate:"gte=0"`
	TimeOnSiteSeconds float64 `json:"time_on_site_seconds" yaml:"time_on_site_seconds" validate:"gte=0"`
	EmailOpens        int     `json:"email_opens" yaml:"email_opens" validate:"gte=0"`
	EmailClicks       int     `json:"email_clicks" yaml:"email_clicks" validate:"gte=0"`
	ContentDownloads  int     `json:"content_downloads" yaml:"content_downloads" validate:"gte=0"`
	FormSubmissions   int     `json:"form_submissions" yaml:"form_submissions" validate:"gte=0"`

	// Engagement
	ResponseTimeHours *float64 `json:"response_time_hours,omitempty" yaml:"response_time_hours" validate:"omitempty,gte=0"`
	MeetingsAttended  int      `json:"meetings_attended" yaml:"meetings_attended" validate:"gte=0"`
	ProposalRequests  int      `json:"proposal_requests" yaml:"proposal_requests" validate:"gte=0"`
	ReferralSource    *string  `json:"referral_source,omitempty" yaml:"referral_source"`

	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at" yaml:"last_activity_at"`
}

// OptionalSignalCount is the number of optional attributes used for data completeness.
const OptionalSignalCount = 8

// Completeness returns the fraction of optional signals present, in [0,1].
func (l LeadRecord) Completeness() float64 {
	present := 0
	for _, ok := range []bool{
		l.CompanySize != nil,
		nonEmpty(l.Industry),
		nonEmpty(l.JobTitle),
		nonEmpty(l.Location),
		l.Budget != nil,
		nonEmpty(l.Timeline),
		l.ResponseTimeHours != nil,
		nonEmpty(l.ReferralSource),
	} {
		if ok {
			present++
		}
	}
	return float64(present) / OptionalSignalCount
}

// StringValue dereferences s, returning "" for nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonEmpty(s *string) bool { return s != nil && *s != "" }

// Ptr returns a pointer to v. Handy when building leads by hand.
func Ptr[T any](v T) *T { return &v }
