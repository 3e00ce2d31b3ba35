package model

// LeadUpdate lists every attribute an ingestion collaborator may change on a
// lead. Nil fields are left untouched; non-nil fields replace the current value.
type LeadUpdate struct {
	CompanySize         *int      `json:"company_size,omitempty"`
	Industry            *string   `json:"industry,omitempty"`
	JobTitle            *string   `json:"job_title,omitempty"`
	Location            *string   `json:"location,omitempty"`
	Budget              *float64  `json:"budget,omitempty"`
	Timeline            *string   `json:"timeline,omitempty"`
	ServiceRequirements *[]string `json:"service_requirements,omitempty"`

	WebsiteVisits     *int     `json:"website_visits,omitempty"`
	PagesViewed       *int     `json:"pages_viewed,omitempty"`
	TimeOnSiteSeconds *float64 `json:"time_on_site_seconds,omitempty"`
	EmailOpens        *int     `json:"email_opens,omitempty"`
	EmailClicks       *int     `json:"email_clicks,omitempty"`
	ContentDownloads  *int     `json:"content_downloads,omitempty"`
	FormSubmissions   *int     `json:"form_submissions,omitempty"`

	ResponseTimeHours *float64 `json:"response_time_hours,omitempty"`
	MeetingsAttended  *int     `json:"meetings_attended,omitempty"`
	ProposalRequests  *int     `json:"proposal_requests,omitempty"`
	ReferralSource    *string  `json:"referral_source,omitempty"`
}

// IsZero reports whether the update changes nothing.
func (u LeadUpdate) IsZero() bool {
	return u == (LeadUpdate{})
}

// Apply returns a copy of lead with the update applied. lead itself is not modified.
func (u LeadUpdate) Apply(lead LeadRecord) LeadRecord {
	out := lead
	if lead.ServiceRequirements != nil {
		out.ServiceRequirements = append([]string(nil), lead.ServiceRequirements...)
	}

	setPtr(&out.CompanySize, u.CompanySize)
	setPtr(&out.Industry, u.Industry)
	setPtr(&out.JobTitle, u.JobTitle)
	setPtr(&out.Location, u.Location)
	setPtr(&out.Budget, u.Budget)
	setPtr(&out.Timeline, u.Timeline)
	if u.ServiceRequirements != nil {
		out.ServiceRequirements = append([]string(nil), (*u.ServiceRequirements)...)
	}

	setVal(&out.WebsiteVisits, u.WebsiteVisits)
	setVal(&out.PagesViewed, u.PagesViewed)
	setVal(&out.TimeOnSiteSeconds, u.TimeOnSiteSeconds)
	setVal(&out.EmailOpens, u.EmailOpens)
	setVal(&out.EmailClicks, u.EmailClicks)
	setVal(&out.ContentDownloads, u.ContentDownloads)
	setVal(&out.FormSubmissions, u.FormSubmissions)

	setPtr(&out.ResponseTimeHours, u.ResponseTimeHours)
	setVal(&out.MeetingsAttended, u.MeetingsAttended)
	setVal(&out.ProposalRequests, u.ProposalRequests)
	setPtr(&out.ReferralSource, u.ReferralSource)
	return out
}

func setPtr[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

func setVal[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
