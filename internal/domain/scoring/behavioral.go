package scoring

import "github.com/Bizoholic-Digital/leadscore/internal/domain/model"

// Behavioral scores on-site and email activity. Each signal has its own cap.
func Behavioral(lead model.LeadRecord) float64 {
	minutes := lead.TimeOnSiteSeconds / 60
	return clip(capped(float64(lead.WebsiteVisits)*2, 20) +
		capped(float64(lead.PagesViewed), 10) +
		capped(minutes, 10) +
		capped(float64(lead.EmailOpens)*3, 15) +
		capped(float64(lead.EmailClicks)*5, 15) +
		capped(float64(lead.ContentDownloads)*10, 20) +
		capped(float64(lead.FormSubmissions)*5, 10))
}
