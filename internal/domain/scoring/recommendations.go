package scoring

import "github.com/Bizoholic-Digital/leadscore/internal/domain/model"

// A category scoring below this gets a remediation step.
const weakCategoryThreshold = 50.0

var remediation = map[model.Category]string{
	model.CategoryDemographic:     "Enrich firmographic data: confirm company size, industry and decision-maker title before outreach",
	model.CategoryBehavioral:      "Nurture with targeted content to lift website and email engagement",
	model.CategoryEngagement:      "Book a discovery call to improve responsiveness and move towards a meeting",
	model.CategoryFit:             "Qualify budget, timeline and service needs in the next conversation",
	model.CategoryAIQualification: "Review the AI qualification notes before prioritising this lead",
}

var nextAction = map[model.QualificationLevel]string{
	model.LevelHot:         "Immediate outreach: contact within 24 hours with a tailored proposal",
	model.LevelWarm:        "Follow up within 3 days with a relevant case study",
	model.LevelCold:        "Add to a nurture sequence and re-score after new activity",
	model.LevelUnqualified: "Deprioritise: keep on the long-term marketing list",
}

// Recommendations lists one remediation per weak category, in category order,
// followed by the next action for the tier. The AI category is only considered
// when it was requested.
func Recommendations(b model.ScoreBreakdown, level model.QualificationLevel, aiRequested bool) []string {
	out := make([]string, 0, len(model.Categories)+1)
	for _, c := range model.Categories {
		if c == model.CategoryAIQualification && !aiRequested {
			continue
		}
		if b.Get(c) < weakCategoryThreshold {
			out = append(out, remediation[c])
		}
	}
	if action, ok := nextAction[level]; ok {
		out = append(out, action)
	}
	return out
}
