package scoring

import "github.com/Bizoholic-Digital/leadscore/internal/domain/model"

// Tier thresholds on the composite score.
const (
	HotThreshold  = 80.0
	WarmThreshold = 60.0
	ColdThreshold = 40.0
)

// Qualify maps a composite score onto its tier.
func Qualify(total float64) model.QualificationLevel {
	switch {
	case total >= HotThreshold:
		return model.LevelHot
	case total >= WarmThreshold:
		return model.LevelWarm
	case total >= ColdThreshold:
		return model.LevelCold
	default:
		return model.LevelUnqualified
	}
}
