package model

import "time"

// Category names a scoring dimension.
type Category string

// The five scoring categories, in reporting order.
const (
	CategoryDemographic     Category = "demographic"
	CategoryBehavioral      Category = "behavioral"
	CategoryEngagement      Category = "engagement"
	CategoryFit             Category = "fit"
	CategoryAIQualification Category = "ai_qualification"
)

// Categories lists every category in reporting order.
var Categories = []Category{
	CategoryDemographic,
	CategoryBehavioral,
	CategoryEngagement,
	CategoryFit,
	CategoryAIQualification,
}

// QualificationLevel is the coarse sales-readiness tier.
type QualificationLevel string

const (
	LevelUnqualified QualificationLevel = "unqualified"
	LevelCold        QualificationLevel = "cold"
	LevelWarm        QualificationLevel = "warm"
	LevelHot         QualificationLevel = "hot"
)

// Levels lists the tiers from lowest to highest.
var Levels = []QualificationLevel{LevelUnqualified, LevelCold, LevelWarm, LevelHot}

// Valid reports whether q is one of the four tiers.
func (q QualificationLevel) Valid() bool {
	switch q {
	case LevelUnqualified, LevelCold, LevelWarm, LevelHot:
		return true
	}
	return false
}

// ScoreBreakdown holds one score per category, each in [0,100].
type ScoreBreakdown struct {
	Demographic     float64 `json:"demographic"`
	Behavioral      float64 `json:"behavioral"`
	Engagement      float64 `json:"engagement"`
	Fit             float64 `json:"fit"`
	AIQualification float64 `json:"ai_qualification"`
}

// Get returns the score of category c. Unknown categories score 0.
func (b ScoreBreakdown) Get(c Category) float64 {
	switch c {
	case CategoryDemographic:
		return b.Demographic
	case CategoryBehavioral:
		return b.Behavioral
	case CategoryEngagement:
		return b.Engagement
	case CategoryFit:
		return b.Fit
	case CategoryAIQualification:
		return b.AIQualification
	}
	return 0
}

// Map returns the keyed view of the breakdown.
func (b ScoreBreakdown) Map() map[Category]float64 {
	m := make(map[Category]float64, len(Categories))
	for _, c := range Categories {
		m[c] = b.Get(c)
	}
	return m
}

// ScoringResult is the immutable outcome of scoring one lead.
type ScoringResult struct {
	LeadID             string             `json:"lead_id"`
	TenantID           string             `json:"tenant_id,omitempty"`
	Scores             ScoreBreakdown     `json:"scores"`
	TotalScore         float64            `json:"total_score"`
	QualificationLevel QualificationLevel `json:"qualification_level"`
	Recommendations    []string           `json:"recommendations"`
	Confidence         float64            `json:"confidence"`
	ComputedAt         time.Time          `json:"computed_at"`

	// Audit trail.
	RuleScore     float64 `json:"rule_score"`
	AIEvaluated   bool    `json:"ai_evaluated"`
	AIExplanation string  `json:"ai_explanation,omitempty"`
	Blended       bool    `json:"blended"`
	ScoreVersion  string  `json:"score_version"`
}
