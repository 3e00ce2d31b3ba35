package scoring

import (
	"errors"
	"time"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
)

// RulesVersion labels results produced by this rule set.
const RulesVersion = "rules-v1"

// AIAssessment is the outcome of the optional AI qualification step.
type AIAssessment struct {
	// Requested puts the AI category into the composite.
	Requested bool
	// Succeeded is false when the adapter failed; Score is then 0.
	Succeeded   bool
	Score       float64
	Confidence  float64
	Explanation string
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeights replaces the default weight table. It is validated by NewEngine.
func WithWeights(w Weights) Option {
	return func(e *Engine) { e.weights = w }
}

// WithBlender enables classifier blending.
func WithBlender(b *Blender) Option {
	return func(e *Engine) { e.blender = b }
}

// WithFixedAIWeight keeps the AI weight in the composite even when AI was not
// requested, so the total is always the plain weighted sum with AI at 0.
// By default the AI weight is spread over the rule categories instead.
func WithFixedAIWeight(fixed bool) Option {
	return func(e *Engine) { e.fixedAIWeight = fixed }
}

// WithClock overrides the time source used for ComputedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine combines category scores into a ScoringResult.
type Engine struct {
	weights       Weights
	blender       *Blender
	now           func() time.Time
	fixedAIWeight bool
}

// NewEngine builds an Engine and rejects invalid weights.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{weights: DefaultWeights(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.weights.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Weights returns the weight table in use.
func (e *Engine) Weights() Weights { return e.weights }

// Blending reports whether a classifier is configured.
func (e *Engine) Blending() bool { return e.blender != nil }

// Score builds the result for a validated lead. The result is always usable;
// a non-nil error (wrapping ErrBlendSkipped) only reports that the classifier
// failed and the rule composite was kept.
func (e *Engine) Score(lead model.LeadRecord, ai AIAssessment) (model.ScoringResult, error) {
	b := RuleBreakdown(lead)
	if ai.Requested && ai.Succeeded {
		b.AIQualification = clip(ai.Score)
	}

	rule := e.weights.Composite(b, ai.Requested || e.fixedAIWeight)
	total := rule
	version := RulesVersion
	blended := false

	p, err := e.blender.Probability(lead)
	switch {
	case err == nil:
		total = Blend(rule, p)
		blended = true
		version += "+" + e.blender.Version()
	case errors.Is(err, ErrNoClassifier):
		err = nil
	}

	level := Qualify(total)
	res := model.ScoringResult{
		LeadID:             lead.LeadID,
		TenantID:           lead.TenantID,
		Scores:             b,
		TotalScore:         total,
		QualificationLevel: level,
		Recommendations:    Recommendations(b, level, ai.Requested),
		Confidence:         confidence(lead, ai),
		ComputedAt:         e.now().UTC(),
		RuleScore:          rule,
		AIEvaluated:        ai.Requested && ai.Succeeded,
		AIExplanation:      ai.Explanation,
		Blended:            blended,
		ScoreVersion:       version,
	}
	return res, err
}

// confidence is data completeness, averaged with the AI confidence when the AI answered.
func confidence(lead model.LeadRecord, ai AIAssessment) float64 {
	c := lead.Completeness()
	if ai.Requested && ai.Succeeded {
		c = (c + clip01(ai.Confidence)) / 2
	}
	return clip01(c)
}

func clip01(v float64) float64 {
	return clip(v*maxScore) / maxScore
}
