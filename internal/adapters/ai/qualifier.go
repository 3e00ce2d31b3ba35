// Package ai asks an external language model to qualify a lead and turns its
// free-form answer into a score.
package ai

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
)

// Provider names accepted by New.
const (
	ProviderNone      = "none"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

const defaultConfidence = 0.5

// Request carries everything the model sees about a lead.
type Request struct {
	Lead model.LeadRecord
	// Scores holds the rule categories computed before the AI step.
	Scores            model.ScoreBreakdown
	AdditionalMetrics map[string]float64
}

// Qualification is the parsed model answer.
type Qualification struct {
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// Qualifier produces an AI qualification for a lead.
type Qualifier interface {
	Qualify(ctx context.Context, req Request) (Qualification, error)
}

// RateBudget is implemented by qualifiers that pace their calls. Burst is the
// number of calls that may start at once.
type RateBudget interface {
	Burst() int
}

// Config selects and configures a provider.
type Config struct {
	Provider      string
	APIKey        string
	Model         string
	BaseURL       string
	RatePerMinute int
	Burst         int
}

// New builds the configured qualifier wrapped in a rate limiter. It returns
// nil for ProviderNone.
func New(ctx context.Context, cfg Config) (Qualifier, error) {
	var (
		q   Qualifier
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderNone:
		return nil, nil
	case ProviderOpenAI:
		q, err = NewOpenAIQualifier(cfg)
	case ProviderAnthropic:
		q, err = NewAnthropicQualifier(cfg)
	case ProviderGemini:
		q, err = NewGeminiQualifier(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewRateLimited(q, cfg.RatePerMinute, cfg.Burst), nil
}

// normalize clips the score to [0,100] and the confidence to [0,1]. A
// confidence above 1 is read as a percentage.
func (q Qualification) normalize() Qualification {
	if math.IsNaN(q.Score) {
		q.Score = 0
	}
	q.Score = math.Max(0, math.Min(100, q.Score))
	if math.IsNaN(q.Confidence) {
		q.Confidence = defaultConfidence
	}
	if q.Confidence > 1 {
		q.Confidence /= 100
	}
	q.Confidence = math.Max(0, math.Min(1, q.Confidence))
	q.Explanation = strings.TrimSpace(q.Explanation)
	return q
}
