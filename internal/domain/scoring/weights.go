package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
)

const weightSumTolerance = 1e-9

// Weights is the composite weight of each category.
type Weights struct {
	Demographic     float64 `json:"demographic"`
	Behavioral      float64 `json:"behavioral"`
	Engagement      float64 `json:"engagement"`
	Fit             float64 `json:"fit"`
	AIQualification float64 `json:"ai_qualification"`
}

// DefaultWeights returns the production weight table.
func DefaultWeights() Weights {
	return Weights{
		Demographic:     0.25,
		Behavioral:      0.20,
		Engagement:      0.20,
		Fit:             0.15,
		AIQualification: 0.20,
	}
}

// NewWeights overlays overrides, keyed by category name, on the defaults and
// validates the result. A nil or empty map yields the defaults.
func NewWeights(overrides map[string]float64) (Weights, error) {
	w := DefaultWeights()
	var unknown []string
	for k, v := range overrides {
		switch model.Category(strings.ToLower(k)) {
		case model.CategoryDemographic:
			w.Demographic = v
		case model.CategoryBehavioral:
			w.Behavioral = v
		case model.CategoryEngagement:
			w.Engagement = v
		case model.CategoryFit:
			w.Fit = v
		case model.CategoryAIQualification:
			w.AIQualification = v
		default:
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Weights{}, fmt.Errorf("%w: unknown categories %s", ErrInvalidWeights, strings.Join(unknown, ", "))
	}
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}

// Validate checks that every weight is non-negative and that they sum to 1.
func (w Weights) Validate() error {
	sum := 0.0
	for _, c := range model.Categories {
		v := w.Get(c)
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: %s weight %v is negative", ErrInvalidWeights, c, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("%w: weights sum to %.12g, want 1", ErrInvalidWeights, sum)
	}
	return nil
}

// Get returns the weight of category c.
func (w Weights) Get(c model.Category) float64 {
	switch c {
	case model.CategoryDemographic:
		return w.Demographic
	case model.CategoryBehavioral:
		return w.Behavioral
	case model.CategoryEngagement:
		return w.Engagement
	case model.CategoryFit:
		return w.Fit
	case model.CategoryAIQualification:
		return w.AIQualification
	}
	return 0
}

// Composite returns the weighted sum of b, clipped to [0,100].
//
// When the AI category was not requested its weight is spread proportionally
// over the four rule categories. When it was requested, its score (0 after an
// adapter failure) is weighted like any other.
func (w Weights) Composite(b model.ScoreBreakdown, aiRequested bool) float64 {
	total, weightSum := 0.0, 0.0
	for _, c := range model.Categories {
		if c == model.CategoryAIQualification && !aiRequested {
			continue
		}
		total += b.Get(c) * w.Get(c)
		weightSum += w.Get(c)
	}
	if weightSum == 0 {
		return 0
	}
	return clip(total / weightSum)
}
