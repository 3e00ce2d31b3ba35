package calibration

import (
	"math"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
)

// Accuracy compares a projection with what happened.
//
// Each metric present in both the projection and the realised outcome scores
// 1-|actual-projected|/projected, clipped to [0,1]; the overall value is the
// mean. When no metric overlaps, the outcome itself is compared with the
// projected conversion probability: 1-|success-p|.
func Accuracy(projected model.ProjectedSummary, outcome model.Outcome) (float64, map[string]float64) {
	perMetric := make(map[string]float64)
	for key, actual := range outcome.RealizedMetrics {
		want, ok := projected.Metrics[key]
		if !ok {
			continue
		}
		perMetric[key] = metricAccuracy(want, actual)
	}
	if len(perMetric) == 0 {
		actual := 0.0
		if outcome.Success {
			actual = 1
		}
		return clamp01(1 - math.Abs(actual-projected.ConversionProbability)), perMetric
	}
	sum := 0.0
	for _, v := range perMetric {
		sum += v
	}
	return sum / float64(len(perMetric)), perMetric
}

func metricAccuracy(projected, actual float64) float64 {
	if projected == 0 {
		if actual == 0 {
			return 1
		}
		return 0
	}
	return clamp01(1 - math.Abs(actual-projected)/math.Abs(projected))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
