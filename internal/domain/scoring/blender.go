package scoring

import (
	"fmt"
	"math"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
)

// Blend mix between the rule composite and the classifier probability.
const (
	ruleBlendWeight  = 0.7
	modelBlendWeight = 0.3

	defaultResponseHours = 24.0
)

// Classifier predicts a conversion probability from the feature vector.
type Classifier interface {
	PredictProbability(features []float64) (float64, error)
}

// Blender adjusts rule scores with a statistical classifier. A nil *Blender
// is valid and never blends.
type Blender struct {
	classifier Classifier
	version    string
}

// NewBlender wraps c. version labels results produced with it.
func NewBlender(c Classifier, version string) *Blender {
	if version == "" {
		version = "model"
	}
	return &Blender{classifier: c, version: version}
}

// Version returns the classifier version label.
func (b *Blender) Version() string {
	if b == nil {
		return ""
	}
	return b.version
}

// Features builds the classifier input for lead in FeatureNames order.
func Features(lead model.LeadRecord) []float64 {
	size := 0.0
	if lead.CompanySize != nil {
		size = float64(*lead.CompanySize)
	}
	response := defaultResponseHours
	if lead.ResponseTimeHours != nil {
		response = *lead.ResponseTimeHours
	}
	return []float64{
		size,
		float64(lead.WebsiteVisits),
		float64(lead.EmailOpens),
		float64(lead.ContentDownloads),
		response,
	}
}

// Probability returns the classifier probability for lead. It returns
// ErrNoClassifier when no classifier is configured.
func (b *Blender) Probability(lead model.LeadRecord) (float64, error) {
	if b == nil || b.classifier == nil {
		return 0, ErrNoClassifier
	}
	p, err := b.classifier.PredictProbability(Features(lead))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBlendSkipped, err)
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("%w: probability %v out of range", ErrBlendSkipped, p)
	}
	return p, nil
}

// Blend mixes a rule composite with a probability: 0.7*rule + 0.3*p*100.
func Blend(ruleTotal, probability float64) float64 {
	return clip(ruleBlendWeight*ruleTotal + modelBlendWeight*probability*maxScore)
}
