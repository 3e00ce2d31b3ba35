package scoring

import (
	"fmt"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// FeatureNames is the fixed input order of the classifier.
var FeatureNames = []string{
	"company_size",
	"website_visits",
	"email_opens",
	"content_downloads",
	"response_time_hours",
}

// Scaler standardises features as (x-mean)/scale.
type Scaler struct {
	Mean  []float64 `yaml:"mean" json:"mean"`
	Scale []float64 `yaml:"scale" json:"scale"`
}

// Transform standardises x. A zero scale is treated as 1.
func (s Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return out
}

// LogisticModel is a pre-trained binary classifier loaded from an artifact
// file. It is read-only after load and safe for concurrent use.
type LogisticModel struct {
	Version      string    `yaml:"version" json:"version"`
	Features     []string  `yaml:"features" json:"features"`
	Coefficients []float64 `yaml:"coefficients" json:"coefficients"`
	Intercept    float64   `yaml:"intercept" json:"intercept"`
	Scaler       Scaler    `yaml:"scaler" json:"scaler"`
}

// LoadArtifact reads a YAML (or JSON, which is valid YAML) model file.
func LoadArtifact(path string) (*LogisticModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrInvalidArtifact, path, err)
	}
	var m LogisticModel
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrInvalidArtifact, path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that the artifact matches the fixed feature layout.
func (m *LogisticModel) Validate() error {
	n := len(FeatureNames)
	if len(m.Features) > 0 && !slices.Equal(m.Features, FeatureNames) {
		return fmt.Errorf("%w: features %v, want %v", ErrInvalidArtifact, m.Features, FeatureNames)
	}
	if len(m.Coefficients) != n || len(m.Scaler.Mean) != n || len(m.Scaler.Scale) != n {
		return fmt.Errorf("%w: expected %d coefficients and scaler entries", ErrInvalidArtifact, n)
	}
	for _, v := range append(append(slices.Clone(m.Coefficients), m.Scaler.Mean...), m.Scaler.Scale...) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite parameter", ErrInvalidArtifact)
		}
	}
	return nil
}

// PredictProbability returns P(conversion) for raw, unscaled features.
func (m *LogisticModel) PredictProbability(features []float64) (float64, error) {
	if len(features) != len(m.Coefficients) {
		return 0, fmt.Errorf("%w: got %d features, want %d", ErrInvalidArtifact, len(features), len(m.Coefficients))
	}
	z := m.Intercept
	for i, x := range m.Scaler.Transform(features) {
		z += m.Coefficients[i] * x
	}
	return 1 / (1 + math.Exp(-z)), nil
}
