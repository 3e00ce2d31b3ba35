package model

import "time"

// Metric keys tracked in every projected summary.
const (
	MetricTotalScore            = "total_score"
	MetricConversionProbability = "conversion_probability"
)

// ProjectedSummary is what the engine predicted at estimation time.
type ProjectedSummary struct {
	TotalScore            float64            `json:"total_score"`
	QualificationLevel    QualificationLevel `json:"qualification_level"`
	Confidence            float64            `json:"confidence"`
	ConversionProbability float64            `json:"conversion_probability"`
	Metrics               map[string]float64 `json:"metrics"`
}

// Outcome is what actually happened to the lead.
type Outcome struct {
	Success         bool               `json:"success"`
	RealizedMetrics map[string]float64 `json:"realized_metrics,omitempty"`
	ObservedAt      time.Time          `json:"observed_at"`
}

// CalibrationRecord pairs a projection with its eventual outcome. It is
// created without an outcome and reconciled at most once.
type CalibrationRecord struct {
	EstimationID        string           `json:"estimation_id"`
	LeadID              string           `json:"lead_id"`
	TenantID            string           `json:"tenant_id"`
	Projected           ProjectedSummary `json:"projected"`
	ActualOutcome       *Outcome         `json:"actual_outcome,omitempty"`
	CalibrationAccuracy *float64         `json:"calibration_accuracy,omitempty"`
	RecordedAt          time.Time        `json:"recorded_at"`
	ReconciledAt        *time.Time       `json:"reconciled_at,omitempty"`
}

// Reconciled reports whether an outcome has been attached.
func (r CalibrationRecord) Reconciled() bool {
	return r.ActualOutcome != nil
}

// ProjectFromResult builds the projected summary of a scoring result.
func ProjectFromResult(res ScoringResult) ProjectedSummary {
	p := res.TotalScore / 100
	return ProjectedSummary{
		TotalScore:            res.TotalScore,
		QualificationLevel:    res.QualificationLevel,
		Confidence:            res.Confidence,
		ConversionProbability: p,
		Metrics: map[string]float64{
			MetricTotalScore:            res.TotalScore,
			MetricConversionProbability: p,
		},
	}
}
