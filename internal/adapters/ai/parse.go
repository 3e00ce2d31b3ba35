package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Scores assigned when the answer only names a tier.
var tierScores = map[string]float64{
	"hot":         90,
	"warm":        70,
	"cold":        50,
	"unqualified": 20,
}

var (
	scorePattern      = regexp.MustCompile(`(?i)\b(?:qualification\s+|lead\s+)?score\b[^0-9\n]{0,20}(\d{1,3}(?:\.\d+)?)`)
	confidencePattern = regexp.MustCompile(`(?i)\bconfidence\b[^0-9\n]{0,20}(\d{1,3}(?:\.\d+)?)`)
	tierPattern       = regexp.MustCompile(`(?i)\b(unqualified|hot|warm|cold)\b`)
)

type payload struct {
	Score              *float64 `json:"score"`
	QualificationScore *float64 `json:"qualification_score"`
	LeadScore          *float64 `json:"lead_score"`
	Confidence         *float64 `json:"confidence"`
	Explanation        string   `json:"explanation"`
	Reasoning          string   `json:"reasoning"`
	Rationale          string   `json:"rationale"`
}

// ParseQualification extracts a qualification from model output. It accepts a
// JSON object (optionally fenced or surrounded by prose), then a labelled
// "score: N" line, then a bare tier word.
func ParseQualification(text string) (Qualification, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Qualification{}, ErrEmptyResponse
	}
	if q, ok := parseJSON(text); ok {
		return q.normalize(), nil
	}
	if m := scorePattern.FindStringSubmatch(text); m != nil {
		score, _ := strconv.ParseFloat(m[1], 64)
		return Qualification{
			Score:       score,
			Confidence:  labelledConfidence(text),
			Explanation: text,
		}.normalize(), nil
	}
	if m := tierPattern.FindStringSubmatch(text); m != nil {
		return Qualification{
			Score:       tierScores[strings.ToLower(m[1])],
			Confidence:  labelledConfidence(text),
			Explanation: text,
		}.normalize(), nil
	}
	return Qualification{}, fmt.Errorf("%w: %.80q", ErrUnparseable, text)
}

func parseJSON(text string) (Qualification, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return Qualification{}, false
	}
	var p payload
	if err := json.Unmarshal([]byte(text[start:end+1]), &p); err != nil {
		return Qualification{}, false
	}
	score := firstNonNil(p.Score, p.QualificationScore, p.LeadScore)
	if score == nil {
		return Qualification{}, false
	}
	q := Qualification{
		Score:       *score,
		Confidence:  defaultConfidence,
		Explanation: firstNonEmpty(p.Explanation, p.Reasoning, p.Rationale),
	}
	if p.Confidence != nil {
		q.Confidence = *p.Confidence
	}
	return q, true
}

func labelledConfidence(text string) float64 {
	m := confidencePattern.FindStringSubmatch(text)
	if m == nil {
		return defaultConfidence
	}
	c, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return defaultConfidence
	}
	return c
}

func firstNonNil(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
