// Package scoring turns a lead record into category scores, a weighted
// composite, a qualification tier and follow-up recommendations.
//
// Every function here is pure: no I/O, no blocking, no shared mutable state.
// The only external input is the optional AI assessment handed to Engine.Score.
package scoring

import (
	"math"
	"strings"
	"unicode"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
)

const (
	minScore = 0.0
	maxScore = 100.0
)

// CategoryScorer scores one category of a lead in [0,100].
type CategoryScorer func(model.LeadRecord) float64

// Rule scorers in reporting order. AI qualification is not rule based.
var ruleScorers = []struct {
	category model.Category
	score    CategoryScorer
}{
	{model.CategoryDemographic, Demographic},
	{model.CategoryBehavioral, Behavioral},
	{model.CategoryEngagement, Engagement},
	{model.CategoryFit, Fit},
}

// RuleBreakdown runs the four deterministic scorers. AIQualification is left at 0.
func RuleBreakdown(lead model.LeadRecord) model.ScoreBreakdown {
	var b model.ScoreBreakdown
	for _, rs := range ruleScorers {
		v := rs.score(lead)
		switch rs.category {
		case model.CategoryDemographic:
			b.Demographic = v
		case model.CategoryBehavioral:
			b.Behavioral = v
		case model.CategoryEngagement:
			b.Engagement = v
		case model.CategoryFit:
			b.Fit = v
		}
	}
	return b
}

func clip(v float64) float64 {
	if math.IsNaN(v) {
		return minScore
	}
	return math.Max(minScore, math.Min(maxScore, v))
}

func capped(v, limit float64) float64 {
	return math.Min(v, limit)
}

// tokens lower-cases s and splits it on anything that is not a letter or digit.
func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// normalize lower-cases s and collapses separators to single spaces.
func normalize(s string) string {
	return strings.Join(tokens(s), " ")
}

// containsPhrase reports whether the token sequence of phrase appears in text.
func containsPhrase(text, phrase string) bool {
	t := " " + normalize(text) + " "
	p := normalize(phrase)
	if p == "" {
		return false
	}
	return strings.Contains(t, " "+p+" ")
}

func containsAnyPhrase(text string, phrases []string) bool {
	for _, p := range phrases {
		if containsPhrase(text, p) {
			return true
		}
	}
	return false
}
