package engine

import (
	"math"

	"github.com/ancients-collective/vitals/internal/types"
)

// Severity base deductions. The per-issue weight multiplies these.
const (
	deductCritical = 20.0
	deductWarning  = 10.0
	deductInfo     = 2.0
)

// Scorer converts an issue list into the health and speed scores.
//
// The function is deliberately linear: per-issue deductions are
// commutative and monotonic, so permuting the issue order never changes
// the scores and adding an issue never raises one. That is what makes a
// future concurrent checker pipeline safe without observable score drift.
type Scorer struct {
	weights map[string]float64
}

// NewScorer creates a scorer with the given weight table. Issue IDs
// absent from the table score with weight 1.0.
func NewScorer(weights map[string]float64) *Scorer {
	if weights == nil {
		weights = map[string]float64{}
	}
	return &Scorer{weights: weights}
}

// Score computes both scores from the issue list. Both start at 100;
// each issue deducts base×weight from health when its impact is security
// or both, and from speed when its impact is performance or both. An
// issue tagged both deducts the full amount from each score. Privacy
// issues are reported but deduct from neither. Scores clamp to [0, 100]
// after all deductions and round to the nearest integer.
func (s *Scorer) Score(issues []types.Issue) types.Scores {
	health, speed := 100.0, 100.0

	for _, issue := range issues {
		weight := 1.0
		if w, ok := s.weights[issue.ID]; ok {
			weight = w
		}

		deduction := severityDeduction(issue.Severity) * weight

		if issue.Impact == types.ImpactSecurity || issue.Impact == types.ImpactBoth {
			health -= deduction
		}
		if issue.Impact == types.ImpactPerformance || issue.Impact == types.ImpactBoth {
			speed -= deduction
		}
	}

	return types.Scores{
		Health: clampScore(health),
		Speed:  clampScore(speed),
	}
}

// severityDeduction returns the base deduction for a severity.
func severityDeduction(s types.Severity) float64 {
	switch s {
	case types.SeverityCritical:
		return deductCritical
	case types.SeverityWarning:
		return deductWarning
	case types.SeverityInfo:
		return deductInfo
	default:
		return 0
	}
}

// clampScore bounds a raw score to [0, 100] and rounds to the nearest int.
func clampScore(score float64) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(math.Round(score))
}
