package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ancients-collective/vitals/internal/types"
)

func issue(id string, sev types.Severity, impact types.ImpactCategory) types.Issue {
	return types.Issue{ID: id, Severity: sev, Title: id, Impact: impact}
}

func TestScore_NoIssues(t *testing.T) {
	scores := NewScorer(nil).Score(nil)

	assert.Equal(t, 100, scores.Health)
	assert.Equal(t, 100, scores.Speed)
}

func TestScore_CriticalSecurityIssue(t *testing.T) {
	scores := NewScorer(nil).Score([]types.Issue{
		issue("firewall_disabled", types.SeverityCritical, types.ImpactSecurity),
	})

	assert.Equal(t, 80, scores.Health)
	assert.Equal(t, 100, scores.Speed)
}

func TestScore_WarningBothDeductsFullFromEach(t *testing.T) {
	scores := NewScorer(nil).Score([]types.Issue{
		issue("disk_low_space_root", types.SeverityWarning, types.ImpactBoth),
	})

	assert.Equal(t, 90, scores.Health)
	assert.Equal(t, 90, scores.Speed)
}

func TestScore_InfoIssue(t *testing.T) {
	scores := NewScorer(nil).Score([]types.Issue{
		issue("bloatware_startup_spotify", types.SeverityInfo, types.ImpactPerformance),
	})

	assert.Equal(t, 100, scores.Health)
	assert.Equal(t, 98, scores.Speed)
}

func TestScore_PrivacyDeductsNothing(t *testing.T) {
	scores := NewScorer(nil).Score([]types.Issue{
		issue("telemetry_enabled", types.SeverityWarning, types.ImpactPrivacy),
	})

	assert.Equal(t, 100, scores.Health)
	assert.Equal(t, 100, scores.Speed)
}

func TestScore_WeightMultiplies(t *testing.T) {
	scorer := NewScorer(map[string]float64{"firewall_disabled": 2.0})
	scores := scorer.Score([]types.Issue{
		issue("firewall_disabled", types.SeverityCritical, types.ImpactSecurity),
	})

	assert.Equal(t, 60, scores.Health)
	assert.Equal(t, 100, scores.Speed)
}

func TestScore_UnknownIDUsesWeightOne(t *testing.T) {
	scorer := NewScorer(map[string]float64{"some_other_issue": 5.0})
	scores := scorer.Score([]types.Issue{
		issue("never_seen_before", types.SeverityWarning, types.ImpactSecurity),
	})

	assert.Equal(t, 90, scores.Health)
}

func TestScore_ClampsAtZero(t *testing.T) {
	var issues []types.Issue
	for i := 0; i < 6; i++ {
		issues = append(issues, issue("crit", types.SeverityCritical, types.ImpactSecurity))
	}
	scores := NewScorer(nil).Score(issues)

	assert.Equal(t, 0, scores.Health)
	assert.Equal(t, 100, scores.Speed)
}

func TestScore_MonotonicUnderAddedIssues(t *testing.T) {
	scorer := NewScorer(map[string]float64{"a": 1.0, "b": 1.0})
	issues := []types.Issue{
		issue("a", types.SeverityWarning, types.ImpactSecurity),
	}
	before := scorer.Score(issues)

	issues = append(issues, issue("b", types.SeverityInfo, types.ImpactBoth))
	after := scorer.Score(issues)

	assert.LessOrEqual(t, after.Health, before.Health)
	assert.LessOrEqual(t, after.Speed, before.Speed)
}

func TestScore_OrderIndependent(t *testing.T) {
	issues := []types.Issue{
		issue("a", types.SeverityCritical, types.ImpactSecurity),
		issue("b", types.SeverityWarning, types.ImpactPerformance),
		issue("c", types.SeverityInfo, types.ImpactBoth),
		issue("d", types.SeverityWarning, types.ImpactBoth),
		issue("e", types.SeverityInfo, types.ImpactPrivacy),
	}
	scorer := NewScorer(map[string]float64{"a": 1.5, "c": 0.5})
	want := scorer.Score(issues)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := make([]types.Issue, len(issues))
		copy(shuffled, issues)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		assert.Equal(t, want, scorer.Score(shuffled))
	}
}

func TestScore_AlwaysInBounds(t *testing.T) {
	severities := []types.Severity{types.SeverityCritical, types.SeverityWarning, types.SeverityInfo}
	impacts := []types.ImpactCategory{
		types.ImpactSecurity, types.ImpactPerformance, types.ImpactPrivacy, types.ImpactBoth,
	}

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		var issues []types.Issue
		for i := 0; i < rng.Intn(30); i++ {
			issues = append(issues, issue("x",
				severities[rng.Intn(len(severities))],
				impacts[rng.Intn(len(impacts))]))
		}

		scores := NewScorer(map[string]float64{"x": rng.Float64() * 10}).Score(issues)
		assert.GreaterOrEqual(t, scores.Health, 0)
		assert.LessOrEqual(t, scores.Health, 100)
		assert.GreaterOrEqual(t, scores.Speed, 0)
		assert.LessOrEqual(t, scores.Speed, 100)
	}
}
