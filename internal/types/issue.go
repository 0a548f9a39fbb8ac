// Package types defines shared type definitions used across all vitals packages.
package types

// Severity indicates how serious a detected issue is.
type Severity string

const (
	// SeverityCritical means the issue needs attention now.
	SeverityCritical Severity = "critical"
	// SeverityWarning means the issue degrades security or speed but is not urgent.
	SeverityWarning Severity = "warning"
	// SeverityInfo means the issue is advisory only.
	SeverityInfo Severity = "info"
)

// Rank returns the sort rank of a severity: critical sorts first.
// Unknown severities rank after info.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// Valid reports whether s is one of the closed severity values.
func (s Severity) Valid() bool {
	return s.Rank() < 3
}

// ImpactCategory names which score an issue deducts from.
type ImpactCategory string

const (
	// ImpactSecurity deducts from the health score.
	ImpactSecurity ImpactCategory = "security"
	// ImpactPerformance deducts from the speed score.
	ImpactPerformance ImpactCategory = "performance"
	// ImpactPrivacy is reported but deducts from neither score.
	ImpactPrivacy ImpactCategory = "privacy"
	// ImpactBoth deducts the full amount from each score independently.
	ImpactBoth ImpactCategory = "both"
)

// Valid reports whether c is one of the closed impact categories.
func (c ImpactCategory) Valid() bool {
	switch c {
	case ImpactSecurity, ImpactPerformance, ImpactPrivacy, ImpactBoth:
		return true
	default:
		return false
	}
}

// Issue is one detected problem.
type Issue struct {
	// ID is the stable issue key (e.g. "firewall_disabled"), unique per
	// check kind. Used for deduplication, scoring weights, and fix routing.
	ID string `json:"id"`

	// Severity is the issue severity.
	Severity Severity `json:"severity"`

	// Title is a short human-readable summary, fixed at emission time.
	Title string `json:"title"`

	// Description explains the problem and why it matters.
	Description string `json:"description"`

	// Impact names which score the issue deducts from.
	Impact ImpactCategory `json:"impact_category"`

	// Fix is the optional remediation handle. Nil means the issue is
	// detectable but not auto-remediable.
	Fix *FixAction `json:"fix,omitempty"`
}
