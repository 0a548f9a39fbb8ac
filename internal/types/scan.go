package types

import "time"

// ScanOptions selects what a scan covers.
type ScanOptions struct {
	// Security enables security-category checkers.
	Security bool `json:"security"`

	// Performance enables performance-category checkers.
	Performance bool `json:"performance"`

	// Quick skips checkers flagged as slow so the scan has a bounded,
	// predictable worst-case duration.
	Quick bool `json:"quick"`

	// ExcludeApps skips installed-application analysis.
	ExcludeApps bool `json:"exclude_apps"`

	// ExcludeStartup skips startup-item analysis.
	ExcludeStartup bool `json:"exclude_startup"`
}

// DefaultScanOptions returns a full scan: both categories, nothing excluded.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{Security: true, Performance: true}
}

// ScanContext is the immutable per-scan configuration handed to every
// checker. Checkers must treat it as read-only.
type ScanContext struct {
	Options ScanOptions
}

// Scores holds the two aggregate scores and their deltas vs. the prior scan.
type Scores struct {
	// Health is the security score, 0-100.
	Health int `json:"health"`

	// Speed is the performance score, 0-100.
	Speed int `json:"speed"`

	// HealthDelta is health minus the prior scan's health. Nil when no
	// prior scan exists.
	HealthDelta *int `json:"health_delta,omitempty"`

	// SpeedDelta is speed minus the prior scan's speed. Nil when no
	// prior scan exists.
	SpeedDelta *int `json:"speed_delta,omitempty"`
}

// SystemInfo describes the scanned machine.
type SystemInfo struct {
	// Hostname is the system hostname.
	Hostname string `json:"hostname"`

	// OS is the operating system name (e.g. "linux", "darwin").
	OS string `json:"os"`

	// OSVersion is the kernel or platform version string.
	OSVersion string `json:"os_version,omitempty"`

	// Arch is the CPU architecture.
	Arch string `json:"arch"`

	// CPUCount is the number of logical CPUs.
	CPUCount int `json:"cpu_count,omitempty"`

	// MemoryTotalMB is total physical memory in megabytes.
	MemoryTotalMB uint64 `json:"memory_total_mb,omitempty"`

	// UptimeHours is system uptime in whole hours.
	UptimeHours uint64 `json:"uptime_hours,omitempty"`
}

// ScanResult is the final output of one scan invocation. It is immutable
// once returned by the engine.
type ScanResult struct {
	// ScanID is an opaque unique token for this scan.
	ScanID string `json:"scan_id"`

	// Timestamp is when the scan started.
	Timestamp time.Time `json:"timestamp"`

	// DurationMS is the elapsed scan time in milliseconds.
	DurationMS int64 `json:"duration_ms"`

	// System describes the scanned machine.
	System SystemInfo `json:"system"`

	// Scores holds the aggregate health and speed scores.
	Scores Scores `json:"scores"`

	// Issues is the ordered issue list: checker registration order,
	// then emission order within a checker.
	Issues []Issue `json:"issues"`
}

// CountBySeverity returns how many issues carry the given severity.
func (r *ScanResult) CountBySeverity(s Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == s {
			n++
		}
	}
	return n
}
