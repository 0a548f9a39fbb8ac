package checker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/disk"

	"github.com/ancients-collective/vitals/internal/syscmd"
	"github.com/ancients-collective/vitals/internal/types"
)

const (
	// diskCriticalPercent is the usage level where writes start failing soon.
	diskCriticalPercent = 95.0
	// diskWarningPercent is the usage level worth cleaning up at.
	diskWarningPercent = 85.0
	// tempFileMaxAge is how old a temp file must be before cleanup removes it.
	tempFileMaxAge = 7 * 24 * time.Hour
)

// Disk reports nearly-full filesystems and failing SMART health, and can
// clean up old temporary files.
type Disk struct {
	exec     *syscmd.Executor
	tempDirs []string
}

// NewDisk creates the disk checker. Extra temp directories may be
// supplied for tests; the default is the system temp directory.
func NewDisk(exec *syscmd.Executor, tempDirs ...string) *Disk {
	if len(tempDirs) == 0 {
		tempDirs = []string{os.TempDir()}
	}
	return &Disk{exec: exec, tempDirs: tempDirs}
}

func (d *Disk) Name() string       { return "disk" }
func (d *Disk) Category() Category { return CategoryPerformance }
func (d *Disk) Slow() bool         { return false }

func (d *Disk) Actions() []types.FixAction {
	return []types.FixAction{
		{
			ActionID:    "clean_temp_files",
			Label:       "Clean Temporary Files",
			IsAutoFix:   true,
			Destructive: true,
		},
	}
}

// Run reports full filesystems and SMART failures.
func (d *Disk) Run(ctx context.Context, _ types.ScanContext) []types.Issue {
	var issues []types.Issue

	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return []types.Issue{probeFailed(d.Name(), types.ImpactPerformance, err)}
	}

	for _, part := range partitions {
		usage, err := disk.UsageWithContext(ctx, part.Mountpoint)
		if err != nil || usage.Total == 0 {
			continue
		}

		var severity types.Severity
		switch {
		case usage.UsedPercent >= diskCriticalPercent:
			severity = types.SeverityCritical
		case usage.UsedPercent >= diskWarningPercent:
			severity = types.SeverityWarning
		default:
			continue
		}

		issues = append(issues, types.Issue{
			ID:       "disk_low_space_" + sanitizeID(part.Mountpoint),
			Severity: severity,
			Title:    fmt.Sprintf("%s is %.0f%% full", part.Mountpoint, usage.UsedPercent),
			Description: fmt.Sprintf(
				"Only %.1f GB free of %.1f GB. A nearly full disk slows the whole system and can corrupt data when it fills completely.",
				float64(usage.Free)/1e9, float64(usage.Total)/1e9),
			Impact: types.ImpactPerformance,
			Fix: &types.FixAction{
				ActionID:    "clean_temp_files",
				Label:       "Clean Temporary Files",
				IsAutoFix:   true,
				Destructive: true,
			},
		})
	}

	issues = append(issues, d.smartIssues(ctx)...)
	return issues
}

// smartIssues checks SMART health for each detected device. Missing
// smartctl or no devices is not a finding.
func (d *Disk) smartIssues(ctx context.Context) []types.Issue {
	out, err := d.exec.Execute(ctx, "smartctl", []string{"--scan"})
	if err != nil {
		return nil
	}

	var issues []types.Issue
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || !strings.HasPrefix(fields[0], "/dev/") {
			continue
		}
		device := fields[0]

		health, err := d.exec.Execute(ctx, "smartctl", []string{"-H", device})
		if err != nil && len(health) == 0 {
			continue
		}
		if strings.Contains(string(health), "FAILED") {
			issues = append(issues, types.Issue{
				ID:          "disk_smart_failure",
				Severity:    types.SeverityCritical,
				Title:       fmt.Sprintf("Drive %s reports imminent failure", device),
				Description: "SMART self-monitoring predicts this drive will fail. Back up your data now and replace the drive.",
				Impact:      types.ImpactPerformance,
			})
		}
	}
	return issues
}

// Fix removes temp files older than tempFileMaxAge. Individual unlink
// failures (files owned by other users) are counted, not fatal.
func (d *Disk) Fix(actionID string, _ map[string]any) (types.FixResult, error) {
	if actionID != "clean_temp_files" {
		return types.FixResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, actionID)
	}

	cutoff := time.Now().Add(-tempFileMaxAge)
	removed, freed := 0, int64(0)

	for _, dir := range d.tempDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil || info.IsDir() || info.ModTime().After(cutoff) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err == nil {
				removed++
				freed += info.Size()
			}
		}
	}

	return types.FixSuccess(fmt.Sprintf(
		"Removed %d old temporary files, freeing %.1f MB", removed, float64(freed)/1e6)), nil
}
