package checker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/mem"

	"github.com/ancients-collective/vitals/internal/types"
)

const (
	// lowRAMThresholdGB is the installed memory below which the machine
	// is RAM-starved no matter how it is tuned.
	lowRAMThresholdGB = 8.0
	// ramExhaustionPercent is the usage level above which even a
	// well-provisioned machine starts swapping.
	ramExhaustionPercent = 90.0
)

// Bottleneck reports hardware limits no software cleanup can fix: a
// mechanical system disk or too little RAM. It exists to give honest
// upgrade advice instead of promising a tune-up that cannot help.
type Bottleneck struct {
	// sysBlockDir is the sysfs block device root, injectable for tests.
	sysBlockDir string
	// memory is injectable for tests; defaults to gopsutil.
	memory func() (*mem.VirtualMemoryStat, error)
}

// NewBottleneck creates the hardware bottleneck checker.
func NewBottleneck() *Bottleneck {
	return &Bottleneck{
		sysBlockDir: "/sys/block",
		memory:      mem.VirtualMemory,
	}
}

func (b *Bottleneck) Name() string       { return "bottleneck" }
func (b *Bottleneck) Category() Category { return CategoryPerformance }
func (b *Bottleneck) Slow() bool         { return false }

// Actions returns nil: hardware limits have no software fix.
func (b *Bottleneck) Actions() []types.FixAction { return nil }

func (b *Bottleneck) Fix(actionID string, _ map[string]any) (types.FixResult, error) {
	return types.FixResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, actionID)
}

// Run reports mechanical disks and RAM shortages.
func (b *Bottleneck) Run(_ context.Context, _ types.ScanContext) []types.Issue {
	var issues []types.Issue

	if disks := b.rotationalDisks(); len(disks) > 0 {
		issues = append(issues, types.Issue{
			ID:          "bottleneck_mechanical_hdd",
			Severity:    types.SeverityWarning,
			Title:       fmt.Sprintf("Mechanical hard drive detected (%s)", strings.Join(disks, ", ")),
			Description: "A spinning disk is the single biggest slowdown on most machines. No cleanup tool can make it fast; replacing it with an SSD will.",
			Impact:      types.ImpactPerformance,
		})
	}

	vm, err := b.memory()
	if err != nil {
		issues = append(issues, probeFailed(b.Name(), types.ImpactPerformance, err))
		return issues
	}

	totalGB := float64(vm.Total) / (1024 * 1024 * 1024)
	switch {
	case totalGB < lowRAMThresholdGB:
		issues = append(issues, types.Issue{
			ID:          "bottleneck_low_ram",
			Severity:    types.SeverityWarning,
			Title:       fmt.Sprintf("Only %.1f GB of RAM installed", totalGB),
			Description: "With this little memory the system swaps constantly. More RAM is the only real fix; closing applications buys time.",
			Impact:      types.ImpactPerformance,
		})
	case vm.UsedPercent > ramExhaustionPercent:
		issues = append(issues, types.Issue{
			ID:          "bottleneck_ram_exhaustion",
			Severity:    types.SeverityWarning,
			Title:       fmt.Sprintf("Memory is %.0f%% full", vm.UsedPercent),
			Description: "Nearly all RAM is in use. Close applications you are not using; so-called memory optimizers will not help.",
			Impact:      types.ImpactPerformance,
		})
	}

	return issues
}

// rotationalDisks lists physical block devices whose sysfs rotational
// flag is set. Virtual devices (loop, ram, device-mapper) are skipped:
// their flag says nothing about the hardware underneath.
func (b *Bottleneck) rotationalDisks() []string {
	entries, err := os.ReadDir(b.sysBlockDir)
	if err != nil {
		return nil
	}

	var disks []string
	for _, e := range entries {
		name := e.Name()
		if isVirtualBlockDevice(name) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(b.sysBlockDir, name, "queue", "rotational"))
		if err != nil {
			continue
		}
		if string(bytes.TrimSpace(data)) == "1" {
			disks = append(disks, name)
		}
	}
	return disks
}

func isVirtualBlockDevice(name string) bool {
	for _, prefix := range []string{"loop", "ram", "zram", "dm-", "sr", "md", "nbd"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
