package checker

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/ancients-collective/vitals/internal/types"
)

const (
	// cpuHogPercent is the per-process CPU usage above which we warn.
	cpuHogPercent = 50.0
	// memoryHogMB is the per-process resident memory above which we inform.
	memoryHogMB = 2048.0
)

// systemProcesses are never reported: killing them takes the machine down
// with it.
var systemProcesses = []string{
	"systemd", "kthreadd", "init", "dbus-daemon", "kernel_task",
	"launchd", "Xorg", "gnome-shell", "sshd",
}

// Processes reports applications hogging CPU or memory.
type Processes struct {
	// list is injectable for tests; defaults to gopsutil's process table.
	list func(ctx context.Context) ([]procSample, error)
}

// procSample is the subset of process state the checker looks at.
type procSample struct {
	PID      int32
	Name     string
	CPU      float64
	MemoryMB float64
}

// NewProcesses creates the process checker backed by gopsutil.
func NewProcesses() *Processes {
	return &Processes{list: gopsutilSamples}
}

// gopsutilSamples reads the live process table. Per-process read errors
// are skipped: processes come and go mid-enumeration.
func gopsutilSamples(ctx context.Context) ([]procSample, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	samples := make([]procSample, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		sample := procSample{PID: p.Pid, Name: name}
		if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
			sample.CPU = cpu
		}
		if mi, err := p.MemoryInfoWithContext(ctx); err == nil && mi != nil {
			sample.MemoryMB = float64(mi.RSS) / (1024 * 1024)
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

func (c *Processes) Name() string       { return "process" }
func (c *Processes) Category() Category { return CategoryPerformance }
func (c *Processes) Slow() bool         { return false }

func (c *Processes) Actions() []types.FixAction {
	return []types.FixAction{
		{
			ActionID:    "kill_process",
			Label:       "Stop Process",
			IsAutoFix:   false,
			Destructive: false, // unsaved work is the user's call, not a system mutation
		},
		{
			ActionID:    "restart_process",
			Label:       "Restart Process",
			IsAutoFix:   false,
			Destructive: false,
		},
	}
}

// Run reports non-system processes exceeding the CPU or memory thresholds.
func (c *Processes) Run(ctx context.Context, _ types.ScanContext) []types.Issue {
	samples, err := c.list(ctx)
	if err != nil {
		return []types.Issue{probeFailed(c.Name(), types.ImpactPerformance, err)}
	}

	var issues []types.Issue
	for _, p := range samples {
		if isSystemProcess(p.Name) {
			continue
		}

		if p.CPU > cpuHogPercent {
			issues = append(issues, types.Issue{
				ID:          "high_cpu_" + sanitizeID(p.Name),
				Severity:    types.SeverityWarning,
				Title:       fmt.Sprintf("%s is using %.0f%% CPU", p.Name, p.CPU),
				Description: "This application is consuming significant CPU, which slows everything else down and drains battery.",
				Impact:      types.ImpactPerformance,
				Fix: &types.FixAction{
					ActionID: "kill_process",
					Label:    "Stop Process",
					Params:   map[string]any{"pid": int(p.PID), "name": p.Name},
				},
			})
		}

		if p.MemoryMB > memoryHogMB {
			issues = append(issues, types.Issue{
				ID:          "high_memory_" + sanitizeID(p.Name),
				Severity:    types.SeverityInfo,
				Title:       fmt.Sprintf("%s is using %.1f GB of memory", p.Name, p.MemoryMB/1024),
				Description: "This application holds a lot of memory. Restarting it usually releases it.",
				Impact:      types.ImpactPerformance,
				Fix: &types.FixAction{
					ActionID: "restart_process",
					Label:    "Restart Process",
					Params:   map[string]any{"pid": int(p.PID), "name": p.Name},
				},
			})
		}
	}
	return issues
}

// Fix stops or restarts the named process after verifying the PID still
// belongs to it — PIDs get recycled between scan and fix.
func (c *Processes) Fix(actionID string, params map[string]any) (types.FixResult, error) {
	if actionID != "kill_process" && actionID != "restart_process" {
		return types.FixResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, actionID)
	}

	pid, err := intParam(params, "pid")
	if err != nil {
		return types.FixResult{}, err
	}
	name, err := stringParam(params, "name")
	if err != nil {
		return types.FixResult{}, err
	}
	if isSystemProcess(name) {
		return types.FixResult{}, fmt.Errorf("%w: refusing to stop system process %q", ErrInvalidParams, name)
	}

	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return types.FixFailure(types.ReasonExecutionFailed,
			fmt.Sprintf("process %d is no longer running", pid)), nil
	}
	current, err := p.Name()
	if err != nil || current != name {
		return types.FixFailure(types.ReasonExecutionFailed,
			fmt.Sprintf("PID %d no longer belongs to %s; re-scan and try again", pid, name)), nil
	}

	// The command line has to be read before termination; afterwards
	// there is nothing left to read.
	var argv []string
	if actionID == "restart_process" {
		argv, err = commandLine(p)
		if err != nil {
			return types.FixFailure(types.ReasonExecutionFailed,
				fmt.Sprintf("cannot determine how to relaunch %s: %v", name, err)), nil
		}
	}

	if err := p.Terminate(); err != nil {
		return types.FixFailure(types.ReasonExecutionFailed,
			fmt.Sprintf("failed to stop %s: %v", name, err)), nil
	}

	if actionID == "kill_process" {
		return types.FixSuccess(fmt.Sprintf("Sent stop signal to %s (PID %d)", name, pid)), nil
	}

	if err := relaunch(argv); err != nil {
		return types.FixFailure(types.ReasonExecutionFailed,
			fmt.Sprintf("stopped %s but failed to relaunch it: %v", name, err)), nil
	}
	return types.FixSuccess(fmt.Sprintf("Restarted %s; its memory has been released", name)), nil
}

// commandLine reads the argv of a running process, falling back to the
// executable path when the command line is unreadable.
func commandLine(p *process.Process) ([]string, error) {
	if argv, err := p.CmdlineSlice(); err == nil && len(argv) > 0 {
		return argv, nil
	}
	exe, err := p.Exe()
	if err != nil {
		return nil, err
	}
	return []string{exe}, nil
}

// relaunch starts the command detached so it outlives the scanner.
func relaunch(argv []string) error {
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

// isSystemProcess reports whether the name matches the protected list.
func isSystemProcess(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range systemProcesses {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// sanitizeID normalizes a process name into an issue ID fragment.
func sanitizeID(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '.', r == '-', r == '_':
			b.WriteByte('_')
		}
	}
	return b.String()
}
