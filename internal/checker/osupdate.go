package checker

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strconv"

	"github.com/ancients-collective/vitals/internal/syscmd"
	"github.com/ancients-collective/vitals/internal/types"
)

// updatesAvailablePattern matches the first count in update-notifier's
// "N updates can be applied immediately." summary.
var updatesAvailablePattern = regexp.MustCompile(`(\d+) update`)

// OSUpdate reports pending OS updates and a pending reboot. It reads the
// update-notifier state files instead of talking to the package manager,
// so the probe is fast enough for quick scans.
type OSUpdate struct {
	exec        *syscmd.Executor
	updatesFile string
	rebootFile  string
}

// NewOSUpdate creates the OS update checker reading the standard state
// file locations.
func NewOSUpdate(exec *syscmd.Executor) *OSUpdate {
	return &OSUpdate{
		exec:        exec,
		updatesFile: "/var/lib/update-notifier/updates-available",
		rebootFile:  "/var/run/reboot-required",
	}
}

func (u *OSUpdate) Name() string       { return "osupdate" }
func (u *OSUpdate) Category() Category { return CategorySecurity }
func (u *OSUpdate) Slow() bool         { return false }

func (u *OSUpdate) Actions() []types.FixAction {
	return []types.FixAction{
		{
			ActionID:  "install_updates",
			Label:     "Install Updates",
			IsAutoFix: false,
			// A package upgrade changes system state broadly; run it only
			// behind a restore point.
			Destructive: true,
		},
	}
}

// Run reports pending updates and a required reboot.
func (u *OSUpdate) Run(_ context.Context, _ types.ScanContext) []types.Issue {
	var issues []types.Issue

	if count := u.pendingUpdates(); count > 0 {
		severity := types.SeverityWarning
		if count > 5 {
			severity = types.SeverityCritical
		}
		issues = append(issues, types.Issue{
			ID:          "os_updates_pending",
			Severity:    severity,
			Title:       fmt.Sprintf("%d OS updates are waiting", count),
			Description: "Updates often include security patches. Install them from your package manager or software updater.",
			Impact:      types.ImpactSecurity,
			Fix: &types.FixAction{
				ActionID:    "install_updates",
				Label:       "Install Updates",
				IsAutoFix:   false,
				Destructive: true,
				Params:      map[string]any{"count": count},
			},
		})
	}

	if _, err := os.Stat(u.rebootFile); err == nil {
		issues = append(issues, types.Issue{
			ID:          "reboot_required",
			Severity:    types.SeverityWarning,
			Title:       "A restart is required to finish updates",
			Description: "Installed updates are not active until the machine restarts.",
			Impact:      types.ImpactSecurity,
		})
	}

	return issues
}

// pendingUpdates parses the update count from the notifier state file.
// A missing or unparsable file means zero: not every distro writes it.
func (u *OSUpdate) pendingUpdates() int {
	data, err := os.ReadFile(u.updatesFile)
	if err != nil {
		return 0
	}
	m := updatesAvailablePattern.FindSubmatch(data)
	if m == nil {
		return 0
	}
	count, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0
	}
	return count
}

// Fix applies pending updates via apt. Refreshing the package index
// first keeps the upgrade from acting on stale state.
func (u *OSUpdate) Fix(actionID string, _ map[string]any) (types.FixResult, error) {
	if actionID != "install_updates" {
		return types.FixResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, actionID)
	}
	if runtime.GOOS != "linux" {
		return types.FixResult{}, ErrUnsupported
	}

	ctx := context.Background()
	if _, err := u.exec.Execute(ctx, "apt-get", []string{"update"}); err != nil {
		return types.FixFailure(types.ReasonExecutionFailed,
			fmt.Sprintf("failed to refresh the package index: %v", err)), nil
	}
	if _, err := u.exec.Execute(ctx, "apt-get", []string{"upgrade", "-y"}); err != nil {
		return types.FixFailure(types.ReasonExecutionFailed,
			fmt.Sprintf("failed to install updates: %v", err)), nil
	}

	return types.FixSuccess("Updates installed. Restart the machine if a reboot notice appears."), nil
}
