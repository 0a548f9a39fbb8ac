package checker

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/ancients-collective/vitals/internal/syscmd"
	"github.com/ancients-collective/vitals/internal/types"
)

// Firewall detects a disabled host firewall and can re-enable it.
// On Linux it asks ufw first and falls back to firewalld via systemctl.
type Firewall struct {
	exec *syscmd.Executor
}

// NewFirewall creates the firewall checker using the given command executor.
func NewFirewall(exec *syscmd.Executor) *Firewall {
	return &Firewall{exec: exec}
}

func (f *Firewall) Name() string       { return "firewall" }
func (f *Firewall) Category() Category { return CategorySecurity }
func (f *Firewall) Slow() bool         { return false }

// Actions lists the fixes the firewall checker owns.
func (f *Firewall) Actions() []types.FixAction {
	return []types.FixAction{
		{
			ActionID:  "enable_firewall",
			Label:     "Enable Firewall",
			IsAutoFix: true,
			// Re-enabling a firewall is reversible with one command, so it
			// does not require a restore point.
			Destructive: false,
		},
	}
}

// Run reports a critical issue when no firewall is active.
func (f *Firewall) Run(ctx context.Context, _ types.ScanContext) []types.Issue {
	if runtime.GOOS != "linux" {
		return nil
	}

	active, provider, err := f.detect(ctx)
	if err != nil {
		return []types.Issue{probeFailed(f.Name(), types.ImpactSecurity, err)}
	}

	if active {
		return nil
	}

	return []types.Issue{{
		ID:          "firewall_disabled",
		Severity:    types.SeverityCritical,
		Title:       "Your firewall is off",
		Description: "The firewall protects against network attacks. Having it disabled leaves this machine reachable by anything on the network.",
		Impact:      types.ImpactSecurity,
		Fix: &types.FixAction{
			ActionID:  "enable_firewall",
			Label:     "Enable Firewall",
			IsAutoFix: true,
			Params:    map[string]any{"provider": provider},
		},
	}}
}

// detect returns whether a firewall is active and which provider answered.
func (f *Firewall) detect(ctx context.Context) (active bool, provider string, err error) {
	out, ufwErr := f.exec.Execute(ctx, "ufw", []string{"status"})
	if ufwErr == nil {
		return strings.Contains(string(out), "Status: active"), "ufw", nil
	}

	out, fwErr := f.exec.Execute(ctx, "systemctl", []string{"is-active", "firewalld"})
	if fwErr == nil || strings.TrimSpace(string(out)) != "" {
		return strings.TrimSpace(string(out)) == "active", "firewalld", nil
	}

	return false, "", fmt.Errorf("no supported firewall found: ufw: %v, firewalld: %v", ufwErr, fwErr)
}

// Fix enables the firewall through the provider found at scan time.
func (f *Firewall) Fix(actionID string, params map[string]any) (types.FixResult, error) {
	if actionID != "enable_firewall" {
		return types.FixResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, actionID)
	}
	if runtime.GOOS != "linux" {
		return types.FixResult{}, ErrUnsupported
	}

	provider := "ufw"
	if params != nil {
		if p, err := stringParam(params, "provider"); err == nil && p != "" {
			provider = p
		}
	}

	ctx := context.Background()
	switch provider {
	case "ufw":
		if _, err := f.exec.Execute(ctx, "ufw", []string{"enable"}); err != nil {
			return types.FixFailure(types.ReasonExecutionFailed, fmt.Sprintf("failed to enable ufw: %v", err)), nil
		}
		return types.FixSuccess("Firewall enabled via ufw"), nil
	case "firewalld":
		if _, err := f.exec.Execute(ctx, "systemctl", []string{"start", "firewalld"}); err != nil {
			return types.FixFailure(types.ReasonExecutionFailed, fmt.Sprintf("failed to start firewalld: %v", err)), nil
		}
		return types.FixSuccess("Firewall enabled via firewalld"), nil
	default:
		return types.FixResult{}, fmt.Errorf("%w: unsupported provider %q", ErrInvalidParams, provider)
	}
}
