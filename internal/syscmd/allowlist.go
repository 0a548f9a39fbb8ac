// Package syscmd executes a fixed allowlist of external probe and
// remediation commands with validated arguments and per-command timeouts.
package syscmd

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandSpec defines the constraints for an allowlisted command.
type CommandSpec struct {
	// Path is the resolved absolute path to the command binary.
	// Resolved at construction time via exec.LookPath, with a hardcoded fallback.
	Path string

	// FallbackPath is the hardcoded path used when LookPath fails.
	FallbackPath string

	// AllowedFlags are the flags/subcommands that can be passed.
	AllowedFlags []string

	// MaxArgs is the maximum number of positional (non-flag) arguments allowed.
	MaxArgs int

	// Timeout is the maximum execution time for this command.
	Timeout time.Duration
}

// Executor executes only pre-approved commands with validated arguments.
// This is the boundary that prevents checkers and fixes from running
// arbitrary commands.
type Executor struct {
	allowlist map[string]CommandSpec
}

// resolveCommandPath attempts to find the command using exec.LookPath.
// Falls back to the provided default path if LookPath fails.
func resolveCommandPath(name, fallbackPath string) string {
	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	return fallbackPath
}

// NewExecutor creates an executor with the default allowlist covering every
// probe and fix command vitals ships. Command paths are resolved via
// exec.LookPath at construction time, with hardcoded fallback paths for
// systems where the binary isn't in PATH.
func NewExecutor() *Executor {
	type entry struct {
		name         string
		fallbackPath string
		allowedFlags []string
		maxArgs      int
		timeout      time.Duration
	}

	entries := []entry{
		// Probes.
		{"ss", "/usr/bin/ss", []string{"-tlnp", "-tln", "-t", "-l", "-n", "-p"}, 0, 3 * time.Second},
		{"ufw", "/usr/sbin/ufw", []string{"status", "enable", "deny"}, 1, 5 * time.Second},
		{"systemctl", "/usr/bin/systemctl", []string{"is-active", "is-enabled", "start"}, 2, 5 * time.Second},
		{"smartctl", "/usr/sbin/smartctl", []string{"-H", "--health", "--scan"}, 1, 10 * time.Second},
		// Fixes.
		{"resolvectl", "/usr/bin/resolvectl", []string{"flush-caches", "statistics"}, 0, 5 * time.Second},
		{"apt-get", "/usr/bin/apt-get", []string{"update", "upgrade", "-y"}, 0, 300 * time.Second},
		{"firewall-cmd", "/usr/bin/firewall-cmd", []string{"--permanent", "--reload", "--remove-port="}, 0, 10 * time.Second},
		{"timeshift", "/usr/bin/timeshift", []string{"--create", "--comments", "--scripted"}, 1, 120 * time.Second},
	}

	allowlist := make(map[string]CommandSpec, len(entries))
	for _, e := range entries {
		allowlist[e.name] = CommandSpec{
			Path:         resolveCommandPath(e.name, e.fallbackPath),
			FallbackPath: e.fallbackPath,
			AllowedFlags: e.allowedFlags,
			MaxArgs:      e.maxArgs,
			Timeout:      e.timeout,
		}
	}

	return &Executor{allowlist: allowlist}
}

// IsAllowed checks whether a command is in the allowlist.
func (e *Executor) IsAllowed(cmd string) bool {
	_, ok := e.allowlist[cmd]
	return ok
}

// Execute runs an allowlisted command with validated arguments.
// Returns stdout output or an error. Never uses shell invocation.
func (e *Executor) Execute(ctx context.Context, cmd string, args []string) ([]byte, error) {
	spec, ok := e.allowlist[cmd]
	if !ok {
		return nil, fmt.Errorf("command %q not in allowlist", cmd)
	}

	if err := validateArgs(spec, args); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, spec.Timeout)
	defer cancel()

	execCmd := exec.CommandContext(ctx, spec.Path, args...)
	output, err := execCmd.Output()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("command %q timed out after %v", cmd, spec.Timeout)
	}

	return output, err
}

// validateArgs checks that all arguments comply with the CommandSpec constraints.
func validateArgs(spec CommandSpec, args []string) error {
	positionalCount := 0

	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			if !isAllowedFlag(spec.AllowedFlags, arg) {
				return fmt.Errorf("flag %q not allowed for this command (allowed: %s)",
					arg, strings.Join(spec.AllowedFlags, ", "))
			}
		} else if !isAllowedFlag(spec.AllowedFlags, arg) {
			// Subcommands ("status", "enable", "flush-caches") are listed
			// in AllowedFlags; anything else counts as positional.
			positionalCount++
		}
	}

	if positionalCount > spec.MaxArgs {
		return fmt.Errorf("too many positional arguments: got %d, max %d",
			positionalCount, spec.MaxArgs)
	}

	return nil
}

// isAllowedFlag checks if a flag is in the allowed list. An entry ending
// in "=" matches any flag with that prefix, for key=value style flags
// like --remove-port=3389/tcp.
func isAllowedFlag(allowed []string, flag string) bool {
	for _, f := range allowed {
		if f == flag {
			return true
		}
		if strings.HasSuffix(f, "=") && strings.HasPrefix(flag, f) {
			return true
		}
	}
	return false
}
