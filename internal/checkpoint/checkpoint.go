// Package checkpoint creates system restore points before destructive fixes.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/ancients-collective/vitals/internal/syscmd"
)

// ErrUnavailable means no restore-point mechanism exists on this system.
var ErrUnavailable = errors.New("no restore point mechanism available")

// Provider creates a restore point and returns its identifier.
type Provider interface {
	Create(ctx context.Context) (string, error)
}

// snapshotIDPattern extracts the snapshot name from timeshift's
// "Created ... snapshot: 2026-08-30_10-00-01" style output.
var snapshotIDPattern = regexp.MustCompile(`snapshot[^\w]*([\w-]+)`)

// Timeshift drives the timeshift CLI through the command allowlist.
type Timeshift struct {
	exec *syscmd.Executor
}

// NewTimeshift creates the timeshift-backed provider.
func NewTimeshift(exec *syscmd.Executor) *Timeshift {
	return &Timeshift{exec: exec}
}

// Create takes a snapshot and returns its identifier. When the output
// does not carry a snapshot name, a timestamp-based ID is returned so
// the result still correlates to the newest snapshot in `timeshift --list`.
func (t *Timeshift) Create(ctx context.Context) (string, error) {
	out, err := t.exec.Execute(ctx, "timeshift",
		[]string{"--create", "--comments", "vitals pre-fix checkpoint", "--scripted"})
	if err != nil {
		return "", fmt.Errorf("timeshift snapshot failed: %w", err)
	}

	if m := snapshotIDPattern.FindSubmatch(out); m != nil {
		return string(m[1]), nil
	}
	return time.Now().UTC().Format("2006-01-02_15-04-05"), nil
}

// Disabled always fails with ErrUnavailable. Used on platforms without a
// snapshot tool; destructive fixes are then refused by the coordinator.
type Disabled struct{}

// Create always returns ErrUnavailable.
func (Disabled) Create(context.Context) (string, error) {
	return "", ErrUnavailable
}
