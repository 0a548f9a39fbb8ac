// Package checker defines the detection/remediation capability contract
// and the concrete checkers vitals ships.
package checker

import (
	"context"
	"errors"
	"fmt"

	"github.com/ancients-collective/vitals/internal/types"
)

// Category is the coarse bucket a checker belongs to. It is distinct from
// an Issue's finer impact category.
type Category string

const (
	// CategorySecurity checkers run when ScanOptions.Security is set.
	CategorySecurity Category = "security"
	// CategoryPerformance checkers run when ScanOptions.Performance is set.
	CategoryPerformance Category = "performance"
)

// Typed fix errors. Checkers return these (wrapped or bare) so the fix
// coordinator can surface a specific failure reason instead of a
// success-shaped failure.
var (
	// ErrUnknownAction means the action ID does not belong to this checker.
	ErrUnknownAction = errors.New("unknown fix action")
	// ErrInvalidParams means the supplied params failed the checker's validation.
	ErrInvalidParams = errors.New("invalid fix parameters")
	// ErrUnsupported means the fix is not implemented on this platform.
	ErrUnsupported = errors.New("fix not supported on this platform")
)

// Checker encapsulates one detection and remediation concern.
//
// Run must not panic across its boundary and must not block past the
// engine's per-checker timeout: any internal failure (missing tool,
// permission denied, parse error) is caught locally and produces either
// zero issues or a single info-severity issue describing the check's own
// failure. One broken checker can never abort a scan.
type Checker interface {
	// Name is the stable checker identifier used in logs and registration.
	Name() string

	// Category is the coarse security/performance bucket.
	Category() Category

	// Slow marks checkers excluded from quick scans (network requests,
	// large filesystem walks).
	Slow() bool

	// Run detects issues. The scan context is read-only.
	Run(ctx context.Context, sc types.ScanContext) []types.Issue

	// Actions lists the fix actions this checker owns. The engine builds
	// its action-to-checker index from this at registration time.
	Actions() []types.FixAction

	// Fix executes one of this checker's actions synchronously. It
	// validates that actionID and params belong to it before touching
	// system state and returns a typed error for invalid, unauthorized,
	// or unsupported input.
	Fix(actionID string, params map[string]any) (types.FixResult, error)
}

// probeFailed builds the single info issue a checker emits when its own
// probe fails. impact follows the checker's category so the degradation
// is visible in the matching score.
func probeFailed(checkerName string, impact types.ImpactCategory, err error) types.Issue {
	return types.Issue{
		ID:          checkerName + "_probe_failed",
		Severity:    types.SeverityInfo,
		Title:       fmt.Sprintf("The %s check could not complete", checkerName),
		Description: fmt.Sprintf("The check failed and its findings are incomplete: %v", err),
		Impact:      impact,
	}
}

// stringParam extracts a required string parameter from a fix params bag.
func stringParam(params map[string]any, key string) (string, error) {
	val, ok := params[key]
	if !ok {
		return "", fmt.Errorf("%w: missing required parameter %q", ErrInvalidParams, key)
	}

	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%w: parameter %q must be a string, got %T", ErrInvalidParams, key, val)
	}

	return str, nil
}

// intParam extracts a required integer parameter from a fix params bag.
// Handles int, int64, and float64 (common from JSON unmarshaling).
func intParam(params map[string]any, key string) (int, error) {
	val, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing required parameter %q", ErrInvalidParams, key)
	}

	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("%w: parameter %q must be a number, got %T", ErrInvalidParams, key, val)
	}
}
