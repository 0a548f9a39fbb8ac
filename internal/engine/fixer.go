package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ancients-collective/vitals/internal/checker"
	"github.com/ancients-collective/vitals/internal/checkpoint"
	"github.com/ancients-collective/vitals/internal/types"
)

// FixPolicy configures the coordinator's confirmation behavior.
type FixPolicy struct {
	// RequireConfirmation forces the confirmation gate even for actions
	// marked auto-fixable.
	RequireConfirmation bool
}

// ownedAction pairs a fix action descriptor with the checker that owns it.
type ownedAction struct {
	action types.FixAction
	owner  checker.Checker
}

// Coordinator enforces the fix safety protocol:
//
//	Requested → Validated → Confirmed → Checkpointed → Executed → Reported
//
// Every transition is total: any invalid input exits early with a
// FixResult carrying a specific failure reason, never a fault. Fix
// requests are serialized — at most one fix executes at a time.
type Coordinator struct {
	mu       sync.Mutex
	provider checkpoint.Provider
	policy   FixPolicy
	actions  map[string]ownedAction
}

// NewCoordinator creates a coordinator using the given checkpoint
// provider. A nil provider behaves like one that always fails: it blocks
// destructive fixes.
func NewCoordinator(provider checkpoint.Provider, policy FixPolicy) *Coordinator {
	if provider == nil {
		provider = checkpoint.Disabled{}
	}
	return &Coordinator{
		provider: provider,
		policy:   policy,
		actions:  make(map[string]ownedAction),
	}
}

// registerActions indexes a checker's fix actions. Called by the engine
// at registration time; a duplicate action ID across checkers is a
// configuration error.
func (co *Coordinator) registerActions(c checker.Checker) error {
	for _, action := range c.Actions() {
		if action.ActionID == "" {
			return fmt.Errorf("checker %q declares a fix action with an empty ID", c.Name())
		}
		if prev, exists := co.actions[action.ActionID]; exists {
			return fmt.Errorf("duplicate fix action %q: owned by both %q and %q",
				action.ActionID, prev.owner.Name(), c.Name())
		}
		co.actions[action.ActionID] = ownedAction{action: action, owner: c}
	}
	return nil
}

// ActionIDs returns the registered fix action IDs, for diagnostics and
// did-you-mean suggestions.
func (co *Coordinator) ActionIDs() []string {
	ids := make([]string, 0, len(co.actions))
	for id := range co.actions {
		ids = append(ids, id)
	}
	return ids
}

// Fix runs the safety protocol for one action. It always returns a
// FixResult; failures carry a reason code and never propagate as faults.
func (co *Coordinator) Fix(ctx context.Context, actionID string, params map[string]any, confirmed bool) types.FixResult {
	co.mu.Lock()
	defer co.mu.Unlock()

	// Validated: resolve the owning checker.
	oa, ok := co.actions[actionID]
	if !ok {
		return types.FixFailure(types.ReasonUnknownAction,
			fmt.Sprintf("no checker owns fix action %q", actionID))
	}

	// Confirmed: the gate is per-invocation — there is no remembered
	// consent inside the coordinator.
	if (!oa.action.IsAutoFix || co.policy.RequireConfirmation) && !confirmed {
		return types.FixFailure(types.ReasonConfirmationRequired,
			fmt.Sprintf("%q requires explicit confirmation before it runs", oa.action.Label))
	}

	// Checkpointed: destructive fixes refuse to run without a restore
	// point rather than silently skipping the safety net.
	restorePointID, cpErr := co.provider.Create(ctx)
	if cpErr != nil {
		if oa.action.Destructive {
			return types.FixFailure(types.ReasonCheckpointUnavailable,
				fmt.Sprintf("refusing to run destructive fix %q without a restore point: %v",
					oa.action.Label, cpErr))
		}
		restorePointID = ""
	}

	// Executed: checker faults become failed results, never panics.
	result := executeFix(oa.owner, actionID, params)

	// Reported: rollback availability truthfully reflects the checkpoint.
	if restorePointID != "" {
		result.RollbackAvailable = true
		result.RestorePointID = restorePointID
	}
	return result
}

// executeFix invokes the owning checker's fix under panic recovery and
// converts typed errors into reason codes.
func executeFix(owner checker.Checker, actionID string, params map[string]any) (result types.FixResult) {
	defer func() {
		if r := recover(); r != nil {
			result = types.FixFailure(types.ReasonExecutionFailed,
				fmt.Sprintf("fix %q failed internally: %v", actionID, r))
		}
	}()

	result, err := owner.Fix(actionID, params)
	if err != nil {
		return types.FixFailure(fixErrorReason(err), err.Error())
	}
	if result.Message == "" {
		result.Message = "fix completed"
	}
	return result
}

// fixErrorReason maps a checker's typed fix error to a reason code.
func fixErrorReason(err error) string {
	switch {
	case errors.Is(err, checker.ErrUnknownAction):
		return types.ReasonUnknownAction
	case errors.Is(err, checker.ErrInvalidParams):
		return types.ReasonInvalidParams
	case errors.Is(err, checker.ErrUnsupported):
		return types.ReasonUnsupported
	default:
		return types.ReasonExecutionFailed
	}
}
