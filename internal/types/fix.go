package types

// FixAction is a remediation handle attached to an Issue.
type FixAction struct {
	// ActionID resolves to exactly one registered checker's fix handler.
	ActionID string `json:"action_id"`

	// Label is the user-facing verb phrase (e.g. "Enable Firewall").
	Label string `json:"label"`

	// IsAutoFix marks fixes safe to run without per-invocation confirmation.
	IsAutoFix bool `json:"is_auto_fix"`

	// Destructive marks fixes that must not run without a successful
	// restore point.
	Destructive bool `json:"destructive"`

	// Params is an opaque key/value bag the owning checker defines and
	// validates itself.
	Params map[string]any `json:"params,omitempty"`
}

// Fix-protocol failure reasons carried in FixResult.Reason.
const (
	// ReasonUnknownAction means no registered checker owns the action ID.
	ReasonUnknownAction = "unknown_action"
	// ReasonConfirmationRequired means the caller did not confirm a fix
	// that requires explicit confirmation.
	ReasonConfirmationRequired = "confirmation_required"
	// ReasonCheckpointUnavailable means a destructive fix was refused
	// because no restore point could be created.
	ReasonCheckpointUnavailable = "checkpoint_unavailable"
	// ReasonExecutionFailed means the owning checker's fix ran and failed.
	ReasonExecutionFailed = "execution_failed"
	// ReasonInvalidParams means the checker rejected the supplied params.
	ReasonInvalidParams = "invalid_params"
	// ReasonUnsupported means the fix is not implemented on this platform.
	ReasonUnsupported = "unsupported"
)

// FixResult is the outcome of executing a FixAction.
//
// Invariant: RollbackAvailable == true implies RestorePointID != "".
type FixResult struct {
	// Success reports whether the fix was applied.
	Success bool `json:"success"`

	// Message is a human-readable explanation, required even on failure.
	Message string `json:"message"`

	// Reason is the machine-readable failure code (one of the Reason*
	// constants), empty on success.
	Reason string `json:"reason,omitempty"`

	// RollbackAvailable is true only when a restore point was actually
	// created before the fix executed.
	RollbackAvailable bool `json:"rollback_available"`

	// RestorePointID correlates to the checkpoint provider's restore point.
	RestorePointID string `json:"restore_point_id,omitempty"`
}

// FixSuccess builds a successful FixResult with the given message.
func FixSuccess(message string) FixResult {
	return FixResult{Success: true, Message: message}
}

// FixFailure builds a failed FixResult with a reason code and message.
func FixFailure(reason, message string) FixResult {
	return FixResult{Success: false, Reason: reason, Message: message}
}
