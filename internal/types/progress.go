package types

// ProgressKind identifies a progress event emitted during a scan.
type ProgressKind string

const (
	// ProgressStarted is emitted once when the scan begins.
	ProgressStarted ProgressKind = "started"
	// ProgressCheckerStarted is emitted before each checker runs.
	ProgressCheckerStarted ProgressKind = "checker_started"
	// ProgressCheckerFinished is emitted after each checker returns.
	ProgressCheckerFinished ProgressKind = "checker_finished"
	// ProgressComplete is emitted once when the scan ends.
	ProgressComplete ProgressKind = "complete"
	// ProgressAborted is emitted instead of complete when the scan is
	// cancelled between checkers. Every started scan ends with exactly
	// one terminal event, complete or aborted.
	ProgressAborted ProgressKind = "aborted"
)

// ProgressEvent is an ordered, observational notification from the scanner
// engine. It is not part of the data contract: a scan is valid with zero
// subscribers.
type ProgressEvent struct {
	// Kind is the event type.
	Kind ProgressKind `json:"kind"`

	// ScanID is set on started, complete, and aborted events.
	ScanID string `json:"scan_id,omitempty"`

	// Checker is the checker name on checker_started/checker_finished.
	Checker string `json:"checker,omitempty"`

	// Issues is the number of issues the checker emitted, on
	// checker_finished.
	Issues int `json:"issues,omitempty"`

	// DurationMS is the total scan duration, on complete.
	DurationMS int64 `json:"duration_ms,omitempty"`
}
