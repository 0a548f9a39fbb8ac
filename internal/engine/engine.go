// Package engine orchestrates scans: it owns the checker registry, runs
// checkers in isolation, scores the merged findings, and coordinates the
// fix safety protocol.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ancients-collective/vitals/internal/checker"
	"github.com/ancients-collective/vitals/internal/history"
	"github.com/ancients-collective/vitals/internal/sysinfo"
	"github.com/ancients-collective/vitals/internal/types"
)

// defaultCheckerTimeout bounds a single checker's run. A timed-out
// checker is a degraded result, not a scan failure.
const defaultCheckerTimeout = 30 * time.Second

// CheckerInfo describes a registered checker for discovery.
type CheckerInfo struct {
	Name     string           `json:"name"`
	Category checker.Category `json:"category"`
	Slow     bool             `json:"slow"`
}

// Listener receives ordered progress events during a scan.
type Listener func(types.ProgressEvent)

// Engine runs scans over an ordered, write-once checker registry.
//
// One mutex serializes everything that observes or mutates system state:
// no two scans overlap, and no fix runs concurrently with a scan.
type Engine struct {
	mu sync.Mutex

	checkers    []checker.Checker
	names       map[string]bool
	scorer      *Scorer
	store       history.Store
	coordinator *Coordinator
	listeners   []Listener

	// CheckerTimeout is the per-checker run bound. Set before the first
	// scan; tests shorten it.
	CheckerTimeout time.Duration
}

// New creates an engine. store may be nil (no deltas, nothing persisted).
func New(scorer *Scorer, store history.Store, coordinator *Coordinator) *Engine {
	if scorer == nil {
		scorer = NewScorer(nil)
	}
	if coordinator == nil {
		coordinator = NewCoordinator(nil, FixPolicy{})
	}
	return &Engine{
		names:          make(map[string]bool),
		scorer:         scorer,
		store:          store,
		coordinator:    coordinator,
		CheckerTimeout: defaultCheckerTimeout,
	}
}

// Register appends a checker to the registry. A duplicate checker name or
// fix action ID is a configuration error: the engine must not enter
// service. Registration happens at startup only, never mid-scan.
func (e *Engine) Register(c checker.Checker) error {
	name := c.Name()
	if name == "" {
		return fmt.Errorf("checker has an empty name")
	}
	if e.names[name] {
		return fmt.Errorf("duplicate checker name %q", name)
	}
	if err := e.coordinator.registerActions(c); err != nil {
		return err
	}

	e.names[name] = true
	e.checkers = append(e.checkers, c)
	return nil
}

// Subscribe adds a progress listener. Scans are valid with zero listeners.
func (e *Engine) Subscribe(l Listener) {
	e.listeners = append(e.listeners, l)
}

// Checkers lists the registered checkers in registration order.
func (e *Engine) Checkers() []CheckerInfo {
	infos := make([]CheckerInfo, 0, len(e.checkers))
	for _, c := range e.checkers {
		infos = append(infos, CheckerInfo{Name: c.Name(), Category: c.Category(), Slow: c.Slow()})
	}
	return infos
}

// ActionIDs lists the registered fix action IDs.
func (e *Engine) ActionIDs() []string {
	return e.coordinator.ActionIDs()
}

// Scan runs every enabled checker in registration order and returns the
// aggregated, scored result. A single failing, panicking, or hanging
// checker never aborts the scan. The only error paths are caller
// cancellation between checkers and nothing else.
func (e *Engine) Scan(ctx context.Context, opts types.ScanOptions) (*types.ScanResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	scanID := uuid.NewString()
	e.notify(types.ProgressEvent{Kind: types.ProgressStarted, ScanID: scanID})

	sc := types.ScanContext{Options: opts}
	var issues []types.Issue

	for _, c := range e.checkers {
		// Cooperative cancellation between checker invocations; a checker
		// already running is bounded by its timeout, not interrupted.
		if err := ctx.Err(); err != nil {
			e.notify(types.ProgressEvent{Kind: types.ProgressAborted, ScanID: scanID})
			return nil, err
		}
		if !shouldRun(c, opts) {
			continue
		}

		e.notify(types.ProgressEvent{Kind: types.ProgressCheckerStarted, ScanID: scanID, Checker: c.Name()})
		found := e.runChecker(ctx, c, sc)
		issues = append(issues, found...)
		e.notify(types.ProgressEvent{
			Kind: types.ProgressCheckerFinished, ScanID: scanID,
			Checker: c.Name(), Issues: len(found),
		})
	}

	scores := e.scorer.Score(issues)
	e.applyDeltas(&scores)

	result := &types.ScanResult{
		ScanID:     scanID,
		Timestamp:  start.UTC(),
		DurationMS: time.Since(start).Milliseconds(),
		System:     sysinfo.Collect(),
		Scores:     scores,
		Issues:     issues,
	}

	if e.store != nil {
		// Best effort: a history write failure degrades deltas on the
		// next scan, it does not fail this one.
		_ = e.store.Save(result)
	}

	e.notify(types.ProgressEvent{
		Kind: types.ProgressComplete, ScanID: scanID, DurationMS: result.DurationMS,
	})
	return result, nil
}

// FixIssue runs the fix safety protocol for one action. It shares the
// engine mutex with Scan so a fix never mutates the system mid-scan.
func (e *Engine) FixIssue(ctx context.Context, actionID string, params map[string]any, confirmed bool) types.FixResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coordinator.Fix(ctx, actionID, params, confirmed)
}

// shouldRun applies the category and quick-scan filters.
func shouldRun(c checker.Checker, opts types.ScanOptions) bool {
	switch c.Category() {
	case checker.CategorySecurity:
		if !opts.Security {
			return false
		}
	case checker.CategoryPerformance:
		if !opts.Performance {
			return false
		}
	}
	if opts.Quick && c.Slow() {
		return false
	}
	return true
}

// runChecker executes one checker under the per-checker timeout with
// panic recovery. A timeout or panic yields a single info issue in place
// of the checker's findings. The goroutine of a hung checker is left to
// finish on its own; its late result is discarded.
func (e *Engine) runChecker(ctx context.Context, c checker.Checker, sc types.ScanContext) []types.Issue {
	cctx, cancel := context.WithTimeout(ctx, e.CheckerTimeout)
	defer cancel()

	done := make(chan []types.Issue, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- []types.Issue{checkerFaultIssue(c, fmt.Sprintf("internal fault: %v", r))}
			}
		}()
		done <- c.Run(cctx, sc)
	}()

	select {
	case issues := <-done:
		return validIssues(issues)
	case <-cctx.Done():
		return []types.Issue{checkerFaultIssue(c, fmt.Sprintf("check timed out after %v", e.CheckerTimeout))}
	}
}

// checkerFaultIssue is the degraded-result issue for a checker that
// panicked or timed out.
func checkerFaultIssue(c checker.Checker, detail string) types.Issue {
	impact := types.ImpactSecurity
	if c.Category() == checker.CategoryPerformance {
		impact = types.ImpactPerformance
	}
	return types.Issue{
		ID:          c.Name() + "_check_failed",
		Severity:    types.SeverityInfo,
		Title:       fmt.Sprintf("The %s check did not complete", c.Name()),
		Description: fmt.Sprintf("Its findings are missing from this scan: %s", detail),
		Impact:      impact,
	}
}

// validIssues drops issues that violate the data-model invariants
// (empty ID, open-ended severity or impact) so a misbehaving checker
// cannot poison scoring or fix routing.
func validIssues(issues []types.Issue) []types.Issue {
	kept := issues[:0]
	for _, issue := range issues {
		if issue.ID == "" || !issue.Severity.Valid() || !issue.Impact.Valid() {
			continue
		}
		kept = append(kept, issue)
	}
	return kept
}

// applyDeltas fills the score deltas from the immediately prior scan,
// when one exists.
func (e *Engine) applyDeltas(scores *types.Scores) {
	if e.store == nil {
		return
	}
	prior, err := e.store.LoadLatest()
	if err != nil || prior == nil {
		return
	}

	healthDelta := scores.Health - prior.Scores.Health
	speedDelta := scores.Speed - prior.Scores.Speed
	scores.HealthDelta = &healthDelta
	scores.SpeedDelta = &speedDelta
}

// notify fans an event out to all listeners, in subscription order.
func (e *Engine) notify(ev types.ProgressEvent) {
	for _, l := range e.listeners {
		l(ev)
	}
}
