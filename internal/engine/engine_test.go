package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancients-collective/vitals/internal/checker"
	"github.com/ancients-collective/vitals/internal/history"
	"github.com/ancients-collective/vitals/internal/types"
)

// fakeChecker is a scriptable checker for engine tests.
type fakeChecker struct {
	name     string
	category checker.Category
	slow     bool
	issues   []types.Issue
	actions  []types.FixAction
	run      func(ctx context.Context, sc types.ScanContext) []types.Issue
	fix      func(actionID string, params map[string]any) (types.FixResult, error)
	runCount int
}

func (f *fakeChecker) Name() string               { return f.name }
func (f *fakeChecker) Category() checker.Category { return f.category }
func (f *fakeChecker) Slow() bool                 { return f.slow }
func (f *fakeChecker) Actions() []types.FixAction { return f.actions }

func (f *fakeChecker) Run(ctx context.Context, sc types.ScanContext) []types.Issue {
	f.runCount++
	if f.run != nil {
		return f.run(ctx, sc)
	}
	return f.issues
}

func (f *fakeChecker) Fix(actionID string, params map[string]any) (types.FixResult, error) {
	if f.fix != nil {
		return f.fix(actionID, params)
	}
	return types.FixResult{}, checker.ErrUnknownAction
}

// fakeStore is an in-memory history store.
type fakeStore struct {
	latest  *types.ScanResult
	saved   []*types.ScanResult
	loadErr error
	saveErr error
}

func (s *fakeStore) LoadLatest() (*types.ScanResult, error) { return s.latest, s.loadErr }

func (s *fakeStore) Save(r *types.ScanResult) error {
	s.saved = append(s.saved, r)
	return s.saveErr
}

func (s *fakeStore) Recent(int) ([]history.Summary, error) { return nil, nil }

func secChecker(name string, issues ...types.Issue) *fakeChecker {
	return &fakeChecker{name: name, category: checker.CategorySecurity, issues: issues}
}

func perfChecker(name string, issues ...types.Issue) *fakeChecker {
	return &fakeChecker{name: name, category: checker.CategoryPerformance, issues: issues}
}

func newTestEngine(t *testing.T, store history.Store, checkers ...checker.Checker) *Engine {
	t.Helper()
	eng := New(NewScorer(nil), store, nil)
	eng.CheckerTimeout = 2 * time.Second
	for _, c := range checkers {
		require.NoError(t, eng.Register(c))
	}
	return eng
}

func TestRegister_RejectsDuplicateName(t *testing.T) {
	eng := New(nil, nil, nil)

	require.NoError(t, eng.Register(secChecker("firewall")))
	err := eng.Register(secChecker("firewall"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate checker name")
}

func TestRegister_RejectsDuplicateActionID(t *testing.T) {
	eng := New(nil, nil, nil)
	a := secChecker("a")
	a.actions = []types.FixAction{{ActionID: "enable_firewall", Label: "Enable Firewall"}}
	b := secChecker("b")
	b.actions = []types.FixAction{{ActionID: "enable_firewall", Label: "Enable Firewall Again"}}

	require.NoError(t, eng.Register(a))
	err := eng.Register(b)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate fix action")
}

func TestScan_CollectsIssuesInRegistrationOrder(t *testing.T) {
	first := secChecker("first",
		issue("first_a", types.SeverityCritical, types.ImpactSecurity),
		issue("first_b", types.SeverityInfo, types.ImpactSecurity),
	)
	second := perfChecker("second",
		issue("second_a", types.SeverityWarning, types.ImpactPerformance),
	)
	eng := newTestEngine(t, nil, first, second)

	result, err := eng.Scan(context.Background(), types.DefaultScanOptions())

	require.NoError(t, err)
	require.Len(t, result.Issues, 3)
	assert.Equal(t, "first_a", result.Issues[0].ID)
	assert.Equal(t, "first_b", result.Issues[1].ID)
	assert.Equal(t, "second_a", result.Issues[2].ID)
	assert.NotEmpty(t, result.ScanID)
}

func TestScan_CategoryFilter(t *testing.T) {
	sec := secChecker("sec")
	perf := perfChecker("perf")
	eng := newTestEngine(t, nil, sec, perf)

	_, err := eng.Scan(context.Background(), types.ScanOptions{Security: true})

	require.NoError(t, err)
	assert.Equal(t, 1, sec.runCount)
	assert.Equal(t, 0, perf.runCount)
}

func TestScan_QuickSkipsSlowCheckers(t *testing.T) {
	fast := secChecker("fast")
	slow := perfChecker("slow")
	slow.slow = true
	eng := newTestEngine(t, nil, fast, slow)

	opts := types.DefaultScanOptions()
	opts.Quick = true
	_, err := eng.Scan(context.Background(), opts)

	require.NoError(t, err)
	assert.Equal(t, 1, fast.runCount)
	assert.Equal(t, 0, slow.runCount)
}

func TestScan_PanickingCheckerDoesNotAbortScan(t *testing.T) {
	panicking := secChecker("broken")
	panicking.run = func(context.Context, types.ScanContext) []types.Issue {
		panic("nil map write")
	}
	healthy := secChecker("healthy",
		issue("healthy_finding", types.SeverityWarning, types.ImpactSecurity),
	)
	eng := newTestEngine(t, nil, panicking, healthy)

	result, err := eng.Scan(context.Background(), types.DefaultScanOptions())

	require.NoError(t, err)
	require.Len(t, result.Issues, 2)
	assert.Equal(t, "broken_check_failed", result.Issues[0].ID)
	assert.Equal(t, types.SeverityInfo, result.Issues[0].Severity)
	assert.Equal(t, "healthy_finding", result.Issues[1].ID)
}

func TestScan_HangingCheckerTimesOut(t *testing.T) {
	hanging := perfChecker("hanging")
	hanging.run = func(ctx context.Context, _ types.ScanContext) []types.Issue {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return []types.Issue{issue("too_late", types.SeverityCritical, types.ImpactPerformance)}
	}
	after := perfChecker("after")
	eng := newTestEngine(t, nil, hanging, after)
	eng.CheckerTimeout = 50 * time.Millisecond

	result, err := eng.Scan(context.Background(), types.DefaultScanOptions())

	require.NoError(t, err)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "hanging_check_failed", result.Issues[0].ID)
	assert.Equal(t, types.SeverityInfo, result.Issues[0].Severity)
	assert.Equal(t, 1, after.runCount)
}

func TestScan_DropsInvalidIssues(t *testing.T) {
	dirty := secChecker("dirty",
		types.Issue{ID: "", Severity: types.SeverityCritical, Impact: types.ImpactSecurity},
		types.Issue{ID: "bad_severity", Severity: "catastrophic", Impact: types.ImpactSecurity},
		issue("kept", types.SeverityWarning, types.ImpactSecurity),
	)
	eng := newTestEngine(t, nil, dirty)

	result, err := eng.Scan(context.Background(), types.DefaultScanOptions())

	require.NoError(t, err)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "kept", result.Issues[0].ID)
	assert.Equal(t, 90, result.Scores.Health)
}

func TestScan_CancellationBetweenCheckers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	first := secChecker("first")
	first.run = func(context.Context, types.ScanContext) []types.Issue {
		cancel()
		return nil
	}
	second := secChecker("second")
	eng := newTestEngine(t, nil, first, second)

	var events []types.ProgressEvent
	eng.Subscribe(func(ev types.ProgressEvent) { events = append(events, ev) })

	_, err := eng.Scan(ctx, types.DefaultScanOptions())

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, second.runCount)

	// A started scan always ends with a terminal event, even when it
	// errors out.
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, types.ProgressAborted, last.Kind)
	assert.Equal(t, events[0].ScanID, last.ScanID)
}

func TestScan_DeltasFromPriorScan(t *testing.T) {
	store := &fakeStore{latest: &types.ScanResult{
		Scores: types.Scores{Health: 100, Speed: 90},
	}}
	eng := newTestEngine(t, store,
		secChecker("c", issue("x", types.SeverityCritical, types.ImpactSecurity)))

	result, err := eng.Scan(context.Background(), types.DefaultScanOptions())

	require.NoError(t, err)
	assert.Equal(t, 80, result.Scores.Health)
	require.NotNil(t, result.Scores.HealthDelta)
	require.NotNil(t, result.Scores.SpeedDelta)
	assert.Equal(t, -20, *result.Scores.HealthDelta)
	assert.Equal(t, 10, *result.Scores.SpeedDelta)
	require.Len(t, store.saved, 1)
	assert.Equal(t, result.ScanID, store.saved[0].ScanID)
}

func TestScan_NoDeltasOnFirstScan(t *testing.T) {
	eng := newTestEngine(t, &fakeStore{}, secChecker("c"))

	result, err := eng.Scan(context.Background(), types.DefaultScanOptions())

	require.NoError(t, err)
	assert.Nil(t, result.Scores.HealthDelta)
	assert.Nil(t, result.Scores.SpeedDelta)
}

func TestScan_HistoryFailuresAreNotFatal(t *testing.T) {
	store := &fakeStore{
		loadErr: errors.New("disk on fire"),
		saveErr: errors.New("still on fire"),
	}
	eng := newTestEngine(t, store, secChecker("c"))

	result, err := eng.Scan(context.Background(), types.DefaultScanOptions())

	require.NoError(t, err)
	assert.Equal(t, 100, result.Scores.Health)
	assert.Nil(t, result.Scores.HealthDelta)
}

func TestScan_ProgressEventOrder(t *testing.T) {
	eng := newTestEngine(t, nil, secChecker("a"), perfChecker("b",
		issue("b_finding", types.SeverityInfo, types.ImpactPerformance)))

	var events []types.ProgressEvent
	eng.Subscribe(func(ev types.ProgressEvent) { events = append(events, ev) })

	_, err := eng.Scan(context.Background(), types.DefaultScanOptions())

	require.NoError(t, err)
	require.Len(t, events, 6)
	assert.Equal(t, types.ProgressStarted, events[0].Kind)
	assert.Equal(t, types.ProgressCheckerStarted, events[1].Kind)
	assert.Equal(t, "a", events[1].Checker)
	assert.Equal(t, types.ProgressCheckerFinished, events[2].Kind)
	assert.Equal(t, 0, events[2].Issues)
	assert.Equal(t, "b", events[3].Checker)
	assert.Equal(t, 1, events[4].Issues)
	assert.Equal(t, types.ProgressComplete, events[5].Kind)
	assert.Equal(t, events[0].ScanID, events[5].ScanID)
}

func TestScan_ValidWithZeroSubscribers(t *testing.T) {
	eng := newTestEngine(t, nil, secChecker("a"))

	result, err := eng.Scan(context.Background(), types.DefaultScanOptions())

	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestCheckers_ListsRegistrationOrder(t *testing.T) {
	slow := perfChecker("network")
	slow.slow = true
	eng := newTestEngine(t, nil, secChecker("firewall"), slow)

	infos := eng.Checkers()

	require.Len(t, infos, 2)
	assert.Equal(t, "firewall", infos[0].Name)
	assert.Equal(t, checker.CategorySecurity, infos[0].Category)
	assert.Equal(t, "network", infos[1].Name)
	assert.True(t, infos[1].Slow)
}
