package checker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancients-collective/vitals/internal/types"
)

func testProcesses(samples []procSample, err error) *Processes {
	return &Processes{list: func(context.Context) ([]procSample, error) {
		return samples, err
	}}
}

func TestProcesses_QuietSystem(t *testing.T) {
	c := testProcesses([]procSample{
		{PID: 100, Name: "editor", CPU: 2.5, MemoryMB: 400},
		{PID: 101, Name: "browser", CPU: 12.0, MemoryMB: 900},
	}, nil)

	issues := c.Run(context.Background(), types.ScanContext{})

	assert.Empty(t, issues)
}

func TestProcesses_CPUHog(t *testing.T) {
	c := testProcesses([]procSample{
		{PID: 4242, Name: "video-encoder", CPU: 97.3, MemoryMB: 300},
	}, nil)

	issues := c.Run(context.Background(), types.ScanContext{})

	require.Len(t, issues, 1)
	assert.Equal(t, "high_cpu_video_encoder", issues[0].ID)
	assert.Equal(t, types.SeverityWarning, issues[0].Severity)
	assert.Equal(t, types.ImpactPerformance, issues[0].Impact)
	require.NotNil(t, issues[0].Fix)
	assert.Equal(t, "kill_process", issues[0].Fix.ActionID)
	assert.Equal(t, 4242, issues[0].Fix.Params["pid"])
}

func TestProcesses_MemoryHog(t *testing.T) {
	c := testProcesses([]procSample{
		{PID: 7, Name: "chrome renderer", CPU: 1.0, MemoryMB: 3100},
	}, nil)

	issues := c.Run(context.Background(), types.ScanContext{})

	require.Len(t, issues, 1)
	assert.Equal(t, "high_memory_chrome_renderer", issues[0].ID)
	assert.Equal(t, types.SeverityInfo, issues[0].Severity)
	require.NotNil(t, issues[0].Fix)
	assert.Equal(t, "restart_process", issues[0].Fix.ActionID)
	assert.Equal(t, 7, issues[0].Fix.Params["pid"])
}

func TestProcesses_HogOnBothAxesReportsTwice(t *testing.T) {
	c := testProcesses([]procSample{
		{PID: 8, Name: "miner", CPU: 99.0, MemoryMB: 4096},
	}, nil)

	issues := c.Run(context.Background(), types.ScanContext{})

	require.Len(t, issues, 2)
	assert.Equal(t, "high_cpu_miner", issues[0].ID)
	assert.Equal(t, "kill_process", issues[0].Fix.ActionID)
	assert.Equal(t, "high_memory_miner", issues[1].ID)
	assert.Equal(t, "restart_process", issues[1].Fix.ActionID)
}

func TestProcesses_SystemProcessesAreProtected(t *testing.T) {
	c := testProcesses([]procSample{
		{PID: 1, Name: "systemd", CPU: 80.0, MemoryMB: 5000},
		{PID: 900, Name: "Xorg", CPU: 75.0, MemoryMB: 100},
	}, nil)

	issues := c.Run(context.Background(), types.ScanContext{})

	assert.Empty(t, issues)
}

func TestProcesses_ProbeFailure(t *testing.T) {
	c := testProcesses(nil, errors.New("proc not mounted"))

	issues := c.Run(context.Background(), types.ScanContext{})

	require.Len(t, issues, 1)
	assert.Equal(t, "process_probe_failed", issues[0].ID)
	assert.Equal(t, types.SeverityInfo, issues[0].Severity)
}

func TestProcessesFix_RefusesSystemProcess(t *testing.T) {
	c := NewProcesses()

	_, err := c.Fix("kill_process", map[string]any{"pid": 1, "name": "systemd"})
	require.ErrorIs(t, err, ErrInvalidParams)

	_, err = c.Fix("restart_process", map[string]any{"pid": 1, "name": "systemd"})
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestProcessesFix_RequiresPIDAndName(t *testing.T) {
	c := NewProcesses()

	for _, action := range []string{"kill_process", "restart_process"} {
		_, err := c.Fix(action, map[string]any{"name": "browser"})
		require.ErrorIs(t, err, ErrInvalidParams)

		_, err = c.Fix(action, map[string]any{"pid": 55})
		require.ErrorIs(t, err, ErrInvalidParams)
	}
}

func TestProcessesFix_RestartFailsWhenProcessGone(t *testing.T) {
	c := NewProcesses()

	// PID 0 never belongs to a user process.
	result, err := c.Fix("restart_process", map[string]any{"pid": 0, "name": "browser"})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, types.ReasonExecutionFailed, result.Reason)
}

func TestProcesses_ActionsIncludeKillAndRestart(t *testing.T) {
	actions := NewProcesses().Actions()

	require.Len(t, actions, 2)
	assert.Equal(t, "kill_process", actions[0].ActionID)
	assert.Equal(t, "restart_process", actions[1].ActionID)
	for _, a := range actions {
		assert.False(t, a.IsAutoFix)
		assert.False(t, a.Destructive)
	}
}

func TestProcessesFix_UnknownAction(t *testing.T) {
	c := NewProcesses()

	_, err := c.Fix("defragment_ram", nil)

	require.ErrorIs(t, err, ErrUnknownAction)
}

func TestSanitizeID(t *testing.T) {
	cases := map[string]string{
		"Chrome Helper":   "chrome_helper",
		"my-app.bin":      "my_app_bin",
		"weird*chars!":    "weirdchars",
		"UPPER":           "upper",
		"under_scored_42": "under_scored_42",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeID(in), in)
	}
}

func TestIsSystemProcess(t *testing.T) {
	assert.True(t, isSystemProcess("systemd"))
	assert.True(t, isSystemProcess("systemd-resolved"))
	assert.True(t, isSystemProcess("SSHD"))
	assert.False(t, isSystemProcess("spotify"))
}
