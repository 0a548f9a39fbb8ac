package checker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancients-collective/vitals/internal/types"
)

func writeDesktopEntry(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := "[Desktop Entry]\nType=Application\nName=" + name + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestStartup_CleanDirectory(t *testing.T) {
	s := NewStartup(t.TempDir())

	issues := s.Run(context.Background(), types.ScanContext{Options: types.DefaultScanOptions()})

	assert.Empty(t, issues)
}

func TestStartup_ExcessiveEntries(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < excessiveStartupThreshold+1; i++ {
		writeDesktopEntry(t, dir, fmt.Sprintf("app%02d.desktop", i))
	}
	s := NewStartup(dir)

	issues := s.Run(context.Background(), types.ScanContext{Options: types.DefaultScanOptions()})

	require.Len(t, issues, 1)
	assert.Equal(t, "excessive_startup_items", issues[0].ID)
	assert.Equal(t, types.SeverityWarning, issues[0].Severity)
	assert.Equal(t, types.ImpactPerformance, issues[0].Impact)
	assert.Nil(t, issues[0].Fix)
}

func TestStartup_DetectsBloatware(t *testing.T) {
	dir := t.TempDir()
	path := writeDesktopEntry(t, dir, "spotify.desktop")
	writeDesktopEntry(t, dir, "important-tool.desktop")
	s := NewStartup(dir)

	issues := s.Run(context.Background(), types.ScanContext{Options: types.DefaultScanOptions()})

	require.Len(t, issues, 1)
	assert.Equal(t, "bloatware_startup_spotify", issues[0].ID)
	assert.Equal(t, types.SeverityInfo, issues[0].Severity)
	require.NotNil(t, issues[0].Fix)
	assert.Equal(t, "disable_startup", issues[0].Fix.ActionID)
	assert.Equal(t, path, issues[0].Fix.Params["path"])
}

func TestStartup_IgnoresNonDesktopFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "discord.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "slack.desktop.d"), 0o755))
	s := NewStartup(dir)

	issues := s.Run(context.Background(), types.ScanContext{Options: types.DefaultScanOptions()})

	assert.Empty(t, issues)
}

func TestStartup_ExcludeStartupSkipsEverything(t *testing.T) {
	dir := t.TempDir()
	writeDesktopEntry(t, dir, "zoom.desktop")
	s := NewStartup(dir)

	opts := types.DefaultScanOptions()
	opts.ExcludeStartup = true
	issues := s.Run(context.Background(), types.ScanContext{Options: opts})

	assert.Empty(t, issues)
}

func TestStartup_ExcludeAppsKeepsCountCheck(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < excessiveStartupThreshold+1; i++ {
		writeDesktopEntry(t, dir, fmt.Sprintf("discord%02d.desktop", i))
	}
	s := NewStartup(dir)

	opts := types.DefaultScanOptions()
	opts.ExcludeApps = true
	issues := s.Run(context.Background(), types.ScanContext{Options: opts})

	require.Len(t, issues, 1)
	assert.Equal(t, "excessive_startup_items", issues[0].ID)
}

func TestStartupFix_DisablesEntry(t *testing.T) {
	dir := t.TempDir()
	path := writeDesktopEntry(t, dir, "steam.desktop")
	s := NewStartup(dir)

	result, err := s.Fix("disable_startup", map[string]any{"path": path, "name": "Steam"})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Message, "Steam")
	assert.NoFileExists(t, path)
	assert.FileExists(t, path+".disabled")
}

func TestStartupFix_RejectsPathOutsideManagedDirs(t *testing.T) {
	managed := t.TempDir()
	elsewhere := t.TempDir()
	path := writeDesktopEntry(t, elsewhere, "victim.desktop")
	s := NewStartup(managed)

	_, err := s.Fix("disable_startup", map[string]any{"path": path})

	require.ErrorIs(t, err, ErrInvalidParams)
	assert.FileExists(t, path)
}

func TestStartupFix_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	path := writeDesktopEntry(t, sub, "sneaky.desktop")
	s := NewStartup(dir)

	_, err := s.Fix("disable_startup", map[string]any{
		"path": filepath.Join(dir, "sub", "..", "sub", "sneaky.desktop"),
	})

	require.ErrorIs(t, err, ErrInvalidParams)
	assert.FileExists(t, path)
}

func TestStartupFix_RejectsNonDesktopFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "passwd")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	s := NewStartup(dir)

	_, err := s.Fix("disable_startup", map[string]any{"path": path})

	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestStartupFix_UnknownAction(t *testing.T) {
	s := NewStartup(t.TempDir())

	_, err := s.Fix("enable_everything", nil)

	require.ErrorIs(t, err, ErrUnknownAction)
}
