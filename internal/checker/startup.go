package checker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ancients-collective/vitals/internal/types"
)

// excessiveStartupThreshold is the autostart entry count above which boot
// time is noticeably affected.
const excessiveStartupThreshold = 15

// bloatwarePatterns maps lowercase autostart-name substrings to a display
// name. Matching entries rarely earn their boot-time cost.
var bloatwarePatterns = map[string]string{
	"spotify":  "Spotify",
	"discord":  "Discord",
	"skype":    "Skype",
	"steam":    "Steam",
	"slack":    "Slack",
	"zoom":     "Zoom",
	"teams":    "Microsoft Teams",
	"dropbox":  "Dropbox",
	"onedrive": "OneDrive",
	"anydesk":  "AnyDesk",
	"teamview": "TeamViewer",
}

// Startup analyzes autostart entries: too many of them, and entries
// matching known bloatware.
type Startup struct {
	dirs []string
}

// NewStartup creates the startup checker scanning the standard autostart
// directories. Extra directories may be supplied for tests.
func NewStartup(dirs ...string) *Startup {
	if len(dirs) == 0 {
		dirs = defaultAutostartDirs()
	}
	return &Startup{dirs: dirs}
}

// defaultAutostartDirs returns the XDG autostart locations.
func defaultAutostartDirs() []string {
	dirs := []string{"/etc/xdg/autostart"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "autostart"))
	}
	return dirs
}

func (s *Startup) Name() string       { return "startup" }
func (s *Startup) Category() Category { return CategoryPerformance }
func (s *Startup) Slow() bool         { return false }

func (s *Startup) Actions() []types.FixAction {
	return []types.FixAction{
		{
			ActionID:    "disable_startup",
			Label:       "Disable at Startup",
			IsAutoFix:   true,
			Destructive: true,
		},
	}
}

// Run lists autostart entries and reports excess and known bloatware.
func (s *Startup) Run(_ context.Context, sc types.ScanContext) []types.Issue {
	if sc.Options.ExcludeStartup {
		return nil
	}

	entries := s.listEntries()
	var issues []types.Issue

	if len(entries) > excessiveStartupThreshold {
		issues = append(issues, types.Issue{
			ID:       "excessive_startup_items",
			Severity: types.SeverityWarning,
			Title:    fmt.Sprintf("%d apps start at login", len(entries)),
			Description: fmt.Sprintf(
				"You have %d programs starting at login. Each adds to login time. Consider disabling the ones you don't need immediately.",
				len(entries)),
			Impact: types.ImpactPerformance,
		})
	}

	if sc.Options.ExcludeApps {
		return issues
	}

	for _, entry := range entries {
		name := strings.ToLower(strings.TrimSuffix(filepath.Base(entry), ".desktop"))
		for pattern, display := range bloatwarePatterns {
			if !strings.Contains(name, pattern) {
				continue
			}
			issues = append(issues, types.Issue{
				ID:          "bloatware_startup_" + pattern,
				Severity:    types.SeverityInfo,
				Title:       display + " starts at login",
				Description: display + " launches at every login and keeps running in the background. Disable it to speed up login; you can still start it manually.",
				Impact:      types.ImpactPerformance,
				Fix: &types.FixAction{
					ActionID:    "disable_startup",
					Label:       "Disable at Startup",
					IsAutoFix:   true,
					Destructive: true,
					Params:      map[string]any{"path": entry, "name": display},
				},
			})
			break
		}
	}

	return issues
}

// listEntries returns the .desktop files in the autostart directories.
// Unreadable directories are skipped: an empty autostart dir and a missing
// one look the same to the user.
func (s *Startup) listEntries() []string {
	var entries []string
	for _, dir := range s.dirs {
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".desktop") {
				continue
			}
			entries = append(entries, filepath.Join(dir, f.Name()))
		}
	}
	return entries
}

// Fix disables an autostart entry by renaming it with a .disabled suffix,
// keeping the original content so the change is easy to revert by hand.
func (s *Startup) Fix(actionID string, params map[string]any) (types.FixResult, error) {
	if actionID != "disable_startup" {
		return types.FixResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, actionID)
	}

	path, err := stringParam(params, "path")
	if err != nil {
		return types.FixResult{}, err
	}
	if !strings.HasSuffix(path, ".desktop") || !s.inManagedDir(path) {
		return types.FixResult{}, fmt.Errorf("%w: %q is not a managed autostart entry", ErrInvalidParams, path)
	}

	if err := os.Rename(path, path+".disabled"); err != nil {
		return types.FixFailure(types.ReasonExecutionFailed,
			fmt.Sprintf("failed to disable %s: %v", filepath.Base(path), err)), nil
	}

	name := filepath.Base(path)
	if n, err := stringParam(params, "name"); err == nil {
		name = n
	}
	return types.FixSuccess(fmt.Sprintf("%s will no longer start at login. Rename %s.disabled back to re-enable it.", name, path)), nil
}

// inManagedDir reports whether path sits directly inside one of the
// checker's autostart directories. Blocks fix requests pointed at
// arbitrary files.
func (s *Startup) inManagedDir(path string) bool {
	parent := filepath.Dir(filepath.Clean(path))
	for _, dir := range s.dirs {
		if parent == filepath.Clean(dir) {
			return true
		}
	}
	return false
}
