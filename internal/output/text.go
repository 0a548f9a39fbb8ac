package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/ancients-collective/vitals/internal/types"
)

// ─── Layout constants ────────────────────────────────────────────────
//
// Every issue line follows a fixed column grid:
//
//     col 0    4   6       14      16
//     │margin│ I │ BADGE   │2sp│ TITLE ...
//              ↑   ↑              ↑
//           colIcon colBadge    colTitle
//
// Detail lines start at colDetail with labelWidth-padded labels so
// every value begins at colValue.
const (
	colMargin  = 4
	badgeWidth = 8 // visible width of a padded badge, e.g. "[CRIT]  "
	colDetail  = 16
	labelWidth = 9 // fixed label field: "Detail:  " / "Fix:     "
	colValue   = 25
	maxLine    = 110 // hard wrap cap even on ultra-wide terminals
	ruleWidth  = 64
)

// Score bands for coloring: green at or above scoreGood, yellow at or
// above scoreFair, red below.
const (
	scoreGood = 80
	scoreFair = 60
)

// TextFormatter writes a colored, human-readable scan report.
type TextFormatter struct {
	Verbose bool   // show issue descriptions and fix action IDs
	Width   int    // terminal width for text wrapping; 0 = unknown
	Dumb    bool   // TERM=dumb — use single-char ASCII fallback icons
	Version string // printed in the header when set
}

// Color helpers — each returns a sprint function.
var (
	cBold   = color.New(color.Bold).SprintFunc()
	cGreen  = color.New(color.FgGreen).SprintFunc()
	cRed    = color.New(color.FgRed).SprintFunc()
	cYellow = color.New(color.FgYellow).SprintFunc()
	cCyan   = color.New(color.FgCyan).SprintFunc()
	cDim    = color.New(color.Faint).SprintFunc()

	cRedBold    = color.New(color.FgRed, color.Bold).SprintFunc()
	cYellowBold = color.New(color.FgYellow, color.Bold).SprintFunc()
	cGreenBold  = color.New(color.FgGreen, color.Bold).SprintFunc()
)

// IsDumbTerm returns true when the terminal doesn't support Unicode.
func IsDumbTerm() bool {
	t := os.Getenv("TERM")
	return t == "dumb" || t == ""
}

// wrapWidth returns the effective line width: min(terminal, maxLine).
func (f *TextFormatter) wrapWidth() int {
	if f.Width > 0 && f.Width < maxLine {
		return f.Width
	}
	return maxLine
}

// ─── Public entry point ──────────────────────────────────────────────

// Write renders the full text report.
func (f *TextFormatter) Write(w io.Writer, result *types.ScanResult) error {
	f.writeHeader(w, result)
	f.writeSystem(w, result)
	f.writeScores(w, result)
	f.writeIssues(w, result)
	f.writeHints(w, result)
	fmt.Fprintln(w)
	return nil
}

// ─── Header ──────────────────────────────────────────────────────────

func (f *TextFormatter) writeHeader(w io.Writer, r *types.ScanResult) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "         _ _        _\n")
	fmt.Fprintf(w, "  __   _(_| |_ __ _| |___\n")
	fmt.Fprintf(w, "  \\ \\ / | | __/ _` | / __|\n")
	fmt.Fprintf(w, "   \\ V /| | || (_| | \\__ \\\n")
	fmt.Fprintf(w, "    \\_/ |_|\\__\\__,_|_|___/")
	if f.Version != "" {
		fmt.Fprintf(w, "  v%s", f.Version)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", cDim("Health and speed, one scan at a time"))
	fmt.Fprintf(w, "  %s %s\n", cDim("Scan started:"), r.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintln(w)
}

// ─── System context ──────────────────────────────────────────────────

func (f *TextFormatter) writeSystem(w io.Writer, r *types.ScanResult) {
	sys := r.System
	fmt.Fprintf(w, "  %s\n", cBold(f.icon("section")+" System"))
	fmt.Fprintf(w, "    Host:    %s\n", sys.Hostname)
	fmt.Fprintf(w, "    OS:      %s %s (%s)\n", sys.OS, sys.OSVersion, sys.Arch)
	if sys.CPUCount > 0 {
		fmt.Fprintf(w, "    CPUs:    %d\n", sys.CPUCount)
	}
	if sys.MemoryTotalMB > 0 {
		fmt.Fprintf(w, "    Memory:  %d MB\n", sys.MemoryTotalMB)
	}
	if sys.UptimeHours > 0 {
		fmt.Fprintf(w, "    Uptime:  %dh\n", sys.UptimeHours)
	}
	fmt.Fprintln(w)
}

// ─── Scores ──────────────────────────────────────────────────────────

func (f *TextFormatter) writeScores(w io.Writer, r *types.ScanResult) {
	rule := cDim(strings.Repeat("─", ruleWidth))
	fmt.Fprintf(w, "  %s\n", rule)
	fmt.Fprintf(w, "  %s  %s%s\n", cBold("Health:"),
		f.scoreValue(r.Scores.Health), f.deltaTag(r.Scores.HealthDelta))
	fmt.Fprintf(w, "  %s   %s%s\n", cBold("Speed:"),
		f.scoreValue(r.Scores.Speed), f.deltaTag(r.Scores.SpeedDelta))

	crit := r.CountBySeverity(types.SeverityCritical)
	warn := r.CountBySeverity(types.SeverityWarning)
	info := r.CountBySeverity(types.SeverityInfo)
	if len(r.Issues) == 0 {
		fmt.Fprintf(w, "  %s %s\n", cGreenBold(f.icon("pass")),
			cGreenBold("Clean — no issues found"))
	} else {
		var parts []string
		if crit > 0 {
			parts = append(parts, cRedBold(fmt.Sprintf("%d critical", crit)))
		}
		if warn > 0 {
			parts = append(parts, cYellowBold(fmt.Sprintf("%d warning", warn)))
		}
		if info > 0 {
			parts = append(parts, cDim(fmt.Sprintf("%d info", info)))
		}
		fmt.Fprintf(w, "  %s  %s\n", cBold("Issues:"), strings.Join(parts, " · "))
	}

	dur := fmt.Sprintf("%.1fs", float64(r.DurationMS)/1000.0)
	fmt.Fprintf(w, "  %s  %s\n", cDim("Completed in"), cBold(dur))
	fmt.Fprintf(w, "  %s\n", rule)
}

// scoreValue colors a score by its band and pads it to a 3-char field.
func (f *TextFormatter) scoreValue(score int) string {
	s := fmt.Sprintf("%3d/100", score)
	switch {
	case score >= scoreGood:
		return cGreenBold(s)
	case score >= scoreFair:
		return cYellowBold(s)
	default:
		return cRedBold(s)
	}
}

// deltaTag renders the change vs. the prior scan, e.g. " (↑ 5)".
func (f *TextFormatter) deltaTag(delta *int) string {
	if delta == nil {
		return ""
	}
	d := *delta
	switch {
	case d > 0:
		return " " + cGreen(fmt.Sprintf("(%s %d)", f.icon("up"), d))
	case d < 0:
		return " " + cRed(fmt.Sprintf("(%s %d)", f.icon("down"), -d))
	default:
		return " " + cDim("(no change)")
	}
}

// ─── Issues ──────────────────────────────────────────────────────────

func (f *TextFormatter) writeIssues(w io.Writer, r *types.ScanResult) {
	if len(r.Issues) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", cRedBold(f.icon("section")+" Issues"))
	fmt.Fprintln(w)

	for _, issue := range r.Issues {
		f.writeIssueLine(w, issue)
		f.writeIssueDetail(w, issue)
		fmt.Fprintln(w)
	}
}

func (f *TextFormatter) writeIssueLine(w io.Writer, issue types.Issue) {
	icon := f.severityIcon(issue.Severity)
	badge := f.severityBadge(issue.Severity)
	fmt.Fprintf(w, "%s%s %s  %s\n", colPad(colMargin), icon, badge, cBold(issue.Title))
}

func (f *TextFormatter) writeIssueDetail(w io.Writer, issue types.Issue) {
	p := colPad(colDetail)

	if f.Verbose && issue.Description != "" {
		f.writeLabel(w, p, "Detail:", cDim, issue.Description)
	}
	f.writeLabel(w, p, "Impact:", cCyan, string(issue.Impact))

	if issue.Fix == nil {
		return
	}
	fix := issue.Fix
	f.writeLabel(w, p, "Fix:", cGreen, fix.Label)
	if f.Verbose {
		mode := "manual — requires confirmation"
		if fix.IsAutoFix {
			mode = "auto-fixable"
		}
		if fix.Destructive {
			mode += ", takes a restore point first"
		}
		f.writeLabel(w, p, "Mode:", cDim, mode)
		f.writeLabel(w, p, "Run:", cDim, fmt.Sprintf("vitals --fix %s", fix.ActionID))
	}
}

// writeLabel emits one detail line: prefix + colored label (padded to labelWidth) + wrapped value.
func (f *TextFormatter) writeLabel(w io.Writer, prefix, label string, colorFn func(a ...interface{}) string, value string) {
	colored := colorFn(fmt.Sprintf("%-*s", labelWidth, label))
	wrapped := f.wrap(value, colValue, colValue)
	fmt.Fprintf(w, "%s%s%s\n", prefix, colored, wrapped)
}

// ─── Hints ───────────────────────────────────────────────────────────

func (f *TextFormatter) writeHints(w io.Writer, r *types.ScanResult) {
	var hints []string
	fixable := 0
	for _, issue := range r.Issues {
		if issue.Fix != nil {
			fixable++
		}
	}
	if fixable > 0 {
		hints = append(hints, fmt.Sprintf("%d issue(s) have a fix — run vitals --fix <action>", fixable))
	}
	if len(r.Issues) > 0 && !f.Verbose {
		hints = append(hints, "Run with --verbose for issue details")
	}

	if len(hints) == 0 {
		return
	}

	fmt.Fprintln(w)
	for _, h := range hints {
		fmt.Fprintf(w, "  %s %s\n", cDim("›"), cDim(h))
	}
}

// ─── Text wrapping ───────────────────────────────────────────────────

func (f *TextFormatter) wrap(text string, startCol, wrapCol int) string {
	w := f.wrapWidth()
	if startCol+len(text) <= w {
		return text
	}

	avail := w - startCol
	if avail < 20 {
		return text
	}

	wrapPad := strings.Repeat(" ", wrapCol)
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	var b strings.Builder
	lineLen := 0

	for i, word := range words {
		if i == 0 {
			b.WriteString(word)
			lineLen = len(word)
			continue
		}
		if lineLen+1+len(word) > avail {
			b.WriteByte('\n')
			b.WriteString(wrapPad)
			b.WriteString(word)
			lineLen = len(word)
			avail = w - wrapCol
		} else {
			b.WriteByte(' ')
			b.WriteString(word)
			lineLen += 1 + len(word)
		}
	}

	return b.String()
}

// ─── Icons ───────────────────────────────────────────────────────────

func (f *TextFormatter) icon(name string) string {
	if f.Dumb {
		switch name {
		case "pass":
			return "+"
		case "crit":
			return "x"
		case "warn":
			return "!"
		case "info":
			return "i"
		case "up":
			return "+"
		case "down":
			return "-"
		case "section":
			return ">"
		default:
			return "?"
		}
	}
	switch name {
	case "pass":
		return "✓"
	case "crit":
		return "✗"
	case "warn":
		return "⚠"
	case "info":
		return "ℹ"
	case "up":
		return "↑"
	case "down":
		return "↓"
	case "section":
		return "▸"
	default:
		return "?"
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────

func (f *TextFormatter) severityIcon(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return cRed(f.icon("crit"))
	case types.SeverityWarning:
		return cYellow(f.icon("warn"))
	case types.SeverityInfo:
		return cDim(f.icon("info"))
	default:
		return "?"
	}
}

func (f *TextFormatter) severityBadge(s types.Severity) string {
	raw := severityBadgeRaw(s)
	padded := fmt.Sprintf("%-*s", badgeWidth, raw)
	switch s {
	case types.SeverityCritical:
		return cRedBold(padded)
	case types.SeverityWarning:
		return cYellow(padded)
	case types.SeverityInfo:
		return cDim(padded)
	default:
		return padded
	}
}

func colPad(n int) string {
	return strings.Repeat(" ", n)
}

func severityBadgeRaw(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return "[CRIT]"
	case types.SeverityWarning:
		return "[WARN]"
	case types.SeverityInfo:
		return "[INFO]"
	default:
		return "[----]"
	}
}
