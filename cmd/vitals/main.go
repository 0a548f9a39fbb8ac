// Package main is the entry point for vitals — Health and speed, one scan at a time.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/ancients-collective/vitals/internal/checker"
	"github.com/ancients-collective/vitals/internal/checkpoint"
	"github.com/ancients-collective/vitals/internal/config"
	"github.com/ancients-collective/vitals/internal/engine"
	"github.com/ancients-collective/vitals/internal/history"
	"github.com/ancients-collective/vitals/internal/output"
	"github.com/ancients-collective/vitals/internal/syscmd"
	"github.com/ancients-collective/vitals/internal/types"
)

// version is set at build time via -ldflags. The default is a dev fallback
// for plain `go install` or `go run` usage.
var version = "0.3.1"

// paramList collects repeated --param key=value flags.
type paramList []string

func (p *paramList) String() string { return strings.Join(*p, ",") }

func (p *paramList) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	*p = append(*p, v)
	return nil
}

// Config holds all parsed CLI flag values.
type Config struct {
	SecurityOnly    bool
	PerformanceOnly bool
	Quick           bool
	ExcludeApps     bool
	ExcludeStartup  bool
	Format          string
	NoColor         bool
	OutputFile      string
	Quiet           bool
	Verbose         bool
	WeightsFile     string
	ListCheckers    bool
	FixAction       string
	Params          paramList
	Yes             bool
	HistoryPath     string
	NoHistory       bool
}

// parseFlags parses command-line arguments into a Config using a dedicated FlagSet,
// keeping the global flag.CommandLine clean for testability.
func parseFlags(args []string) (*Config, error) {
	cfg := &Config{}
	fs := flag.NewFlagSet("vitals", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	fs.BoolVar(&cfg.SecurityOnly, "security-only", false, "Run only security checkers")
	fs.BoolVar(&cfg.PerformanceOnly, "performance-only", false, "Run only performance checkers")
	fs.BoolVar(&cfg.Quick, "quick", false, "Skip slow checkers for a bounded scan time")
	fs.BoolVar(&cfg.ExcludeApps, "exclude-apps", false, "Skip installed-application analysis")
	fs.BoolVar(&cfg.ExcludeStartup, "exclude-startup", false, "Skip startup-item analysis")
	fs.StringVar(&cfg.Format, "format", "text", "Output format: text, json, jsonl")
	fs.StringVar(&cfg.Format, "f", "text", "Output format (shorthand)")
	fs.BoolVar(&cfg.NoColor, "no-color", false, "Disable colored output")
	fs.StringVar(&cfg.OutputFile, "output", "", "Write output to file (default: stdout)")
	fs.StringVar(&cfg.OutputFile, "o", "", "Write output to file (shorthand)")
	fs.BoolVar(&cfg.Quiet, "quiet", false, "Suppress output, exit code only (0 = clean, 1 = critical, 2 = error)")
	fs.BoolVar(&cfg.Quiet, "q", false, "Suppress output (shorthand)")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Show issue descriptions and fix details")
	fs.BoolVar(&cfg.Verbose, "v", false, "Show issue details (shorthand)")
	fs.StringVar(&cfg.WeightsFile, "weights", "", "Path to a YAML scoring-weight overrides file")
	fs.BoolVar(&cfg.ListCheckers, "list-checkers", false, "List all registered checkers and fix actions, then exit")
	fs.StringVar(&cfg.FixAction, "fix", "", "Run a single fix action by its ID instead of scanning")
	fs.Var(&cfg.Params, "param", "Fix action parameter as key=value (repeatable)")
	fs.BoolVar(&cfg.Yes, "yes", false, "Confirm the fix without prompting")
	fs.BoolVar(&cfg.Yes, "y", false, "Confirm the fix (shorthand)")
	fs.StringVar(&cfg.HistoryPath, "history", "", "Path to the scan history database")
	fs.BoolVar(&cfg.NoHistory, "no-history", false, "Do not read or write scan history")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "         _ _        _\n")
		fmt.Fprintf(os.Stderr, "  __   _(_| |_ __ _| |___\n")
		fmt.Fprintf(os.Stderr, "  \\ \\ / | | __/ _` | / __|\n")
		fmt.Fprintf(os.Stderr, "   \\ V /| | || (_| | \\__ \\\n")
		fmt.Fprintf(os.Stderr, "    \\_/ |_|\\__\\__,_|_|___/\n")
		fmt.Fprintf(os.Stderr, "  Health and speed, one scan at a time\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "  Usage: vitals [options]\n\n")
		fmt.Fprintf(os.Stderr, "  Options:\n")
		fmt.Fprintf(os.Stderr, "         --security-only      Run only security checkers\n")
		fmt.Fprintf(os.Stderr, "         --performance-only   Run only performance checkers\n")
		fmt.Fprintf(os.Stderr, "         --quick              Skip slow checkers\n")
		fmt.Fprintf(os.Stderr, "         --exclude-apps       Skip installed-application analysis\n")
		fmt.Fprintf(os.Stderr, "         --exclude-startup    Skip startup-item analysis\n")
		fmt.Fprintf(os.Stderr, "    -f,  --format <type>     Output format: text, json, jsonl (default: text)\n")
		fmt.Fprintf(os.Stderr, "         --no-color           Disable colored output\n")
		fmt.Fprintf(os.Stderr, "    -o,  --output <file>     Write output to file (default: stdout)\n")
		fmt.Fprintf(os.Stderr, "    -q,  --quiet             Suppress output, exit code only (0/1/2)\n")
		fmt.Fprintf(os.Stderr, "    -v,  --verbose           Show issue descriptions and fix details\n")
		fmt.Fprintf(os.Stderr, "         --weights <file>    YAML scoring-weight overrides\n")
		fmt.Fprintf(os.Stderr, "         --list-checkers     List checkers and fix actions, then exit\n")
		fmt.Fprintf(os.Stderr, "         --fix <action_id>   Run a single fix action instead of scanning\n")
		fmt.Fprintf(os.Stderr, "         --param <k=v>       Fix action parameter (repeatable)\n")
		fmt.Fprintf(os.Stderr, "    -y,  --yes               Confirm the fix without prompting\n")
		fmt.Fprintf(os.Stderr, "         --history <file>    Scan history database path\n")
		fmt.Fprintf(os.Stderr, "         --no-history        Disable scan history (no score deltas)\n")
		fmt.Fprintf(os.Stderr, "\n  Examples:\n")
		fmt.Fprintf(os.Stderr, "    vitals                                Full scan, text report\n")
		fmt.Fprintf(os.Stderr, "    vitals --quick                        Bounded scan, skips slow checks\n")
		fmt.Fprintf(os.Stderr, "    vitals --security-only                Security checkers only\n")
		fmt.Fprintf(os.Stderr, "    vitals --format json -o scan.json     JSON report to file\n")
		fmt.Fprintf(os.Stderr, "    vitals -q && echo healthy             Scripting with exit code\n")
		fmt.Fprintf(os.Stderr, "    vitals --list-checkers                Show checkers and fix actions\n")
		fmt.Fprintf(os.Stderr, "    vitals --fix enable_firewall -y       Enable the firewall, no prompt\n")
		fmt.Fprintf(os.Stderr, "    vitals --fix close_port --param port=23 -y\n")
		fmt.Fprintf(os.Stderr, "    vitals --weights ./weights.yaml       Custom scoring weights\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	os.Exit(run(cfg))
}

// run executes the scan or fix with the given configuration and returns an
// exit code: 0 = clean, 1 = critical issues found, 2 = error.
func run(cfg *Config) int {
	if code := validateFlags(cfg); code >= 0 {
		return code
	}

	isDumb := output.IsDumbTerm()
	if cfg.NoColor || cfg.Format != "text" || cfg.OutputFile != "" || isDumb {
		color.NoColor = true
	}

	eng, code := buildEngine(cfg)
	if code >= 0 {
		return code
	}

	if cfg.ListCheckers {
		printCheckerList(eng)
		return 0
	}

	if cfg.FixAction != "" {
		return runFix(cfg, eng)
	}

	return runScan(cfg, eng, isDumb)
}

// validateFlags checks flag values and combinations.
// Returns -1 if valid, or an exit code (2) if invalid.
func validateFlags(cfg *Config) int {
	switch cfg.Format {
	case "text", "json", "jsonl":
	default:
		fmt.Fprintf(os.Stderr, "  ✗ Invalid --format value %q (must be text, json, or jsonl)\n", cfg.Format)
		return 2
	}
	if cfg.SecurityOnly && cfg.PerformanceOnly {
		fmt.Fprintf(os.Stderr, "  ✗ --security-only and --performance-only are mutually exclusive\n")
		return 2
	}
	if cfg.FixAction == "" && len(cfg.Params) > 0 {
		fmt.Fprintf(os.Stderr, "  ✗ --param requires --fix\n")
		return 2
	}
	return -1
}

// buildEngine wires the checker registry, scoring weights, history store,
// and checkpoint provider into one engine.
// Returns -1 as code if successful, or an exit code on failure.
func buildEngine(cfg *Config) (*engine.Engine, int) {
	weights := config.DefaultWeights()
	if cfg.WeightsFile != "" {
		loaded, err := config.LoadWeights(cfg.WeightsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ Invalid weights file: %v\n", err)
			return nil, 2
		}
		weights = loaded
	}

	var store history.Store
	if !cfg.NoHistory {
		path := cfg.HistoryPath
		if path == "" {
			path = defaultHistoryPath()
		}
		if path != "" {
			s, err := history.Open(path)
			if err != nil {
				// History is a convenience, not a requirement: scan without
				// deltas rather than refusing to run.
				if !cfg.Quiet {
					fmt.Fprintf(os.Stderr, "  ⚠ Scan history unavailable: %v\n", err)
				}
			} else {
				store = s
			}
		}
	}

	exec := syscmd.NewExecutor()
	var provider checkpoint.Provider = checkpoint.Disabled{}
	if runtime.GOOS == "linux" {
		provider = checkpoint.NewTimeshift(exec)
	}

	coordinator := engine.NewCoordinator(provider, engine.FixPolicy{})
	eng := engine.New(engine.NewScorer(weights), store, coordinator)

	checkers := []checker.Checker{
		checker.NewFirewall(exec),
		checker.NewPorts(exec),
		checker.NewOSUpdate(exec),
		checker.NewStartup(),
		checker.NewProcesses(),
		checker.NewDisk(exec),
		checker.NewBottleneck(),
		checker.NewNetwork(exec),
	}
	for _, c := range checkers {
		if err := eng.Register(c); err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ Checker registration failed: %v\n", err)
			return nil, 2
		}
	}

	return eng, -1
}

// defaultHistoryPath returns the per-user history database location, or ""
// when no home directory can be determined.
func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".local", "share", "vitals")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}
	return filepath.Join(dir, "history.db")
}

// runScan executes a full scan and writes the report.
func runScan(cfg *Config, eng *engine.Engine, isDumb bool) int {
	opts := types.DefaultScanOptions()
	if cfg.SecurityOnly {
		opts.Performance = false
	}
	if cfg.PerformanceOnly {
		opts.Security = false
	}
	opts.Quick = cfg.Quick
	opts.ExcludeApps = cfg.ExcludeApps
	opts.ExcludeStartup = cfg.ExcludeStartup

	showProgress := cfg.Format == "text" && !cfg.Quiet && cfg.OutputFile == ""
	if showProgress {
		total := len(eng.Checkers())
		done := 0
		eng.Subscribe(func(ev types.ProgressEvent) {
			switch ev.Kind {
			case types.ProgressCheckerFinished:
				done++
				fmt.Fprintf(os.Stderr, "\r  Scanning... %d/%d (%s)        ", done, total, ev.Checker)
			case types.ProgressComplete:
				fmt.Fprintf(os.Stderr, "\r  Scanning... done                    \n")
			case types.ProgressAborted:
				fmt.Fprintf(os.Stderr, "\r  Scanning... stopped                 \n")
			}
		})
	}

	result, err := eng.Scan(context.Background(), opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  ✗ Scan aborted: %v\n", err)
		return 2
	}

	if cfg.Quiet {
		return scanExitCode(result)
	}
	return writeResult(cfg, result, isDumb)
}

// runFix runs one fix action through the safety protocol.
func runFix(cfg *Config, eng *engine.Engine) int {
	params, err := parseParams(cfg.Params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  ✗ Invalid --param: %v\n", err)
		return 2
	}

	confirmed := cfg.Yes
	if !confirmed {
		confirmed = promptConfirm(cfg.FixAction)
	}

	result := eng.FixIssue(context.Background(), cfg.FixAction, params, confirmed)

	if result.Success {
		if !cfg.Quiet {
			fmt.Fprintf(os.Stdout, "  ✓ %s\n", result.Message)
			if result.RollbackAvailable {
				fmt.Fprintf(os.Stdout, "    Restore point: %s\n", result.RestorePointID)
			}
		}
		return 0
	}

	if !cfg.Quiet {
		fmt.Fprintf(os.Stderr, "  ✗ [%s] %s\n", result.Reason, result.Message)
		if result.Reason == types.ReasonUnknownAction {
			if suggestions := suggestActionIDs(cfg.FixAction, eng.ActionIDs()); len(suggestions) > 0 {
				fmt.Fprintf(os.Stderr, "\n  Did you mean:\n")
				for _, s := range suggestions {
					fmt.Fprintf(os.Stderr, "    • %s\n", s)
				}
			}
			fmt.Fprintf(os.Stderr, "\n  Use --list-checkers to see all available fix actions.\n")
		}
		if result.Reason == types.ReasonConfirmationRequired {
			fmt.Fprintf(os.Stderr, "  Re-run with --yes to confirm.\n")
		}
	}
	return 2
}

// promptConfirm asks for interactive confirmation on a terminal. Without a
// terminal there is no one to ask, so the answer is no.
func promptConfirm(actionID string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	fmt.Fprintf(os.Stderr, "  Run fix %q? This may modify your system. [y/N] ", actionID)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// parseParams converts repeated key=value strings into a parameter map.
// Values that parse as integers are passed through as ints.
func parseParams(raw paramList) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", kv)
		}
		if n, err := strconv.Atoi(value); err == nil {
			params[key] = n
		} else {
			params[key] = value
		}
	}
	return params, nil
}

// writeResult formats and writes the scan result to stdout or a file.
func writeResult(cfg *Config, result *types.ScanResult, isDumb bool) int {
	termWidth := 0
	if cfg.OutputFile == "" && cfg.Format == "text" {
		if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
			if tw, _, err := term.GetSize(fd); err == nil && tw > 0 {
				termWidth = tw
			}
		}
	}

	var formatter output.Formatter
	switch cfg.Format {
	case "json":
		formatter = &output.JSONFormatter{}
	case "jsonl":
		formatter = &output.JSONLFormatter{}
	default:
		formatter = &output.TextFormatter{
			Verbose: cfg.Verbose,
			Width:   termWidth,
			Dumb:    isDumb,
			Version: version,
		}
	}

	w := os.Stdout
	if cfg.OutputFile != "" {
		if err := validateOutputPath(cfg.OutputFile); err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ Unsafe output path: %v\n", err)
			return 2
		}
		f, err := os.Create(cfg.OutputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ Failed to create output file: %v\n", err)
			return 2
		}
		defer f.Close()
		w = f
	}

	if err := formatter.Write(w, result); err != nil {
		fmt.Fprintf(os.Stderr, "  ✗ Failed to write output: %v\n", err)
		return 2
	}

	if cfg.OutputFile != "" {
		fmt.Fprintf(os.Stderr, "  ✓ Scan complete: health %d · speed %d · %d issue(s) — written to %s\n",
			result.Scores.Health, result.Scores.Speed, len(result.Issues), cfg.OutputFile)
	}

	return scanExitCode(result)
}

// scanExitCode returns 1 when any critical issue was found, 0 otherwise.
func scanExitCode(result *types.ScanResult) int {
	if result.CountBySeverity(types.SeverityCritical) > 0 {
		return 1
	}
	return 0
}

// printCheckerList prints the registered checkers and their fix actions.
func printCheckerList(eng *engine.Engine) {
	infos := eng.Checkers()
	fmt.Fprintf(os.Stdout, "\n  Registered checkers (%d):\n\n", len(infos))

	maxName := 0
	for _, ci := range infos {
		if len(ci.Name) > maxName {
			maxName = len(ci.Name)
		}
	}
	for _, ci := range infos {
		tag := ""
		if ci.Slow {
			tag = "  (slow — skipped by --quick)"
		}
		fmt.Fprintf(os.Stdout, "    %-*s  %-12s%s\n", maxName, ci.Name, ci.Category, tag)
	}

	ids := eng.ActionIDs()
	sort.Strings(ids)
	fmt.Fprintf(os.Stdout, "\n  Fix actions (%d):\n\n", len(ids))
	for _, id := range ids {
		fmt.Fprintf(os.Stdout, "    %s\n", id)
	}
	fmt.Fprintln(os.Stdout)
}

// unsafeOutputPrefixes are path prefixes where writing output files is rejected.
// Prevents accidental overwrite of system files when running as root.
var unsafeOutputPrefixes = []string{"/etc/", "/proc/", "/sys/", "/dev/", "/boot/", "/sbin/", "/bin/", "/usr/"}

// validateOutputPath checks that the output file path is safe to write to.
func validateOutputPath(path string) error {
	cleaned := filepath.Clean(path)
	if filepath.IsAbs(cleaned) {
		for _, prefix := range unsafeOutputPrefixes {
			if strings.HasPrefix(cleaned, prefix) {
				return fmt.Errorf("refusing to write to system path %q", cleaned)
			}
		}
	}
	return nil
}
