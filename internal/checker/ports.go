package checker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ancients-collective/vitals/internal/syscmd"
	"github.com/ancients-collective/vitals/internal/types"
)

// riskyPorts maps ports that should not normally be listening to their
// service name and severity.
var riskyPorts = map[int]struct {
	service  string
	severity types.Severity
}{
	22:   {"SSH", types.SeverityCritical},
	23:   {"Telnet", types.SeverityCritical},
	3389: {"RDP", types.SeverityCritical},
	139:  {"NetBIOS", types.SeverityWarning},
	445:  {"SMB", types.SeverityWarning},
	5900: {"VNC", types.SeverityWarning},
}

// devPorts are common local development ports that are never reported.
var devPorts = map[int]bool{
	3000: true, 3306: true, 5000: true, 5432: true,
	6379: true, 8000: true, 8080: true,
}

// Ports reports risky listening TCP ports parsed from `ss -tlnp`.
type Ports struct {
	exec *syscmd.Executor
}

// NewPorts creates the listening-port checker.
func NewPorts(exec *syscmd.Executor) *Ports {
	return &Ports{exec: exec}
}

func (p *Ports) Name() string       { return "ports" }
func (p *Ports) Category() Category { return CategorySecurity }
func (p *Ports) Slow() bool         { return false }

func (p *Ports) Actions() []types.FixAction {
	return []types.FixAction{
		{
			ActionID:    "close_port",
			Label:       "Close Port",
			IsAutoFix:   false,
			Destructive: true,
		},
	}
}

// Run lists listening ports and reports the risky ones. The firewall
// provider found at scan time rides along in the fix params so the fix
// talks to the right firewall later.
func (p *Ports) Run(ctx context.Context, _ types.ScanContext) []types.Issue {
	out, err := p.exec.Execute(ctx, "ss", []string{"-tln"})
	if err != nil {
		return []types.Issue{probeFailed(p.Name(), types.ImpactSecurity, err)}
	}

	provider := p.detectProvider(ctx)

	var issues []types.Issue
	for _, port := range parseListeningPorts(string(out)) {
		info, risky := riskyPorts[port]
		if !risky || devPorts[port] {
			continue
		}
		params := map[string]any{"port": port, "service": info.service}
		if provider != "" {
			params["provider"] = provider
		}
		issues = append(issues, types.Issue{
			ID:          fmt.Sprintf("port_open_%d", port),
			Severity:    info.severity,
			Title:       fmt.Sprintf("Port %d (%s) is open", port, info.service),
			Description: portDescription(port, info.service),
			Impact:      types.ImpactSecurity,
			Fix: &types.FixAction{
				ActionID:    "close_port",
				Label:       "Close Port",
				IsAutoFix:   false,
				Destructive: true,
				Params:      params,
			},
		})
	}
	return issues
}

// detectProvider returns which firewall answers on this host, or ""
// when neither does.
func (p *Ports) detectProvider(ctx context.Context) string {
	if _, err := p.exec.Execute(ctx, "ufw", []string{"status"}); err == nil {
		return "ufw"
	}
	if out, err := p.exec.Execute(ctx, "systemctl", []string{"is-active", "firewalld"}); err == nil ||
		strings.TrimSpace(string(out)) != "" {
		return "firewalld"
	}
	return ""
}

// parseListeningPorts extracts unique local port numbers from ss output.
// Lines look like: "LISTEN 0 128 0.0.0.0:22 0.0.0.0:*".
func parseListeningPorts(out string) []int {
	seen := make(map[int]bool)
	var ports []int

	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "LISTEN") {
			continue
		}
		fields := strings.Fields(line)
		for _, field := range fields {
			idx := strings.LastIndex(field, ":")
			if idx < 0 || idx == len(field)-1 {
				continue
			}
			port, err := strconv.Atoi(field[idx+1:])
			if err != nil || port < 1 || port > 65535 {
				continue
			}
			if !seen[port] {
				seen[port] = true
				ports = append(ports, port)
			}
			break // only the local address column
		}
	}
	return ports
}

// portDescription explains why an open port matters.
func portDescription(port int, service string) string {
	switch port {
	case 3389:
		return "Remote Desktop (RDP) is exposed. This allows remote control of this machine. Close it unless you specifically need remote access."
	case 445, 139:
		return fmt.Sprintf("%s file sharing is exposed. This can allow network access to your files.", service)
	case 22:
		return "SSH is open. This allows remote command-line access to this machine."
	case 23:
		return "Telnet is open. Telnet is unencrypted and should never be enabled."
	default:
		return fmt.Sprintf("Port %d (%s) accepts network connections.", port, service)
	}
}

// Fix denies inbound traffic to the port through whichever firewall the
// scan found. The service keeps running; the firewall rule blocks
// remote access.
func (p *Ports) Fix(actionID string, params map[string]any) (types.FixResult, error) {
	if actionID != "close_port" {
		return types.FixResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, actionID)
	}

	port, err := intParam(params, "port")
	if err != nil {
		return types.FixResult{}, err
	}
	if port < 1 || port > 65535 {
		return types.FixResult{}, fmt.Errorf("%w: port %d out of range", ErrInvalidParams, port)
	}

	provider := "ufw"
	if params != nil {
		if pr, err := stringParam(params, "provider"); err == nil && pr != "" {
			provider = pr
		}
	}

	ctx := context.Background()
	switch provider {
	case "ufw":
		if _, err := p.exec.Execute(ctx, "ufw", []string{"deny", strconv.Itoa(port)}); err != nil {
			return types.FixFailure(types.ReasonExecutionFailed,
				fmt.Sprintf("failed to add firewall rule for port %d: %v", port, err)), nil
		}
	case "firewalld":
		rule := fmt.Sprintf("--remove-port=%d/tcp", port)
		if _, err := p.exec.Execute(ctx, "firewall-cmd", []string{"--permanent", rule}); err != nil {
			return types.FixFailure(types.ReasonExecutionFailed,
				fmt.Sprintf("failed to remove port %d from the firewall: %v", port, err)), nil
		}
		if _, err := p.exec.Execute(ctx, "firewall-cmd", []string{"--reload"}); err != nil {
			return types.FixFailure(types.ReasonExecutionFailed,
				fmt.Sprintf("firewall rule saved but reload failed: %v", err)), nil
		}
	default:
		return types.FixResult{}, fmt.Errorf("%w: unsupported provider %q", ErrInvalidParams, provider)
	}

	return types.FixSuccess(fmt.Sprintf(
		"Inbound traffic to port %d is now denied by the firewall. The owning service is still running locally.", port)), nil
}
