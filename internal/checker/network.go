package checker

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/ancients-collective/vitals/internal/syscmd"
	"github.com/ancients-collective/vitals/internal/types"
)

const (
	// dnsSlowThreshold is the lookup latency above which DNS is reported.
	dnsSlowThreshold = 500 * time.Millisecond
	// connectTimeout bounds the connectivity probe.
	connectTimeout = 5 * time.Second
)

// Network probes basic connectivity and DNS latency. It issues real
// network requests, so it is flagged slow and skipped by quick scans.
type Network struct {
	exec *syscmd.Executor

	// dial and resolve are injectable for tests.
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
	resolve func(ctx context.Context, host string) ([]string, error)
}

// NewNetwork creates the network checker with real dial/resolve probes.
func NewNetwork(exec *syscmd.Executor) *Network {
	var dialer net.Dialer
	var resolver net.Resolver
	return &Network{
		exec:    exec,
		dial:    dialer.DialContext,
		resolve: resolver.LookupHost,
	}
}

func (n *Network) Name() string       { return "network" }
func (n *Network) Category() Category { return CategoryPerformance }
func (n *Network) Slow() bool         { return true }

func (n *Network) Actions() []types.FixAction {
	return []types.FixAction{
		{
			ActionID:    "flush_dns_cache",
			Label:       "Flush DNS Cache",
			IsAutoFix:   true,
			Destructive: false,
		},
	}
}

// Run probes connectivity first; without it the DNS probes are noise.
func (n *Network) Run(ctx context.Context, _ types.ScanContext) []types.Issue {
	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	conn, err := n.dial(dialCtx, "tcp", "1.1.1.1:443")
	if err != nil {
		return []types.Issue{{
			ID:          "network_no_connection",
			Severity:    types.SeverityCritical,
			Title:       "No internet connection",
			Description: "Could not reach the internet. Check your network cable, Wi-Fi, or router.",
			Impact:      types.ImpactPerformance,
		}}
	}
	conn.Close()

	var issues []types.Issue

	start := time.Now()
	_, err = n.resolve(ctx, "example.com")
	latency := time.Since(start)

	switch {
	case err != nil:
		issues = append(issues, types.Issue{
			ID:          "network_dns_failure",
			Severity:    types.SeverityCritical,
			Title:       "DNS lookups are failing",
			Description: "The internet is reachable but name resolution fails, so browsing will not work.",
			Impact:      types.ImpactPerformance,
			Fix:         n.flushFix(),
		})
	case latency > dnsSlowThreshold:
		issues = append(issues, types.Issue{
			ID:          "network_slow_dns",
			Severity:    types.SeverityInfo,
			Title:       fmt.Sprintf("DNS lookups are slow (%d ms)", latency.Milliseconds()),
			Description: "Slow name resolution makes every new website feel sluggish. Flushing the resolver cache often helps.",
			Impact:      types.ImpactPerformance,
			Fix:         n.flushFix(),
		})
	}

	return issues
}

// flushFix is the shared remediation handle for DNS findings.
func (n *Network) flushFix() *types.FixAction {
	return &types.FixAction{
		ActionID:  "flush_dns_cache",
		Label:     "Flush DNS Cache",
		IsAutoFix: true,
	}
}

// Fix flushes the systemd-resolved cache.
func (n *Network) Fix(actionID string, _ map[string]any) (types.FixResult, error) {
	if actionID != "flush_dns_cache" {
		return types.FixResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, actionID)
	}

	if _, err := n.exec.Execute(context.Background(), "resolvectl", []string{"flush-caches"}); err != nil {
		return types.FixFailure(types.ReasonExecutionFailed,
			fmt.Sprintf("failed to flush DNS cache: %v", err)), nil
	}
	return types.FixSuccess("DNS resolver cache flushed"), nil
}
